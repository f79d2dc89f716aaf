package notifications

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSMSSender delivers SMS through the Twilio REST API
type TwilioSMSSender struct {
	api        messageCreator
	fromNumber string
	log        *logrus.Logger
}

// NewTwilioSMSSender creates a Twilio-backed SMS sender
func NewTwilioSMSSender(accountSID, authToken, fromNumber string, log *logrus.Logger) *TwilioSMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioSMSSender{
		api:        client.Api,
		fromNumber: fromNumber,
		log:        log,
	}
}

// SendSMS sends message to the given number. Without a sender number the
// message is only logged.
func (t *TwilioSMSSender) SendSMS(ctx context.Context, to, message string) error {
	if t.fromNumber == "" {
		t.log.WithField("to", to).Info("twilio sender number not configured, sms skipped")
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(t.fromNumber)
	params.SetBody(message)

	resp, err := t.api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send SMS: %w", err)
	}

	entry := t.log.WithField("to", to)
	if resp != nil && resp.Sid != nil {
		entry = entry.WithField("sid", *resp.Sid)
	}
	entry.Debug("sms sent")
	return nil
}
