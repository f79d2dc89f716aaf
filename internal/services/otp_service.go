package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/redis/go-redis/v9"
)

// OTPConfig tunes code generation and abuse controls. Zero MaxAttempts or
// ResendWindow disables the corresponding check.
type OTPConfig struct {
	Length             int
	TTL                time.Duration
	MaxAttempts        int
	ResendWindow       time.Duration
	InvalidatePrevious bool
	Now                func() time.Time
}

// OTPServiceImpl implements domain.OTPService. Codes live in the database;
// Redis only carries the resend throttle and failed-attempt counters.
type OTPServiceImpl struct {
	repo        domain.OTPRepository
	tx          domain.Transactor
	redisClient *redis.Client
	config      OTPConfig
}

// NewOTPService creates a new OTP service. redisClient may be nil, which
// turns off throttling.
func NewOTPService(repo domain.OTPRepository, tx domain.Transactor, redisClient *redis.Client, config OTPConfig) *OTPServiceImpl {
	if config.Length <= 0 {
		config.Length = 6
	}
	if config.TTL <= 0 {
		config.TTL = 15 * time.Minute
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &OTPServiceImpl{
		repo:        repo,
		tx:          tx,
		redisClient: redisClient,
		config:      config,
	}
}

func resendKey(subject string) string   { return fmt.Sprintf("otp:res:%s", subject) }
func attemptsKey(subject string) string { return fmt.Sprintf("otp:att:%s", subject) }

// Issue implements domain.OTPService
func (s *OTPServiceImpl) Issue(ctx context.Context, subject string, purpose domain.OTPPurpose) (*domain.OTP, error) {
	// Check resend throttle
	canResend, wait, err := s.CanResend(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !canResend {
		return nil, fmt.Errorf("%w: retry in %d seconds", domain.ErrOTPResendLimit, wait)
	}

	code, err := s.generateSecureCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	now := s.config.Now()
	otp := &domain.OTP{
		Subject:   subject,
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	}

	persist := func(ctx context.Context) error {
		if s.config.InvalidatePrevious {
			if _, err := s.repo.InvalidateUnused(ctx, subject, now); err != nil {
				return fmt.Errorf("failed to invalidate previous codes: %w", err)
			}
		}
		if err := s.repo.Create(ctx, otp); err != nil {
			return fmt.Errorf("failed to store OTP: %w", err)
		}
		return nil
	}

	if s.config.InvalidatePrevious && s.tx != nil {
		err = s.tx.WithinTx(ctx, persist)
	} else {
		err = persist(ctx)
	}
	if err != nil {
		return nil, err
	}

	if s.redisClient != nil && s.config.ResendWindow > 0 {
		if err := s.redisClient.Set(ctx, resendKey(subject), 1, s.config.ResendWindow).Err(); err != nil {
			return nil, fmt.Errorf("failed to set resend throttle: %w", err)
		}
	}

	// A fresh code gets a fresh attempt budget
	if s.redisClient != nil && s.config.MaxAttempts > 0 {
		if err := s.redisClient.Del(ctx, attemptsKey(subject)).Err(); err != nil {
			return nil, fmt.Errorf("failed to reset OTP attempts: %w", err)
		}
	}

	return otp, nil
}

// FindLive implements domain.OTPService
func (s *OTPServiceImpl) FindLive(ctx context.Context, subject, code string) (*domain.OTP, error) {
	otp, err := s.repo.FindLatestUnused(ctx, subject, code)
	if err != nil {
		return nil, err
	}
	if otp.IsExpired(s.config.Now()) {
		return nil, domain.ErrOTPExpired
	}
	return otp, nil
}

// Consume implements domain.OTPService. Only the caller that flips the
// record from unused to used succeeds.
func (s *OTPServiceImpl) Consume(ctx context.Context, otp *domain.OTP) error {
	now := s.config.Now()
	ok, err := s.repo.MarkUsed(ctx, otp.ID, now)
	if err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}
	if !ok {
		return domain.ErrOTPAlreadyUsed
	}
	otp.Used = true
	otp.UsedAt = &now
	return nil
}

// Verify implements domain.OTPService
func (s *OTPServiceImpl) Verify(ctx context.Context, subject, code string) (*domain.OTP, error) {
	if err := s.countAttempt(ctx, subject); err != nil {
		return nil, err
	}

	otp, err := s.FindLive(ctx, subject, code)
	if err != nil {
		return nil, err
	}
	if err := s.Consume(ctx, otp); err != nil {
		return nil, err
	}

	if s.redisClient != nil && s.config.MaxAttempts > 0 {
		s.redisClient.Del(ctx, attemptsKey(subject))
	}
	return otp, nil
}

// countAttempt increments the per-subject counter atomically and rejects
// once it passes MaxAttempts. The counter expires with the code TTL.
func (s *OTPServiceImpl) countAttempt(ctx context.Context, subject string) error {
	if s.redisClient == nil || s.config.MaxAttempts <= 0 {
		return nil
	}

	key := attemptsKey(subject)
	attempts, err := s.redisClient.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to increment attempts: %w", err)
	}
	if attempts == 1 {
		s.redisClient.Expire(ctx, key, s.config.TTL)
	}
	if attempts > int64(s.config.MaxAttempts) {
		return domain.ErrOTPMaxAttempts
	}
	return nil
}

// CanResend implements domain.OTPService with Redis-based throttling
func (s *OTPServiceImpl) CanResend(ctx context.Context, subject string) (bool, int64, error) {
	if s.redisClient == nil || s.config.ResendWindow <= 0 {
		return true, 0, nil
	}

	ttl, err := s.redisClient.TTL(ctx, resendKey(subject)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}

	// If TTL <= 0, key doesn't exist or has expired - can resend
	if ttl <= 0 {
		return true, 0, nil
	}

	wait := int64(ttl.Seconds())
	if wait == 0 {
		wait = 1
	}
	return false, wait, nil
}

// generateSecureCode draws each digit uniformly, so leading zeros occur
func (s *OTPServiceImpl) generateSecureCode() (string, error) {
	digits := make([]byte, s.config.Length)

	for i := 0; i < s.config.Length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}

	return string(digits), nil
}
