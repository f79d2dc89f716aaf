package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/sirupsen/logrus"
)

// OutcomeRecorder receives operation outcomes for metrics
type OutcomeRecorder interface {
	RecordAuthOutcome(operation string, err error)
	RecordNotificationFailure(channel string)
}

// AuthConfig holds the tunables of the auth flows
type AuthConfig struct {
	RefreshTTL             time.Duration
	PasswordChangeInterval time.Duration
	MinPasswordLength      int
	AutoCreateUsers        bool
	SMSEnabled             bool
	Now                    func() time.Time
	Logger                 *logrus.Logger
	Metrics                OutcomeRecorder
}

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	creds       domain.CredentialStore
	otpSvc      domain.OTPService
	tokenSvc    domain.TokenService
	sessionRepo domain.SessionRepository
	notifier    domain.NotificationService
	tx          domain.Transactor
	auditLogger domain.AuditLogger
	config      AuthConfig
	validate    *validator.Validate
	log         *logrus.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	creds domain.CredentialStore,
	otpSvc domain.OTPService,
	tokenSvc domain.TokenService,
	sessionRepo domain.SessionRepository,
	notifier domain.NotificationService,
	tx domain.Transactor,
	auditLogger domain.AuditLogger,
	config AuthConfig,
) *AuthServiceImpl {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = 7 * 24 * time.Hour
	}
	if config.PasswordChangeInterval <= 0 {
		config.PasswordChangeInterval = 24 * time.Hour
	}
	if config.MinPasswordLength <= 0 {
		config.MinPasswordLength = 6
	}
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AuthServiceImpl{
		creds:       creds,
		otpSvc:      otpSvc,
		tokenSvc:    tokenSvc,
		sessionRepo: sessionRepo,
		notifier:    notifier,
		tx:          tx,
		auditLogger: auditLogger,
		config:      config,
		validate:    validator.New(),
		log:         log,
	}
}

// Register implements domain.AuthService
func (s *AuthServiceImpl) Register(ctx context.Context, email, username, phone, password string) (user *domain.User, err error) {
	defer func() { s.record("register", err) }()

	verr := &domain.ValidationError{}
	s.checkEmail(verr, email)
	if strings.TrimSpace(username) == "" {
		verr.Add("username", "is required")
	}
	if phone != "" && s.validate.Var(phone, "e164") != nil {
		verr.Add("phone", "must be in E.164 format")
	}
	s.checkPassword(verr, "password", password)
	if verr.HasErrors() {
		return nil, verr
	}

	user, err = s.creds.Create(ctx, email, strings.TrimSpace(username), phone, password)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user.ID).WithEmail(user.Email))
	return user, nil
}

// Login implements domain.AuthService
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (result *domain.AuthResult, err error) {
	defer func() { s.record("login", err) }()
	email = domain.NormalizeEmail(email)

	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			err = domain.ErrInvalidCredentials
		}
		s.audit(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, 0).WithEmail(email).WithError(err))
		return nil, err
	}

	if !user.IsActive {
		s.audit(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, user.ID).WithEmail(email).WithError(domain.ErrUserInactive))
		return nil, domain.ErrUserInactive
	}

	if !s.creds.VerifyPassword(user, password) {
		s.audit(ctx, domain.NewAuditEvent(domain.UserLoginFailureEvent, user.ID).WithEmail(email).WithError(domain.ErrInvalidCredentials))
		return nil, domain.ErrInvalidCredentials
	}

	result, err = s.startSession(ctx, user, false)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.NewAuditEvent(domain.UserLoginEvent, user.ID).
		WithEmail(email).
		WithSession(result.SessionID).
		WithMetadata("method", "password"))
	return result, nil
}

// RequestOTP implements domain.AuthService
func (s *AuthServiceImpl) RequestOTP(ctx context.Context, email string) (issue *domain.OTPIssue, err error) {
	defer func() { s.record("otp_request", err) }()

	verr := &domain.ValidationError{}
	s.checkEmail(verr, email)
	if verr.HasErrors() {
		return nil, verr
	}
	email = domain.NormalizeEmail(email)

	user, err := s.creds.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) && s.config.AutoCreateUsers {
		user, err = s.createStubUser(ctx, email)
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	issue, err = s.issueAndDeliver(ctx, user, domain.OTPPurposeLogin)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.NewAuditEvent(domain.OTPRequestEvent, user.ID).
		WithEmail(email).
		WithMetadata("delivered", issue.Delivered))
	return issue, nil
}

// VerifyOTP implements domain.AuthService
func (s *AuthServiceImpl) VerifyOTP(ctx context.Context, email, code string) (result *domain.AuthResult, err error) {
	defer func() { s.record("otp_verify", err) }()

	verr := &domain.ValidationError{}
	s.checkEmail(verr, email)
	s.checkCode(verr, code)
	if verr.HasErrors() {
		return nil, verr
	}
	email = domain.NormalizeEmail(email)

	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			err = domain.ErrOTPInvalid
		}
		s.audit(ctx, domain.NewAuditEvent(domain.OTPVerifyFailureEvent, 0).WithEmail(email).WithError(err))
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	if _, err = s.otpSvc.Verify(ctx, email, code); err != nil {
		s.audit(ctx, domain.NewAuditEvent(domain.OTPVerifyFailureEvent, user.ID).WithEmail(email).WithError(err))
		return nil, err
	}

	result, err = s.startSession(ctx, user, true)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.NewAuditEvent(domain.OTPVerifyEvent, user.ID).
		WithEmail(email).
		WithSession(result.SessionID))
	return result, nil
}

// ChangePassword implements domain.AuthService. An OTP-verified token
// skips the old password; any other token must present it.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, claims *domain.TokenClaims, oldPassword, newPassword string) (err error) {
	defer func() { s.record("password_change", err) }()

	if claims == nil || claims.UserID == 0 {
		return domain.ErrUnauthorized
	}

	verr := &domain.ValidationError{}
	s.checkPassword(verr, "new_password", newPassword)
	if !claims.OTPVerified && oldPassword == "" {
		verr.Add("old_password", "is required unless the session is OTP-verified")
	}
	if verr.HasErrors() {
		s.passwordChangeFailed(ctx, claims, verr)
		return verr
	}

	user, err := s.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		return err
	}

	if !claims.OTPVerified && !s.creds.VerifyPassword(user, oldPassword) {
		s.passwordChangeFailed(ctx, claims, domain.ErrInvalidCredentials)
		return domain.ErrInvalidCredentials
	}

	if err = s.creds.SetPasswordIfDue(ctx, user, newPassword, s.config.PasswordChangeInterval); err != nil {
		s.passwordChangeFailed(ctx, claims, err)
		return err
	}

	s.audit(ctx, domain.NewAuditEvent(domain.PasswordChangeEvent, user.ID).
		WithEmail(user.Email).
		WithSession(claims.SessionID).
		WithMetadata("otp_verified", claims.OTPVerified))
	return nil
}

func (s *AuthServiceImpl) passwordChangeFailed(ctx context.Context, claims *domain.TokenClaims, err error) {
	s.audit(ctx, domain.NewAuditEvent(domain.PasswordChangeFailureEvent, claims.UserID).
		WithSession(claims.SessionID).
		WithMetadata("otp_verified", claims.OTPVerified).
		WithError(err))
}

// RequestPasswordReset implements domain.AuthService
func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) (issue *domain.OTPIssue, err error) {
	defer func() { s.record("password_reset_request", err) }()

	verr := &domain.ValidationError{}
	s.checkEmail(verr, email)
	if verr.HasErrors() {
		return nil, verr
	}
	email = domain.NormalizeEmail(email)

	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	issue, err = s.issueAndDeliver(ctx, user, domain.OTPPurposePasswordReset)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, domain.NewAuditEvent(domain.PasswordResetRequestEvent, user.ID).
		WithEmail(email).
		WithMetadata("delivered", issue.Delivered))
	return issue, nil
}

// ConfirmPasswordReset implements domain.AuthService. Consuming the code
// and writing the password commit together or not at all.
func (s *AuthServiceImpl) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) (err error) {
	defer func() { s.record("password_reset_confirm", err) }()

	verr := &domain.ValidationError{}
	s.checkEmail(verr, email)
	s.checkCode(verr, code)
	s.checkPassword(verr, "new_password", newPassword)
	if verr.HasErrors() {
		return verr
	}
	email = domain.NormalizeEmail(email)

	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			err = domain.ErrOTPInvalid
		}
		s.audit(ctx, domain.NewAuditEvent(domain.PasswordResetFailureEvent, 0).WithEmail(email).WithError(err))
		return err
	}
	if !user.IsActive {
		s.audit(ctx, domain.NewAuditEvent(domain.PasswordResetFailureEvent, user.ID).WithEmail(email).WithError(domain.ErrUserInactive))
		return domain.ErrUserInactive
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.otpSvc.Verify(ctx, email, code); err != nil {
			return err
		}
		return s.creds.SetPassword(ctx, user, newPassword)
	})
	if err != nil {
		s.audit(ctx, domain.NewAuditEvent(domain.PasswordResetFailureEvent, user.ID).WithEmail(email).WithError(err))
		return err
	}

	s.audit(ctx, domain.NewAuditEvent(domain.PasswordResetConfirmEvent, user.ID).WithEmail(email))
	return nil
}

// RefreshToken implements domain.AuthService. The new access token is
// never elevated, whatever the session started with.
func (s *AuthServiceImpl) RefreshToken(ctx context.Context, refreshToken string) (result *domain.AuthResult, err error) {
	defer func() { s.record("token_refresh", err) }()

	claims, err := s.tokenSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != claims.UserID {
		return nil, domain.ErrTokenInvalid
	}
	if !session.ExpiresAt.After(s.config.Now()) {
		return nil, domain.ErrSessionExpired
	}

	user, err := s.creds.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	access, err := s.tokenSvc.IssueAccess(user, session.ID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.audit(ctx, domain.NewAuditEvent(domain.TokenRefreshEvent, user.ID).WithSession(session.ID))

	return &domain.AuthResult{
		User: user,
		Tokens: domain.TokenPair{
			AccessToken:  access,
			RefreshToken: refreshToken,
			ExpiresIn:    int64(s.tokenSvc.AccessTTL().Seconds()),
		},
		SessionID: session.ID,
	}, nil
}

// Logout implements domain.AuthService
func (s *AuthServiceImpl) Logout(ctx context.Context, sessionID string) (err error) {
	defer func() { s.record("logout", err) }()

	if sessionID == "" {
		return domain.ErrSessionNotFound
	}

	var userID uint
	if session, err := s.sessionRepo.FindByID(ctx, sessionID); err == nil {
		userID = session.UserID
	}

	if err = s.sessionRepo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.audit(ctx, domain.NewAuditEvent(domain.UserLogoutEvent, userID).WithSession(sessionID))
	return nil
}

// GetUser implements domain.AuthService
func (s *AuthServiceImpl) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	return s.creds.FindByID(ctx, userID)
}

func (s *AuthServiceImpl) startSession(ctx context.Context, user *domain.User, otpVerified bool) (*domain.AuthResult, error) {
	now := s.config.Now()
	session := &domain.Session{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		OTPVerified: otpVerified,
		ExpiresAt:   now.Add(s.config.RefreshTTL),
		CreatedAt:   now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	tokens, err := s.tokenSvc.Issue(user, session.ID, otpVerified)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	return &domain.AuthResult{
		User:        user,
		Tokens:      *tokens,
		SessionID:   session.ID,
		OTPVerified: otpVerified,
	}, nil
}

// issueAndDeliver persists a code and hands it to the notifier. A delivery
// failure is reported on the result; the code stays valid.
func (s *AuthServiceImpl) issueAndDeliver(ctx context.Context, user *domain.User, purpose domain.OTPPurpose) (*domain.OTPIssue, error) {
	otp, err := s.otpSvc.Issue(ctx, user.Email, purpose)
	if err != nil {
		return nil, err
	}

	issue := &domain.OTPIssue{
		Subject:   otp.Subject,
		Purpose:   purpose,
		ExpiresAt: otp.ExpiresAt,
		Delivered: true,
	}

	subject, body := otpMessage(otp, s.config.Now())
	if err := s.notifier.SendEmail(ctx, user.Email, subject, body); err != nil {
		issue.Delivered = false
		issue.DeliveryError = err.Error()
		s.deliveryFailed("email", user, err)
	}

	if s.config.SMSEnabled && user.Phone != "" {
		if err := s.notifier.SendSMS(ctx, user.Phone, body); err != nil {
			s.deliveryFailed("sms", user, err)
		}
	}

	return issue, nil
}

func (s *AuthServiceImpl) deliveryFailed(channel string, user *domain.User, err error) {
	s.log.WithFields(logrus.Fields{
		"channel": channel,
		"user_id": user.ID,
	}).WithError(err).Warn("OTP delivery failed")
	if s.config.Metrics != nil {
		s.config.Metrics.RecordNotificationFailure(channel)
	}
}

func otpMessage(otp *domain.OTP, now time.Time) (string, string) {
	minutes := int(otp.ExpiresAt.Sub(now).Round(time.Minute).Minutes())
	if otp.Purpose == domain.OTPPurposePasswordReset {
		return "Your FitTrack password reset code",
			fmt.Sprintf("Your password reset code is %s. It expires in %d minutes.", otp.Code, minutes)
	}
	return "Your FitTrack login code",
		fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", otp.Code, minutes)
}

// createStubUser registers an address on first OTP request. The random
// password is never disclosed, so the account is OTP-only until a reset.
func (s *AuthServiceImpl) createStubUser(ctx context.Context, email string) (*domain.User, error) {
	username := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		username = email[:at]
	}
	user, err := s.creds.Create(ctx, email, username, "", uuid.NewString())
	if err != nil {
		return nil, err
	}
	s.audit(ctx, domain.NewAuditEvent(domain.UserRegistrationEvent, user.ID).
		WithEmail(email).
		WithMetadata("source", "otp_request"))
	return user, nil
}

func (s *AuthServiceImpl) checkEmail(verr *domain.ValidationError, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		verr.Add("email", "is required")
		return
	}
	if s.validate.Var(email, "email") != nil {
		verr.Add("email", "must be a valid email address")
	}
}

func (s *AuthServiceImpl) checkPassword(verr *domain.ValidationError, field, password string) {
	if password == "" {
		verr.Add(field, "is required")
		return
	}
	if len(password) < s.config.MinPasswordLength {
		verr.Add(field, fmt.Sprintf("must be at least %d characters", s.config.MinPasswordLength))
	}
}

func (s *AuthServiceImpl) checkCode(verr *domain.ValidationError, code string) {
	if code == "" {
		verr.Add("code", "is required")
		return
	}
	if s.validate.Var(code, "numeric") != nil {
		verr.Add("code", "must contain digits only")
	}
}

func (s *AuthServiceImpl) audit(ctx context.Context, event *domain.AuditEvent) {
	if s.auditLogger == nil {
		return
	}
	if err := s.auditLogger.LogEvent(ctx, event); err != nil {
		s.log.WithError(err).WithField("event_type", event.EventType).Warn("failed to record audit event")
	}
}

func (s *AuthServiceImpl) record(operation string, err error) {
	if s.config.Metrics != nil {
		s.config.Metrics.RecordAuthOutcome(operation, err)
	}
}
