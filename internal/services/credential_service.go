package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// CredentialService implements domain.CredentialStore
type CredentialService struct {
	userRepo    domain.UserRepository
	passwordSvc domain.PasswordService
	now         func() time.Time
}

// NewCredentialService creates a credential store. A nil clock means time.Now.
func NewCredentialService(userRepo domain.UserRepository, passwordSvc domain.PasswordService, now func() time.Time) *CredentialService {
	if now == nil {
		now = time.Now
	}
	return &CredentialService{userRepo: userRepo, passwordSvc: passwordSvc, now: now}
}

// Create implements domain.CredentialStore
func (s *CredentialService) Create(ctx context.Context, email, username, phone, password string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	// Check if user already exists
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserAlreadyExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hashedPassword, err := s.passwordSvc.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		Email:        email,
		Username:     username,
		Phone:        phone,
		PasswordHash: hashedPassword,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique index still catches a concurrent registration
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// FindByEmail implements domain.CredentialStore
func (s *CredentialService) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.userRepo.FindByEmail(ctx, domain.NormalizeEmail(email))
}

// FindByID implements domain.CredentialStore
func (s *CredentialService) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// VerifyPassword implements domain.CredentialStore
func (s *CredentialService) VerifyPassword(user *domain.User, plaintext string) bool {
	if user == nil {
		return false
	}
	return s.passwordSvc.Verify(user.PasswordHash, plaintext)
}

// SetPassword implements domain.CredentialStore
func (s *CredentialService) SetPassword(ctx context.Context, user *domain.User, newPassword string) error {
	hash, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash, now); err != nil {
		return err
	}

	user.PasswordHash = hash
	user.LastPasswordChange = &now
	return nil
}

// SetPasswordIfDue implements domain.CredentialStore. The interval check
// and the write are one conditional update, so of two concurrent changes
// at most one lands.
func (s *CredentialService) SetPasswordIfDue(ctx context.Context, user *domain.User, newPassword string, interval time.Duration) error {
	now := s.now()
	if !user.PasswordChangeDue(now, interval) {
		return domain.ErrPasswordChangeRateLimited
	}

	hash, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	updated, err := s.userRepo.UpdatePasswordIfDue(ctx, user.ID, hash, now, now.Add(-interval))
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrPasswordChangeRateLimited
	}

	user.PasswordHash = hash
	user.LastPasswordChange = &now
	return nil
}
