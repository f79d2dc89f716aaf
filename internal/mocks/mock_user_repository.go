package mocks

import (
	"context"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	CreateFunc              func(ctx context.Context, user *domain.User) error
	FindByEmailFunc         func(ctx context.Context, email string) (*domain.User, error)
	FindByIDFunc            func(ctx context.Context, id uint) (*domain.User, error)
	UpdatePasswordFunc      func(ctx context.Context, userID uint, hash string, changedAt time.Time) error
	UpdatePasswordIfDueFunc func(ctx context.Context, userID uint, hash string, changedAt, notAfter time.Time) (bool, error)
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.ID = 1
	return nil
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

// UpdatePassword stores a new hash
func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID uint, hash string, changedAt time.Time) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, userID, hash, changedAt)
	}
	return nil
}

// UpdatePasswordIfDue stores a new hash when the change is allowed
func (m *MockUserRepository) UpdatePasswordIfDue(ctx context.Context, userID uint, hash string, changedAt, notAfter time.Time) (bool, error) {
	if m.UpdatePasswordIfDueFunc != nil {
		return m.UpdatePasswordIfDueFunc(ctx, userID, hash, changedAt, notAfter)
	}
	return true, nil
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
