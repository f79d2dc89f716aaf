package mocks

import (
	"context"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// MockProfileService implements domain.ProfileService interface for testing
type MockProfileService struct {
	GetFunc    func(ctx context.Context, userID uint) (*domain.Profile, error)
	UpdateFunc func(ctx context.Context, userID uint, update domain.ProfileUpdate) (*domain.Profile, error)
}

// NewMockProfileService creates a new MockProfileService with default behaviors
func NewMockProfileService() *MockProfileService {
	return &MockProfileService{}
}

// Get returns an empty profile
func (m *MockProfileService) Get(ctx context.Context, userID uint) (*domain.Profile, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return &domain.Profile{UserID: userID}, nil
}

// Update applies the update to an empty profile
func (m *MockProfileService) Update(ctx context.Context, userID uint, update domain.ProfileUpdate) (*domain.Profile, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, update)
	}
	return &domain.Profile{
		UserID:   userID,
		Age:      update.Age,
		Gender:   update.Gender,
		HeightCM: update.HeightCM,
		WeightKG: update.WeightKG,
		Goal:     update.Goal,
	}, nil
}

// Compile-time interface compliance verification
var _ domain.ProfileService = (*MockProfileService)(nil)
