package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// ProfileServiceImpl implements domain.ProfileService
type ProfileServiceImpl struct {
	repo     domain.ProfileRepository
	validate *validator.Validate
}

// NewProfileService creates a new profile service
func NewProfileService(repo domain.ProfileRepository) *ProfileServiceImpl {
	return &ProfileServiceImpl{repo: repo, validate: validator.New()}
}

// Get implements domain.ProfileService. A user without a profile gets an
// empty one.
func (s *ProfileServiceImpl) Get(ctx context.Context, userID uint) (*domain.Profile, error) {
	return s.repo.FindOrCreate(ctx, userID)
}

// Update implements domain.ProfileService
func (s *ProfileServiceImpl) Update(ctx context.Context, userID uint, update domain.ProfileUpdate) (*domain.Profile, error) {
	if err := s.check(update); err != nil {
		return nil, err
	}

	profile, err := s.repo.FindOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if update.Age != nil {
		profile.Age = update.Age
	}
	if update.Gender != nil {
		profile.Gender = update.Gender
	}
	if update.HeightCM != nil {
		profile.HeightCM = update.HeightCM
	}
	if update.WeightKG != nil {
		profile.WeightKG = update.WeightKG
	}
	if update.Goal != nil {
		profile.Goal = update.Goal
	}

	if err := s.repo.Save(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return profile, nil
}

func (s *ProfileServiceImpl) check(update domain.ProfileUpdate) error {
	verr := &domain.ValidationError{}
	if update.Age != nil && s.validate.Var(*update.Age, "gte=1,lte=130") != nil {
		verr.Add("age", "must be between 1 and 130")
	}
	if update.Gender != nil && s.validate.Var(*update.Gender, "oneof=M F O") != nil {
		verr.Add("gender", "must be one of M, F, O")
	}
	if update.HeightCM != nil && s.validate.Var(*update.HeightCM, "gt=0,lte=300") != nil {
		verr.Add("height_cm", "must be greater than 0 and at most 300")
	}
	if update.WeightKG != nil && s.validate.Var(*update.WeightKG, "gt=0,lte=700") != nil {
		verr.Add("weight_kg", "must be greater than 0 and at most 700")
	}
	if update.Goal != nil && s.validate.Var(*update.Goal, "oneof=lose_weight gain_muscle stay_fit") != nil {
		verr.Add("goal", "must be one of lose_weight, gain_muscle, stay_fit")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}
