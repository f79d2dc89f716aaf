package repositories

import (
	"context"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"gorm.io/gorm"
)

// DBProfile stores the fitness profile, one row per user
type DBProfile struct {
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	Age       *int
	Gender    *string  `gorm:"size:1"`
	HeightCM  *float64 `gorm:"column:height_cm"`
	WeightKG  *float64 `gorm:"column:weight_kg"`
	Goal      *string  `gorm:"size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
	User      DBUser `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (DBProfile) TableName() string {
	return "profiles"
}

// ProfileRepositoryImpl implements domain.ProfileRepository using GORM
type ProfileRepositoryImpl struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) *ProfileRepositoryImpl {
	return &ProfileRepositoryImpl{db: db}
}

// FindOrCreate implements domain.ProfileRepository
func (r *ProfileRepositoryImpl) FindOrCreate(ctx context.Context, userID uint) (*domain.Profile, error) {
	var row DBProfile
	err := dbFrom(ctx, r.db).
		Omit("User").
		Where(DBProfile{UserID: userID}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return rowToProfile(&row), nil
}

// Save implements domain.ProfileRepository
func (r *ProfileRepositoryImpl) Save(ctx context.Context, profile *domain.Profile) error {
	row := DBProfile{
		UserID:    profile.UserID,
		Age:       profile.Age,
		Gender:    profile.Gender,
		HeightCM:  profile.HeightCM,
		WeightKG:  profile.WeightKG,
		Goal:      profile.Goal,
		CreatedAt: profile.CreatedAt,
	}
	if err := dbFrom(ctx, r.db).Omit("User").Save(&row).Error; err != nil {
		return err
	}
	profile.UpdatedAt = row.UpdatedAt
	return nil
}

func rowToProfile(row *DBProfile) *domain.Profile {
	return &domain.Profile{
		UserID:    row.UserID,
		Age:       row.Age,
		Gender:    row.Gender,
		HeightCM:  row.HeightCM,
		WeightKG:  row.WeightKG,
		Goal:      row.Goal,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
