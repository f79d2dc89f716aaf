package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID                 uint       `gorm:"primaryKey"`
	Email              string     `gorm:"uniqueIndex;size:255;not null"`
	Username           string     `gorm:"size:150"`
	Phone              string     `gorm:"size:32"`
	PasswordHash       string     `gorm:"column:password;not null"`
	IsActive           bool
	LastPasswordChange *time.Time `gorm:"column:last_password_change"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepositoryImpl {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	if err := dbFrom(ctx, r.db).Create(dbUser).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	user.ID = dbUser.ID
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var dbUser DBUser
	err := dbFrom(ctx, r.db).Where("email = ?", email).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	var dbUser DBUser
	err := dbFrom(ctx, r.db).Where("id = ?", id).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// UpdatePassword implements domain.UserRepository
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, userID uint, hash string, changedAt time.Time) error {
	res := dbFrom(ctx, r.db).Model(&DBUser{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password":             hash,
			"last_password_change": changedAt.UTC(),
			"updated_at":           changedAt.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// UpdatePasswordIfDue implements domain.UserRepository. The interval check
// and the write are one statement, so concurrent changes cannot both pass.
func (r *UserRepositoryImpl) UpdatePasswordIfDue(ctx context.Context, userID uint, hash string, changedAt, notAfter time.Time) (bool, error) {
	res := dbFrom(ctx, r.db).Model(&DBUser{}).
		Where("id = ?", userID).
		Where("last_password_change IS NULL OR last_password_change <= ?", notAfter.UTC()).
		Updates(map[string]interface{}{
			"password":             hash,
			"last_password_change": changedAt.UTC(),
			"updated_at":           changedAt.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	return &DBUser{
		ID:                 user.ID,
		Email:              user.Email,
		Username:           user.Username,
		Phone:              user.Phone,
		PasswordHash:       user.PasswordHash,
		IsActive:           user.IsActive,
		LastPasswordChange: user.LastPasswordChange,
	}
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	return &domain.User{
		ID:                 dbUser.ID,
		Email:              dbUser.Email,
		Username:           dbUser.Username,
		Phone:              dbUser.Phone,
		PasswordHash:       dbUser.PasswordHash,
		IsActive:           dbUser.IsActive,
		LastPasswordChange: dbUser.LastPasswordChange,
		CreatedAt:          dbUser.CreatedAt,
		UpdatedAt:          dbUser.UpdatedAt,
	}
}

// isUniqueViolation matches translated and raw driver errors
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
