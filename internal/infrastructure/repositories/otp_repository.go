package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"gorm.io/gorm"
)

// DBOTP is the persisted one-time passcode. Rows are never deleted; a
// consumed code keeps used=true.
type DBOTP struct {
	ID        uint       `gorm:"primaryKey"`
	Subject   string     `gorm:"size:255;not null;index:idx_otps_lookup,priority:1"`
	Code      string     `gorm:"size:10;not null;index:idx_otps_lookup,priority:2"`
	Purpose   string     `gorm:"size:32;not null"`
	Used      bool       `gorm:"not null;default:false;index:idx_otps_lookup,priority:3"`
	UsedAt    *time.Time
	CreatedAt time.Time
	ExpiresAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DBOTP) TableName() string {
	return "otps"
}

// OTPRepositoryImpl implements domain.OTPRepository using GORM
type OTPRepositoryImpl struct {
	db *gorm.DB
}

// NewOTPRepository creates a new OTP repository
func NewOTPRepository(db *gorm.DB) *OTPRepositoryImpl {
	return &OTPRepositoryImpl{db: db}
}

// Create implements domain.OTPRepository
func (r *OTPRepositoryImpl) Create(ctx context.Context, otp *domain.OTP) error {
	row := &DBOTP{
		Subject:   otp.Subject,
		Code:      otp.Code,
		Purpose:   string(otp.Purpose),
		Used:      otp.Used,
		CreatedAt: otp.CreatedAt.UTC(),
		ExpiresAt: otp.ExpiresAt.UTC(),
	}
	if err := dbFrom(ctx, r.db).Create(row).Error; err != nil {
		return err
	}
	otp.ID = row.ID
	return nil
}

// FindLatestUnused implements domain.OTPRepository
func (r *OTPRepositoryImpl) FindLatestUnused(ctx context.Context, subject, code string) (*domain.OTP, error) {
	var row DBOTP
	err := dbFrom(ctx, r.db).
		Where("subject = ? AND code = ? AND used = ?", subject, code, false).
		Order("id DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOTPInvalid
		}
		return nil, err
	}
	return rowToOTP(&row), nil
}

// MarkUsed implements domain.OTPRepository as a compare-and-swap on used
func (r *OTPRepositoryImpl) MarkUsed(ctx context.Context, id uint, usedAt time.Time) (bool, error) {
	res := dbFrom(ctx, r.db).Model(&DBOTP{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{"used": true, "used_at": usedAt.UTC()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// InvalidateUnused implements domain.OTPRepository
func (r *OTPRepositoryImpl) InvalidateUnused(ctx context.Context, subject string, usedAt time.Time) (int64, error) {
	res := dbFrom(ctx, r.db).Model(&DBOTP{}).
		Where("subject = ? AND used = ?", subject, false).
		Updates(map[string]interface{}{"used": true, "used_at": usedAt.UTC()})
	return res.RowsAffected, res.Error
}

func rowToOTP(row *DBOTP) *domain.OTP {
	return &domain.OTP{
		ID:        row.ID,
		Subject:   row.Subject,
		Code:      row.Code,
		Purpose:   domain.OTPPurpose(row.Purpose),
		CreatedAt: row.CreatedAt,
		ExpiresAt: row.ExpiresAt,
		Used:      row.Used,
		UsedAt:    row.UsedAt,
	}
}
