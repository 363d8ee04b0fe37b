package repository

import (
	"context"
	"errors"
	"time"

	"loginsentry/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TrustedDeviceRepository interface {
	FindByUserAndFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (*entity.TrustedDevice, error)
	Create(ctx context.Context, device *entity.TrustedDevice) error
	Save(ctx context.Context, device *entity.TrustedDevice) error
	ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]entity.TrustedDevice, error)
	Revoke(ctx context.Context, userID uuid.UUID, fingerprint string, reason string, now time.Time) error
}

type trustedDeviceRepository struct {
	db *gorm.DB
}

func NewTrustedDeviceRepository(db *gorm.DB) TrustedDeviceRepository {
	return &trustedDeviceRepository{db: db}
}

func (r *trustedDeviceRepository) FindByUserAndFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (*entity.TrustedDevice, error) {
	var device entity.TrustedDevice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND device_fingerprint = ?", userID, fingerprint).
		First(&device).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *trustedDeviceRepository) Create(ctx context.Context, device *entity.TrustedDevice) error {
	return r.db.WithContext(ctx).Create(device).Error
}

func (r *trustedDeviceRepository) Save(ctx context.Context, device *entity.TrustedDevice) error {
	return r.db.WithContext(ctx).Save(device).Error
}

func (r *trustedDeviceRepository) ListActive(ctx context.Context, userID uuid.UUID, now time.Time) ([]entity.TrustedDevice, error) {
	var devices []entity.TrustedDevice
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND revoked_at IS NULL AND (trust_expires_at IS NULL OR trust_expires_at > ?)",
			userID, now).
		Order("last_used_at DESC").
		Find(&devices).Error
	return devices, err
}

func (r *trustedDeviceRepository) Revoke(ctx context.Context, userID uuid.UUID, fingerprint string, reason string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.TrustedDevice{}).
		Where("user_id = ? AND device_fingerprint = ? AND revoked_at IS NULL", userID, fingerprint).
		Updates(map[string]any{
			"revoked_at":        &now,
			"revocation_reason": &reason,
		}).Error
}
