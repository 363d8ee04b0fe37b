package repository

import (
	"context"
	"time"

	"loginsentry/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	RevokeAllByUser(ctx context.Context, userID uuid.UUID, reason string, now time.Time) error
	CountActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	CleanupExpired(ctx context.Context, now time.Time) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) RevokeAllByUser(ctx context.Context, userID uuid.UUID, reason string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]any{
			"revoked_at":        &now,
			"revocation_reason": &reason,
		}).Error
}

func (r *sessionRepository) CountActiveByUser(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, now).
		Count(&count).Error
	return count, err
}

func (r *sessionRepository) CleanupExpired(ctx context.Context, now time.Time) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&entity.Session{}).
		Error
}
