package repository

import (
	"context"
	"time"

	"loginsentry/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LoginAttemptRepository interface {
	Create(ctx context.Context, attempt *entity.LoginAttempt) error
	CountFailuresByEmail(ctx context.Context, email string, since time.Time) (int64, error)
	CountFailuresByIP(ctx context.Context, ip string, since time.Time) (int64, error)
	HasSuccessFromIP(ctx context.Context, userID uuid.UUID, ip string, since time.Time) (bool, error)
	RecentSuccessesFromOtherIPs(ctx context.Context, userID uuid.UUID, excludeIP string, since time.Time) ([]entity.LoginAttempt, error)
	HasSuccessInHourWindow(ctx context.Context, userID uuid.UUID, startHour, endHour int, since time.Time) (bool, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.LoginAttempt, error)
}

type loginAttemptRepository struct {
	db *gorm.DB
}

func NewLoginAttemptRepository(db *gorm.DB) LoginAttemptRepository {
	return &loginAttemptRepository{db: db}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *entity.LoginAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *loginAttemptRepository) CountFailuresByEmail(ctx context.Context, email string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.LoginAttempt{}).
		Where("email = ? AND status IN ? AND created_at >= ?",
			email,
			[]entity.AttemptStatus{entity.AttemptFailedPassword, entity.AttemptFailedMFA},
			since).
		Count(&count).Error
	return count, err
}

func (r *loginAttemptRepository) CountFailuresByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.LoginAttempt{}).
		Where("ip_address = ? AND status IN ? AND created_at >= ?",
			ip,
			[]entity.AttemptStatus{entity.AttemptFailedPassword, entity.AttemptFailedMFA},
			since).
		Count(&count).Error
	return count, err
}

func (r *loginAttemptRepository) HasSuccessFromIP(ctx context.Context, userID uuid.UUID, ip string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.LoginAttempt{}).
		Where("user_id = ? AND ip_address = ? AND status = ? AND created_at >= ?",
			userID, ip, entity.AttemptSuccess, since).
		Count(&count).Error
	return count > 0, err
}

func (r *loginAttemptRepository) RecentSuccessesFromOtherIPs(ctx context.Context, userID uuid.UUID, excludeIP string, since time.Time) ([]entity.LoginAttempt, error) {
	var attempts []entity.LoginAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND ip_address <> ? AND status = ? AND created_at >= ?",
			userID, excludeIP, entity.AttemptSuccess, since).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *loginAttemptRepository) HasSuccessInHourWindow(ctx context.Context, userID uuid.UUID, startHour, endHour int, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.LoginAttempt{}).
		Where("user_id = ? AND status = ? AND created_at >= ? AND EXTRACT(HOUR FROM created_at) >= ? AND EXTRACT(HOUR FROM created_at) < ?",
			userID, entity.AttemptSuccess, since, startHour, endHour).
		Count(&count).Error
	return count > 0, err
}

func (r *loginAttemptRepository) ListRecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]entity.LoginAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var attempts []entity.LoginAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}
