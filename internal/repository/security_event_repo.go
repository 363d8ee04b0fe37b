package repository

import (
	"context"

	"loginsentry/internal/entity"

	"gorm.io/gorm"
)

type SecurityEventRepository interface {
	Append(ctx context.Context, event *entity.SecurityEvent) error
	ListRecent(ctx context.Context, limit int) ([]entity.SecurityEvent, error)
}

type securityEventRepository struct {
	db *gorm.DB
}

func NewSecurityEventRepository(db *gorm.DB) SecurityEventRepository {
	return &securityEventRepository{db: db}
}

func (r *securityEventRepository) Append(ctx context.Context, event *entity.SecurityEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *securityEventRepository) ListRecent(ctx context.Context, limit int) ([]entity.SecurityEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var events []entity.SecurityEvent
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
