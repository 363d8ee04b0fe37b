package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	RevocationReasonManual        = "manual"
	RevocationReasonSecurityEvent = "security_event"
)

// Session tracks an issued refresh session. This service does not mint
// sessions; it only reads and bulk-revokes them when a challenged login
// is denied.
type Session struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index"`

	TokenHash string `gorm:"type:text;not null;index"`

	DeviceName string  `gorm:"type:varchar(100)"`
	DeviceID   string  `gorm:"type:varchar(255)"`
	IPAddress  *string `gorm:"type:varchar(45)"`
	UserAgent  *string `gorm:"type:text"`

	ExpiresAt        time.Time
	RevokedAt        *time.Time
	RevocationReason *string `gorm:"type:varchar(50)"`

	CreatedAt time.Time
}
