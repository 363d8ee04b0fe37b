package entity

import (
	"time"

	"github.com/google/uuid"
)

// TrustedDevice records a device a user has explicitly confirmed. A device
// is trusted while RevokedAt is nil and the trust window has not expired
// (a nil TrustExpiresAt never expires).
type TrustedDevice struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_fingerprint"`

	DeviceFingerprint string `gorm:"type:varchar(255);not null;uniqueIndex:idx_user_fingerprint"`
	DeviceName        string `gorm:"type:varchar(100)"`
	DeviceType        string `gorm:"type:varchar(50)"`
	Browser           string `gorm:"type:varchar(100)"`
	OS                string `gorm:"type:varchar(100)"`

	LastIP      string `gorm:"type:varchar(45)"`
	LastCountry string `gorm:"type:varchar(100)"`
	LastCity    string `gorm:"type:varchar(100)"`

	FirstSeenAt    time.Time
	LastUsedAt     time.Time `gorm:"index"`
	TrustedAt      time.Time
	TrustExpiresAt *time.Time

	RevokedAt        *time.Time
	RevocationReason *string `gorm:"type:varchar(50)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TrustedNow reports whether the trust record is live at the given instant.
func (d *TrustedDevice) TrustedNow(now time.Time) bool {
	if d.RevokedAt != nil {
		return false
	}
	return d.TrustExpiresAt == nil || d.TrustExpiresAt.After(now)
}
