package entity

import (
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	AttemptSuccess        AttemptStatus = "success"
	AttemptFailedPassword AttemptStatus = "failed_password"
	AttemptFailedMFA      AttemptStatus = "failed_mfa"
	AttemptBlocked        AttemptStatus = "blocked"

	// AttemptPending marks a challenged login awaiting confirmation. A
	// pending row counts as neither a success nor a failure in the
	// history queries; the resolution appends its own row.
	AttemptPending AttemptStatus = "pending"
)

// LoginAttempt is an append-only record of a login outcome. Rows are never
// updated; the risk analyzer treats this table as its only source of
// historical signal data.
type LoginAttempt struct {
	ID     uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID *uuid.UUID `gorm:"type:uuid;index"`

	Email             string        `gorm:"type:varchar(255);index;not null"`
	IPAddress         string        `gorm:"type:varchar(45);index"`
	DeviceFingerprint string        `gorm:"type:varchar(255)"`
	UserAgent         *string       `gorm:"type:text"`
	Status            AttemptStatus `gorm:"type:varchar(20);index;not null"`

	RiskScore     int  `gorm:"default:0"`
	IsNewDevice   bool `gorm:"default:false"`
	IsNewLocation bool `gorm:"default:false"`
	IsSuspicious  bool `gorm:"default:false"`

	ConfirmationToken *string `gorm:"type:varchar(128)"`
	ConfirmedAt       *time.Time
	DeniedAt          *time.Time

	CreatedAt time.Time `gorm:"index"`
}
