package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type EventCategory string

type EventSeverity string

const (
	CategorySecurity EventCategory = "security"

	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

const (
	EventLoginDenied = "login_denied"
	EventIPBlocked   = "ip_blocked"
)

// SecurityEvent is an append-only audit row consumed by downstream
// alerting. The engine emits one on every denied login.
type SecurityEvent struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`

	Category EventCategory `gorm:"type:varchar(20);not null"`
	Severity EventSeverity `gorm:"type:varchar(20);index;not null"`
	Action   string        `gorm:"type:varchar(50);not null"`

	IPAddress *string `gorm:"type:varchar(45)"`

	Metadata datatypes.JSON

	CreatedAt time.Time `gorm:"index"`
}
