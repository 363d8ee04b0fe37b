package service

import (
	"context"
	"time"
)

// EphemeralStore is a TTL-keyed value store for pending confirmations,
// reset tokens, and the IP blocklist. GetDel must be atomic: two
// concurrent calls for the same key may see at most one hit.
type EphemeralStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	GetDel(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

// Location is a coarse IP geolocation result.
type Location struct {
	Country string
	City    string
}

// GeoProvider resolves an IP address to a location. A nil result with a
// nil error means the provider could not place the IP.
type GeoProvider interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// DeviceProfile is display metadata derived from a User-Agent string.
type DeviceProfile struct {
	Name    string
	Type    string
	Browser string
	OS      string
}

type DeviceProfiler interface {
	Profile(userAgent string) DeviceProfile
}

// LoginConfirmationEmail carries everything the confirmation template
// needs. ConfirmURL and DenyURL embed the one-shot token.
type LoginConfirmationEmail struct {
	DeviceName string
	IPAddress  string
	Location   string
	ConfirmURL string
	DenyURL    string
}

type Notifier interface {
	SendLoginConfirmation(ctx context.Context, email string, msg LoginConfirmationEmail) error
	SendPasswordResetRequired(ctx context.Context, email string, resetURL string) error
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
