package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"loginsentry/internal/entity"

	"github.com/google/uuid"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type fakeAttemptRepo struct {
	mu       sync.Mutex
	attempts []entity.LoginAttempt
	failErr  error
}

func (r *fakeAttemptRepo) Create(_ context.Context, attempt *entity.LoginAttempt) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	r.attempts = append(r.attempts, *attempt)
	return nil
}

func (r *fakeAttemptRepo) seed(attempt entity.LoginAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	r.attempts = append(r.attempts, attempt)
}

func isFailure(status entity.AttemptStatus) bool {
	return status == entity.AttemptFailedPassword || status == entity.AttemptFailedMFA
}

func (r *fakeAttemptRepo) CountFailuresByEmail(_ context.Context, email string, since time.Time) (int64, error) {
	if r.failErr != nil {
		return 0, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, attempt := range r.attempts {
		if attempt.Email == email && isFailure(attempt.Status) && !attempt.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeAttemptRepo) CountFailuresByIP(_ context.Context, ip string, since time.Time) (int64, error) {
	if r.failErr != nil {
		return 0, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, attempt := range r.attempts {
		if attempt.IPAddress == ip && isFailure(attempt.Status) && !attempt.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeAttemptRepo) HasSuccessFromIP(_ context.Context, userID uuid.UUID, ip string, since time.Time) (bool, error) {
	if r.failErr != nil {
		return false, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, attempt := range r.attempts {
		if attempt.UserID != nil && *attempt.UserID == userID &&
			attempt.IPAddress == ip &&
			attempt.Status == entity.AttemptSuccess &&
			!attempt.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAttemptRepo) RecentSuccessesFromOtherIPs(_ context.Context, userID uuid.UUID, excludeIP string, since time.Time) ([]entity.LoginAttempt, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.LoginAttempt
	for _, attempt := range r.attempts {
		if attempt.UserID != nil && *attempt.UserID == userID &&
			attempt.IPAddress != excludeIP &&
			attempt.Status == entity.AttemptSuccess &&
			!attempt.CreatedAt.Before(since) {
			result = append(result, attempt)
		}
	}
	return result, nil
}

func (r *fakeAttemptRepo) HasSuccessInHourWindow(_ context.Context, userID uuid.UUID, startHour, endHour int, since time.Time) (bool, error) {
	if r.failErr != nil {
		return false, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, attempt := range r.attempts {
		hour := attempt.CreatedAt.Hour()
		if attempt.UserID != nil && *attempt.UserID == userID &&
			attempt.Status == entity.AttemptSuccess &&
			hour >= startHour && hour < endHour &&
			!attempt.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAttemptRepo) ListRecentByUser(_ context.Context, userID uuid.UUID, _ int) ([]entity.LoginAttempt, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.LoginAttempt
	for _, attempt := range r.attempts {
		if attempt.UserID != nil && *attempt.UserID == userID {
			result = append(result, attempt)
		}
	}
	return result, nil
}

func (r *fakeAttemptRepo) byStatus(status entity.AttemptStatus) []entity.LoginAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.LoginAttempt
	for _, attempt := range r.attempts {
		if attempt.Status == status {
			result = append(result, attempt)
		}
	}
	return result
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*entity.TrustedDevice
	failErr error
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: make(map[string]*entity.TrustedDevice)}
}

func deviceKey(userID uuid.UUID, fingerprint string) string {
	return userID.String() + "/" + fingerprint
}

func (r *fakeDeviceRepo) FindByUserAndFingerprint(_ context.Context, userID uuid.UUID, fingerprint string) (*entity.TrustedDevice, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[deviceKey(userID, fingerprint)]
	if !ok {
		return nil, nil
	}
	copied := *device
	return &copied, nil
}

func (r *fakeDeviceRepo) Create(_ context.Context, device *entity.TrustedDevice) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	copied := *device
	r.devices[deviceKey(device.UserID, device.DeviceFingerprint)] = &copied
	return nil
}

func (r *fakeDeviceRepo) Save(_ context.Context, device *entity.TrustedDevice) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *device
	r.devices[deviceKey(device.UserID, device.DeviceFingerprint)] = &copied
	return nil
}

func (r *fakeDeviceRepo) ListActive(_ context.Context, userID uuid.UUID, now time.Time) ([]entity.TrustedDevice, error) {
	if r.failErr != nil {
		return nil, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.TrustedDevice
	for _, device := range r.devices {
		if device.UserID == userID && device.TrustedNow(now) {
			result = append(result, *device)
		}
	}
	return result, nil
}

func (r *fakeDeviceRepo) Revoke(_ context.Context, userID uuid.UUID, fingerprint string, reason string, now time.Time) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	device, ok := r.devices[deviceKey(userID, fingerprint)]
	if !ok || device.RevokedAt != nil {
		return nil
	}
	device.RevokedAt = &now
	device.RevocationReason = &reason
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []entity.Session
	failErr  error
}

func (r *fakeSessionRepo) seed(session entity.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	r.sessions = append(r.sessions, session)
}

func (r *fakeSessionRepo) RevokeAllByUser(_ context.Context, userID uuid.UUID, reason string, now time.Time) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.sessions {
		if r.sessions[i].UserID == userID && r.sessions[i].RevokedAt == nil {
			r.sessions[i].RevokedAt = &now
			r.sessions[i].RevocationReason = &reason
		}
	}
	return nil
}

func (r *fakeSessionRepo) CountActiveByUser(_ context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	if r.failErr != nil {
		return 0, r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil && session.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (r *fakeSessionRepo) CleanupExpired(_ context.Context, now time.Time) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.sessions[:0]
	for _, session := range r.sessions {
		if session.ExpiresAt.After(now) {
			kept = append(kept, session)
		}
	}
	r.sessions = kept
	return nil
}

type fakeEventRepo struct {
	mu      sync.Mutex
	events  []entity.SecurityEvent
	failErr error
}

func (r *fakeEventRepo) Append(_ context.Context, event *entity.SecurityEvent) error {
	if r.failErr != nil {
		return r.failErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeEventRepo) ListRecent(context.Context, int) ([]entity.SecurityEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.SecurityEvent(nil), r.events...), nil
}

type storedValue struct {
	value     []byte
	expiresAt time.Time
	ttl       time.Duration
}

// fakeEphemeralStore honors TTLs against the injected clock and keeps
// GetDel atomic under a single mutex, matching the store contract.
type fakeEphemeralStore struct {
	mu      sync.Mutex
	values  map[string]storedValue
	clock   Clock
	failErr error
}

func newFakeEphemeralStore(clock Clock) *fakeEphemeralStore {
	return &fakeEphemeralStore{values: make(map[string]storedValue), clock: clock}
}

func (s *fakeEphemeralStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = storedValue{
		value:     value,
		expiresAt: s.clock.Now().Add(ttl),
		ttl:       ttl,
	}
	return nil
}

func (s *fakeEphemeralStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.failErr != nil {
		return nil, false, s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.values[key]
	if !ok || !stored.expiresAt.After(s.clock.Now()) {
		return nil, false, nil
	}
	return stored.value, true, nil
}

func (s *fakeEphemeralStore) GetDel(_ context.Context, key string) ([]byte, bool, error) {
	if s.failErr != nil {
		return nil, false, s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.values[key]
	if !ok || !stored.expiresAt.After(s.clock.Now()) {
		return nil, false, nil
	}
	delete(s.values, key)
	return stored.value, true, nil
}

func (s *fakeEphemeralStore) Delete(_ context.Context, key string) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *fakeEphemeralStore) keysWithPrefix(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for key := range s.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *fakeEphemeralStore) ttlOf(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.values[key]
	return stored.ttl, ok
}

type fakeGeo struct {
	locations map[string]*Location
	failErr   error
}

func (g *fakeGeo) Lookup(_ context.Context, ip string) (*Location, error) {
	if g.failErr != nil {
		return nil, g.failErr
	}
	if g.locations == nil {
		return nil, nil
	}
	return g.locations[ip], nil
}

type sentConfirmation struct {
	Email string
	Msg   LoginConfirmationEmail
}

type sentReset struct {
	Email    string
	ResetURL string
}

type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []sentConfirmation
	resets        []sentReset
	confirmErr    error
	resetErr      error
}

func (n *fakeNotifier) SendLoginConfirmation(_ context.Context, email string, msg LoginConfirmationEmail) error {
	if n.confirmErr != nil {
		return n.confirmErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, sentConfirmation{Email: email, Msg: msg})
	return nil
}

func (n *fakeNotifier) SendPasswordResetRequired(_ context.Context, email string, resetURL string) error {
	if n.resetErr != nil {
		return n.resetErr
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, sentReset{Email: email, ResetURL: resetURL})
	return nil
}

// stubAnalyzer pins the assessment so engine policy can be tested apart
// from scoring.
type stubAnalyzer struct {
	assessment  *RiskAssessment
	newLocation bool
	lastInput   AssessInput
}

func (a *stubAnalyzer) Assess(_ context.Context, input AssessInput) (*RiskAssessment, error) {
	a.lastInput = input
	assessment := *a.assessment
	assessment.IsNewDevice = !input.TrustedDevice
	assessment.IsNewLocation = input.NewLocation
	return &assessment, nil
}

func (a *stubAnalyzer) IsNewLocation(context.Context, uuid.UUID, string) (bool, error) {
	return a.newLocation, nil
}
