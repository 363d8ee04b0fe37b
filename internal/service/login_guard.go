package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"loginsentry/internal/entity"
	"loginsentry/internal/repository"
	"loginsentry/internal/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	confirmKeyPrefix = "login:confirm:"
	resetKeyPrefix   = "password:reset:"
)

type GuardConfig struct {
	ConfirmThreshold   int
	AutoBlockThreshold int
	ConfirmTokenTTL    time.Duration
	ResetTokenTTL      time.Duration
	DeviceTrustTTL     time.Duration
	AppBaseURL         string
}

func (c GuardConfig) confirmThreshold() int {
	if c.ConfirmThreshold > 0 {
		return c.ConfirmThreshold
	}
	return 60
}

func (c GuardConfig) autoBlockThreshold() int {
	if c.AutoBlockThreshold > 0 {
		return c.AutoBlockThreshold
	}
	return 90
}

func (c GuardConfig) confirmTokenTTL() time.Duration {
	if c.ConfirmTokenTTL > 0 {
		return c.ConfirmTokenTTL
	}
	return time.Hour
}

func (c GuardConfig) resetTokenTTL() time.Duration {
	if c.ResetTokenTTL > 0 {
		return c.ResetTokenTTL
	}
	return time.Hour
}

func (c GuardConfig) deviceTrustTTL() time.Duration {
	if c.DeviceTrustTTL > 0 {
		return c.DeviceTrustTTL
	}
	return 90 * 24 * time.Hour
}

type DecisionStatus string

const (
	DecisionAllowed             DecisionStatus = "allowed"
	DecisionPendingConfirmation DecisionStatus = "pending_confirmation"
	DecisionBlocked             DecisionStatus = "blocked"
)

type EvaluateInput struct {
	UserID            uuid.UUID
	Email             string
	IPAddress         string
	DeviceFingerprint string
	UserAgent         string
}

// LoginDecision is the engine's verdict. The confirmation token is never
// part of the decision: it only travels out of band in the email.
type LoginDecision struct {
	Status     DecisionStatus
	RiskScore  int
	RiskLevel  RiskLevel
	IsNewLogin bool
	Assessment *RiskAssessment
}

// PendingConfirmation is the ephemeral record behind a challenged login,
// keyed by the confirmation token until redeemed or expired.
type PendingConfirmation struct {
	UserID            uuid.UUID `json:"user_id"`
	Email             string    `json:"email"`
	IPAddress         string    `json:"ip_address"`
	DeviceFingerprint string    `json:"device_fingerprint"`
	UserAgent         string    `json:"user_agent"`
	IssuedAt          time.Time `json:"issued_at"`
}

// ResetTokenPayload marks a forced reset issued after a denied login.
type ResetTokenPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Forced bool      `json:"forced"`
}

// ConfirmResult is the session context handed back to the caller, which is
// responsible for establishing the real session.
type ConfirmResult struct {
	UserID            uuid.UUID
	Email             string
	IPAddress         string
	DeviceFingerprint string
	UserAgent         string
}

type DenyStep string

const (
	DenyStepRecordAttempt  DenyStep = "record_attempt"
	DenyStepRevokeSessions DenyStep = "revoke_sessions"
	DenyStepIssueReset     DenyStep = "issue_reset_token"
	DenyStepNotify         DenyStep = "notify"
	DenyStepAudit          DenyStep = "audit"
)

// DenyResult reports how far the deny cascade got. On error the completed
// steps tell the caller which side effects already committed.
type DenyResult struct {
	UserID         uuid.UUID
	CompletedSteps []DenyStep
}

// Analyzer is the scoring dependency of the decision engine.
type Analyzer interface {
	Assess(ctx context.Context, input AssessInput) (*RiskAssessment, error)
	IsNewLocation(ctx context.Context, userID uuid.UUID, ip string) (bool, error)
}

// LoginGuard orchestrates risk assessment, the allow/confirm/block policy,
// the confirmation token protocol, and trusted-device lifecycle.
type LoginGuard struct {
	analyzer Analyzer
	attempts repository.LoginAttemptRepository
	devices  repository.TrustedDeviceRepository
	sessions repository.SessionRepository
	events   repository.SecurityEventRepository
	tokens   EphemeralStore
	notifier Notifier
	profiler DeviceProfiler
	geo      GeoProvider
	clock    Clock
	config   GuardConfig
}

func NewLoginGuard(
	analyzer Analyzer,
	attempts repository.LoginAttemptRepository,
	devices repository.TrustedDeviceRepository,
	sessions repository.SessionRepository,
	events repository.SecurityEventRepository,
	tokens EphemeralStore,
	notifier Notifier,
	profiler DeviceProfiler,
	geo GeoProvider,
	clock Clock,
	config GuardConfig,
) *LoginGuard {
	return &LoginGuard{
		analyzer: analyzer,
		attempts: attempts,
		devices:  devices,
		sessions: sessions,
		events:   events,
		tokens:   tokens,
		notifier: notifier,
		profiler: profiler,
		geo:      geo,
		clock:    clock,
		config:   config,
	}
}

// EvaluateLogin runs after the credential has been accepted and decides
// whether the resulting session may be established silently, needs
// out-of-band confirmation, or is rejected outright.
func (g *LoginGuard) EvaluateLogin(ctx context.Context, input EvaluateInput) (*LoginDecision, error) {
	input.Email = utils.NormalizeEmail(input.Email)
	if input.UserID == uuid.Nil || input.Email == "" || strings.TrimSpace(input.DeviceFingerprint) == "" {
		return nil, ErrInvalidInput
	}

	trusted, err := g.IsDeviceTrusted(ctx, input.UserID, input.DeviceFingerprint)
	if err != nil {
		return nil, err
	}
	newLocation, err := g.analyzer.IsNewLocation(ctx, input.UserID, input.IPAddress)
	if err != nil {
		return nil, err
	}

	assessment, err := g.analyzer.Assess(ctx, AssessInput{
		UserID:            input.UserID,
		Email:             input.Email,
		IPAddress:         input.IPAddress,
		DeviceFingerprint: input.DeviceFingerprint,
		UserAgent:         input.UserAgent,
		TrustedDevice:     trusted,
		NewLocation:       newLocation,
	})
	if err != nil {
		return nil, err
	}

	decision := &LoginDecision{
		RiskScore:  assessment.Score,
		RiskLevel:  assessment.Level,
		IsNewLogin: assessment.IsNewDevice || assessment.IsNewLocation,
		Assessment: assessment,
	}

	switch {
	case assessment.Score >= g.config.autoBlockThreshold():
		decision.Status = DecisionBlocked
		if err := g.recordAttempt(ctx, input, entity.AttemptBlocked, assessment.Score, assessment, true, nil); err != nil {
			return nil, err
		}
		return decision, nil

	case trusted && assessment.Score < g.config.confirmThreshold():
		decision.Status = DecisionAllowed
		if err := g.touchDevice(ctx, input); err != nil {
			return nil, err
		}
		if err := g.recordAttempt(ctx, input, entity.AttemptSuccess, assessment.Score, assessment, false, nil); err != nil {
			return nil, err
		}
		return decision, nil

	case assessment.Score >= g.config.confirmThreshold():
		decision.Status = DecisionPendingConfirmation
		token, err := g.issueConfirmation(ctx, input, assessment)
		if err != nil {
			return nil, err
		}
		if err := g.recordAttempt(ctx, input, entity.AttemptPending, assessment.Score, assessment, false, optional(token)); err != nil {
			return nil, err
		}
		return decision, nil

	default:
		decision.Status = DecisionAllowed
		if err := g.recordAttempt(ctx, input, entity.AttemptSuccess, assessment.Score, assessment, false, nil); err != nil {
			return nil, err
		}
		return decision, nil
	}
}

func (g *LoginGuard) issueConfirmation(ctx context.Context, input EvaluateInput, assessment *RiskAssessment) (string, error) {
	token, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", err
	}

	pending := PendingConfirmation{
		UserID:            input.UserID,
		Email:             input.Email,
		IPAddress:         input.IPAddress,
		DeviceFingerprint: input.DeviceFingerprint,
		UserAgent:         input.UserAgent,
		IssuedAt:          g.clock.Now(),
	}
	body, err := json.Marshal(pending)
	if err != nil {
		return "", err
	}
	if err := g.tokens.Set(ctx, confirmKeyPrefix+token, body, g.config.confirmTokenTTL()); err != nil {
		return "", err
	}

	profile := g.profiler.Profile(input.UserAgent)
	location := ""
	if loc, err := g.geo.Lookup(ctx, input.IPAddress); err == nil && loc != nil {
		location = strings.TrimSpace(strings.Trim(loc.City+", "+loc.Country, ", "))
	}

	base := strings.TrimRight(g.config.AppBaseURL, "/")
	err = g.notifier.SendLoginConfirmation(ctx, input.Email, LoginConfirmationEmail{
		DeviceName: profile.Name,
		IPAddress:  input.IPAddress,
		Location:   location,
		ConfirmURL: fmt.Sprintf("%s/auth/confirm-login?token=%s", base, token),
		DenyURL:    fmt.Sprintf("%s/auth/deny-login?token=%s", base, token),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmLogin redeems a confirmation token: the user asserted "this was
// me". Redemption is exactly-once; a consumed or expired token fails with
// no side effects.
func (g *LoginGuard) ConfirmLogin(ctx context.Context, token string) (*ConfirmResult, error) {
	pending, err := g.claimPending(ctx, token)
	if err != nil {
		return nil, err
	}

	if _, err := g.TrustDevice(ctx, pending.UserID, pending.DeviceFingerprint, pending.IPAddress, pending.UserAgent); err != nil {
		return nil, err
	}

	now := g.clock.Now()
	attempt := &entity.LoginAttempt{
		UserID:            &pending.UserID,
		Email:             pending.Email,
		IPAddress:         pending.IPAddress,
		DeviceFingerprint: pending.DeviceFingerprint,
		UserAgent:         optional(pending.UserAgent),
		Status:            entity.AttemptSuccess,
		IsNewDevice:       true,
		ConfirmationToken: optional(token),
		ConfirmedAt:       &now,
		CreatedAt:         now,
	}
	if err := g.attempts.Create(ctx, attempt); err != nil {
		return nil, err
	}

	return &ConfirmResult{
		UserID:            pending.UserID,
		Email:             pending.Email,
		IPAddress:         pending.IPAddress,
		DeviceFingerprint: pending.DeviceFingerprint,
		UserAgent:         pending.UserAgent,
	}, nil
}

// DenyLogin redeems a confirmation token as "this was not me" and runs the
// lockdown cascade in order, short-circuiting on the first failure.
func (g *LoginGuard) DenyLogin(ctx context.Context, token string) (*DenyResult, error) {
	pending, err := g.claimPending(ctx, token)
	if err != nil {
		return nil, err
	}

	result := &DenyResult{UserID: pending.UserID}
	now := g.clock.Now()

	attempt := &entity.LoginAttempt{
		UserID:            &pending.UserID,
		Email:             pending.Email,
		IPAddress:         pending.IPAddress,
		DeviceFingerprint: pending.DeviceFingerprint,
		UserAgent:         optional(pending.UserAgent),
		Status:            entity.AttemptBlocked,
		RiskScore:         100,
		IsSuspicious:      true,
		ConfirmationToken: optional(token),
		DeniedAt:          &now,
		CreatedAt:         now,
	}
	if err := g.attempts.Create(ctx, attempt); err != nil {
		return result, denyStepError(DenyStepRecordAttempt, err)
	}
	result.CompletedSteps = append(result.CompletedSteps, DenyStepRecordAttempt)

	if err := g.sessions.RevokeAllByUser(ctx, pending.UserID, entity.RevocationReasonSecurityEvent, now); err != nil {
		return result, denyStepError(DenyStepRevokeSessions, err)
	}
	result.CompletedSteps = append(result.CompletedSteps, DenyStepRevokeSessions)

	resetToken, err := g.issueResetToken(ctx, pending.UserID)
	if err != nil {
		return result, denyStepError(DenyStepIssueReset, err)
	}
	result.CompletedSteps = append(result.CompletedSteps, DenyStepIssueReset)

	base := strings.TrimRight(g.config.AppBaseURL, "/")
	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s", base, resetToken)
	if err := g.notifier.SendPasswordResetRequired(ctx, pending.Email, resetURL); err != nil {
		return result, denyStepError(DenyStepNotify, err)
	}
	result.CompletedSteps = append(result.CompletedSteps, DenyStepNotify)

	metadata, _ := json.Marshal(map[string]any{
		"ip_address":         pending.IPAddress,
		"device_fingerprint": pending.DeviceFingerprint,
	})
	event := &entity.SecurityEvent{
		UserID:    &pending.UserID,
		Category:  entity.CategorySecurity,
		Severity:  entity.SeverityCritical,
		Action:    entity.EventLoginDenied,
		IPAddress: optional(pending.IPAddress),
		Metadata:  datatypes.JSON(metadata),
		CreatedAt: now,
	}
	if err := g.events.Append(ctx, event); err != nil {
		return result, denyStepError(DenyStepAudit, err)
	}
	result.CompletedSteps = append(result.CompletedSteps, DenyStepAudit)

	return result, nil
}

// claimPending atomically consumes the pending record. Two concurrent
// redemptions of the same token see at most one hit.
func (g *LoginGuard) claimPending(ctx context.Context, token string) (*PendingConfirmation, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	body, found, err := g.tokens.GetDel(ctx, confirmKeyPrefix+token)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrInvalidOrExpiredToken
	}
	var pending PendingConfirmation
	if err := json.Unmarshal(body, &pending); err != nil {
		return nil, ErrInvalidOrExpiredToken
	}
	return &pending, nil
}

func (g *LoginGuard) issueResetToken(ctx context.Context, userID uuid.UUID) (string, error) {
	token, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(ResetTokenPayload{UserID: userID, Forced: true})
	if err != nil {
		return "", err
	}
	if err := g.tokens.Set(ctx, resetKeyPrefix+token, body, g.config.resetTokenTTL()); err != nil {
		return "", err
	}
	return token, nil
}

// TrustDevice upserts the trust record and opens a fresh trust window.
// Re-confirming an existing device resets the window; plain reuse does not
// (see touchDevice).
func (g *LoginGuard) TrustDevice(ctx context.Context, userID uuid.UUID, fingerprint, ip, userAgent string) (*entity.TrustedDevice, error) {
	profile := g.profiler.Profile(userAgent)
	country, city := g.lookupLocation(ctx, ip)
	now := g.clock.Now()
	expires := now.Add(g.config.deviceTrustTTL())

	device, err := g.devices.FindByUserAndFingerprint(ctx, userID, fingerprint)
	if err != nil {
		return nil, err
	}
	if device == nil {
		device = &entity.TrustedDevice{
			UserID:            userID,
			DeviceFingerprint: fingerprint,
			DeviceName:        profile.Name,
			DeviceType:        profile.Type,
			Browser:           profile.Browser,
			OS:                profile.OS,
			LastIP:            ip,
			LastCountry:       country,
			LastCity:          city,
			FirstSeenAt:       now,
			LastUsedAt:        now,
			TrustedAt:         now,
			TrustExpiresAt:    &expires,
		}
		if err := g.devices.Create(ctx, device); err != nil {
			return nil, err
		}
		return device, nil
	}

	device.DeviceName = profile.Name
	device.DeviceType = profile.Type
	device.Browser = profile.Browser
	device.OS = profile.OS
	device.LastIP = ip
	device.LastCountry = country
	device.LastCity = city
	device.LastUsedAt = now
	device.TrustedAt = now
	device.TrustExpiresAt = &expires
	device.RevokedAt = nil
	device.RevocationReason = nil
	if err := g.devices.Save(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// touchDevice refreshes usage metadata on an allowed login without
// extending the trust window.
func (g *LoginGuard) touchDevice(ctx context.Context, input EvaluateInput) error {
	device, err := g.devices.FindByUserAndFingerprint(ctx, input.UserID, input.DeviceFingerprint)
	if err != nil || device == nil {
		return err
	}
	country, city := g.lookupLocation(ctx, input.IPAddress)
	device.LastIP = input.IPAddress
	if country != "" {
		device.LastCountry = country
	}
	if city != "" {
		device.LastCity = city
	}
	device.LastUsedAt = g.clock.Now()
	return g.devices.Save(ctx, device)
}

func (g *LoginGuard) IsDeviceTrusted(ctx context.Context, userID uuid.UUID, fingerprint string) (bool, error) {
	device, err := g.devices.FindByUserAndFingerprint(ctx, userID, fingerprint)
	if err != nil {
		return false, err
	}
	if device == nil {
		return false, nil
	}
	return device.TrustedNow(g.clock.Now()), nil
}

func (g *LoginGuard) ListTrustedDevices(ctx context.Context, userID uuid.UUID) ([]entity.TrustedDevice, error) {
	return g.devices.ListActive(ctx, userID, g.clock.Now())
}

func (g *LoginGuard) RevokeTrustedDevice(ctx context.Context, userID uuid.UUID, fingerprint string) error {
	device, err := g.devices.FindByUserAndFingerprint(ctx, userID, fingerprint)
	if err != nil {
		return err
	}
	if device == nil || device.RevokedAt != nil {
		return ErrDeviceNotFound
	}
	return g.devices.Revoke(ctx, userID, fingerprint, entity.RevocationReasonManual, g.clock.Now())
}

// BlockIP places a manual blocklist entry and leaves an audit trail.
func (g *LoginGuard) BlockIP(ctx context.Context, ip string, ttl time.Duration) error {
	if strings.TrimSpace(ip) == "" {
		return ErrInvalidInput
	}
	if ttl <= 0 {
		ttl = autoBlockTTL
	}
	if err := g.tokens.Set(ctx, blocklistKey(ip), []byte(BlockReasonManual), ttl); err != nil {
		return err
	}
	event := &entity.SecurityEvent{
		Category:  entity.CategorySecurity,
		Severity:  entity.SeverityWarning,
		Action:    entity.EventIPBlocked,
		IPAddress: optional(ip),
		CreatedAt: g.clock.Now(),
	}
	return g.events.Append(ctx, event)
}

// RecordFailedAttempt lets the credential layer feed failure history that
// the analyzer consumes.
func (g *LoginGuard) RecordFailedAttempt(ctx context.Context, input EvaluateInput, status entity.AttemptStatus) error {
	if status != entity.AttemptFailedPassword && status != entity.AttemptFailedMFA {
		return ErrInvalidInput
	}
	input.Email = utils.NormalizeEmail(input.Email)
	if input.Email == "" {
		return ErrInvalidInput
	}
	return g.recordAttempt(ctx, input, status, 0, nil, false, nil)
}

func (g *LoginGuard) recordAttempt(
	ctx context.Context,
	input EvaluateInput,
	status entity.AttemptStatus,
	riskScore int,
	assessment *RiskAssessment,
	suspicious bool,
	token *string,
) error {
	attempt := &entity.LoginAttempt{
		Email:             input.Email,
		IPAddress:         input.IPAddress,
		DeviceFingerprint: input.DeviceFingerprint,
		UserAgent:         optional(input.UserAgent),
		Status:            status,
		RiskScore:         riskScore,
		IsSuspicious:      suspicious,
		ConfirmationToken: token,
		CreatedAt:         g.clock.Now(),
	}
	if input.UserID != uuid.Nil {
		attempt.UserID = &input.UserID
	}
	if assessment != nil {
		attempt.IsNewDevice = assessment.IsNewDevice
		attempt.IsNewLocation = assessment.IsNewLocation
	}
	return g.attempts.Create(ctx, attempt)
}

// ListRecentAttempts exposes a user's login history for review surfaces.
func (g *LoginGuard) ListRecentAttempts(ctx context.Context, userID uuid.UUID, limit int) ([]entity.LoginAttempt, error) {
	return g.attempts.ListRecentByUser(ctx, userID, limit)
}

func (g *LoginGuard) lookupLocation(ctx context.Context, ip string) (string, string) {
	loc, err := g.geo.Lookup(ctx, ip)
	if err != nil || loc == nil {
		return "", ""
	}
	return loc.Country, loc.City
}

func denyStepError(step DenyStep, err error) error {
	return fmt.Errorf("deny login: step %s: %w", step, err)
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
