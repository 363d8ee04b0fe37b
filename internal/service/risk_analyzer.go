package service

import (
	"context"
	"time"

	"loginsentry/internal/repository"

	"github.com/google/uuid"
)

const (
	scoreNewDevice    = 20
	scoreNewLocation  = 15
	maxFailureScore   = 25
	scoreTravelAbroad = 20
	scoreTravelLocal  = 10
	scoreOddHourNever = 10
	scoreOddHourSeen  = 3
	scoreKnownThreat  = 10

	failureWindow     = time.Hour
	velocityWindow    = 5 * time.Minute
	locationWindow    = 90 * 24 * time.Hour
	timePatternWindow = 30 * 24 * time.Hour

	quietHourStart = 2
	quietHourEnd   = 6

	crossUserFailureLimit = 20
	autoBlockTTL          = time.Hour
)

const (
	BlockReasonManual = "manual"
	BlockReasonAuto   = "auto"
)

const blocklistKeyPrefix = "ip:block:"

func blocklistKey(ip string) string {
	return blocklistKeyPrefix + ip
}

// AssessInput carries one login attempt's context into the analyzer.
// TrustedDevice and NewLocation are resolved by the caller so a single
// lookup serves both the assessment and the final decision.
type AssessInput struct {
	UserID            uuid.UUID
	Email             string
	IPAddress         string
	DeviceFingerprint string
	UserAgent         string
	TrustedDevice     bool
	NewLocation       bool
}

// RiskAnalyzer combines six independent signals into a composite score.
// It reads attempt history and the blocklist; the known-threat signal is
// the only one allowed to write (auto blocklist entries).
type RiskAnalyzer struct {
	attempts  repository.LoginAttemptRepository
	blocklist EphemeralStore
	geo       GeoProvider
	clock     Clock
}

func NewRiskAnalyzer(
	attempts repository.LoginAttemptRepository,
	blocklist EphemeralStore,
	geo GeoProvider,
	clock Clock,
) *RiskAnalyzer {
	return &RiskAnalyzer{
		attempts:  attempts,
		blocklist: blocklist,
		geo:       geo,
		clock:     clock,
	}
}

// Assess computes the composite risk for one attempt. Deterministic given
// its inputs, the clock, and stored history.
func (a *RiskAnalyzer) Assess(ctx context.Context, input AssessInput) (*RiskAssessment, error) {
	now := a.clock.Now()
	assessment := &RiskAssessment{
		IsNewDevice:   !input.TrustedDevice,
		IsNewLocation: input.NewLocation,
	}

	score := 0
	addFactor := func(name string, points int) {
		if points <= 0 {
			return
		}
		score += points
		assessment.Factors = append(assessment.Factors, RiskFactor{Name: name, Score: points})
	}

	if !input.TrustedDevice {
		addFactor("new_device", scoreNewDevice)
	}
	if input.NewLocation {
		addFactor("new_location", scoreNewLocation)
	}

	failureScore, err := a.recentFailureScore(ctx, input.Email, input.IPAddress, now)
	if err != nil {
		return nil, err
	}
	addFactor("recent_failures", failureScore)

	velocityScore, err := a.velocityScore(ctx, input.UserID, input.IPAddress, now)
	if err != nil {
		return nil, err
	}
	addFactor("velocity", velocityScore)

	timeScore, err := a.unusualTimeScore(ctx, input.UserID, now)
	if err != nil {
		return nil, err
	}
	addFactor("unusual_time", timeScore)

	threatScore, err := a.knownThreatScore(ctx, input.IPAddress, now)
	if err != nil {
		return nil, err
	}
	addFactor("known_threat", threatScore)

	if score > 100 {
		score = 100
	}
	assessment.Score = score
	assessment.Level = LevelForScore(score)
	assessment.RequiresEmailConfirmation = score >= ThresholdEmailConfirmation
	assessment.RequiresMFA = score >= ThresholdMFA
	assessment.ShouldBlock = score >= ThresholdBlock
	return assessment, nil
}

// IsNewLocation reports whether the user has a successful login from this
// exact IP within the trailing 90 days. Anything older counts as new.
func (a *RiskAnalyzer) IsNewLocation(ctx context.Context, userID uuid.UUID, ip string) (bool, error) {
	seen, err := a.attempts.HasSuccessFromIP(ctx, userID, ip, a.clock.Now().Add(-locationWindow))
	if err != nil {
		return false, err
	}
	return !seen, nil
}

func (a *RiskAnalyzer) recentFailureScore(ctx context.Context, email, ip string, now time.Time) (int, error) {
	since := now.Add(-failureWindow)

	byEmail, err := a.attempts.CountFailuresByEmail(ctx, email, since)
	if err != nil {
		return 0, err
	}
	score := 0
	switch {
	case byEmail >= 5:
		score = 25
	case byEmail >= 3:
		score = 20
	case byEmail >= 1:
		score = 10
	}

	byIP, err := a.attempts.CountFailuresByIP(ctx, ip, since)
	if err != nil {
		return 0, err
	}
	switch {
	case byIP >= 10:
		score += 15
	case byIP >= 5:
		score += 10
	}

	if score > maxFailureScore {
		score = maxFailureScore
	}
	return score, nil
}

// velocityScore flags impossible travel: successful logins from other IPs
// within the last five minutes. A different country scores full weight;
// two or more distinct other IPs in the same country score half.
func (a *RiskAnalyzer) velocityScore(ctx context.Context, userID uuid.UUID, ip string, now time.Time) (int, error) {
	recent, err := a.attempts.RecentSuccessesFromOtherIPs(ctx, userID, ip, now.Add(-velocityWindow))
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return 0, nil
	}

	current := a.lookupCountry(ctx, ip)
	distinct := make(map[string]struct{}, len(recent))
	for _, attempt := range recent {
		if _, seen := distinct[attempt.IPAddress]; seen {
			continue
		}
		distinct[attempt.IPAddress] = struct{}{}

		other := a.lookupCountry(ctx, attempt.IPAddress)
		if current != "" && other != "" && other != current {
			return scoreTravelAbroad, nil
		}
	}
	if len(distinct) >= 2 {
		return scoreTravelLocal, nil
	}
	return 0, nil
}

// unusualTimeScore only fires between 02:00 and 06:00 local time. A user
// never seen succeeding in that window over the last 30 days scores full
// weight; a user seen before scores a token amount.
func (a *RiskAnalyzer) unusualTimeScore(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	hour := now.Hour()
	if hour < quietHourStart || hour >= quietHourEnd {
		return 0, nil
	}
	seen, err := a.attempts.HasSuccessInHourWindow(ctx, userID, quietHourStart, quietHourEnd, now.Add(-timePatternWindow))
	if err != nil {
		return 0, err
	}
	if !seen {
		return scoreOddHourNever, nil
	}
	return scoreOddHourSeen, nil
}

func (a *RiskAnalyzer) knownThreatScore(ctx context.Context, ip string, now time.Time) (int, error) {
	_, listed, err := a.blocklist.Get(ctx, blocklistKey(ip))
	if err != nil {
		return 0, err
	}
	if listed {
		return scoreKnownThreat, nil
	}

	failures, err := a.attempts.CountFailuresByIP(ctx, ip, now.Add(-failureWindow))
	if err != nil {
		return 0, err
	}
	if failures >= crossUserFailureLimit {
		if err := a.blocklist.Set(ctx, blocklistKey(ip), []byte(BlockReasonAuto), autoBlockTTL); err != nil {
			return 0, err
		}
		return scoreKnownThreat, nil
	}
	return 0, nil
}

// lookupCountry swallows provider misses and errors: geolocation is best
// effort and must not fail an assessment.
func (a *RiskAnalyzer) lookupCountry(ctx context.Context, ip string) string {
	loc, err := a.geo.Lookup(ctx, ip)
	if err != nil || loc == nil {
		return ""
	}
	return loc.Country
}
