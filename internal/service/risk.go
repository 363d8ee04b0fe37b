package service

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Advisory thresholds computed by the analyzer. The decision engine applies
// its own thresholds (GuardConfig); the two are intentionally not unified.
const (
	ThresholdEmailConfirmation = 30
	ThresholdMFA               = 50
	ThresholdBlock             = 80
)

// RiskFactor is one triggered signal and its contribution to the score.
type RiskFactor struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RiskAssessment is the composite verdict for a single login attempt. It is
// never persisted as a whole; only the score lands in the attempt record.
type RiskAssessment struct {
	Score   int          `json:"score"`
	Level   RiskLevel    `json:"level"`
	Factors []RiskFactor `json:"factors"`

	IsNewDevice   bool `json:"is_new_device"`
	IsNewLocation bool `json:"is_new_location"`

	RequiresEmailConfirmation bool `json:"requires_email_confirmation"`
	RequiresMFA               bool `json:"requires_mfa"`
	ShouldBlock               bool `json:"should_block"`
}

// LevelForScore maps a composite score onto a risk level.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}
