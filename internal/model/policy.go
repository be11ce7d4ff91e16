package model

// Policy thresholds. Overridable through config, never per call.
const (
	// DefaultApprovalThreshold: confidence below this requires human approval
	DefaultApprovalThreshold = 0.70

	// DefaultEscalationThreshold: a STABLE trend with any 0-100 escalation
	// probability at or above this is flagged as inconsistent
	DefaultEscalationThreshold = 60.0

	// DefaultHighRiskThreshold: forecast or scenario risk at or above this
	// raises a contingency decision prompt
	DefaultHighRiskThreshold = 70.0

	// DefaultFallbackConfidence is used when validation output is unusable
	DefaultFallbackConfidence = 0.5
)

// Policy groups the fixed decision thresholds of the workflow
type Policy struct {
	ApprovalThreshold   float64 `yaml:"approval_threshold" mapstructure:"approval_threshold"`
	EscalationThreshold float64 `yaml:"escalation_threshold" mapstructure:"escalation_threshold"`
	HighRiskThreshold   float64 `yaml:"high_risk_threshold" mapstructure:"high_risk_threshold"`
	FallbackConfidence  float64 `yaml:"fallback_confidence" mapstructure:"fallback_confidence"`
}

// DefaultPolicy returns the standard thresholds
func DefaultPolicy() Policy {
	return Policy{
		ApprovalThreshold:   DefaultApprovalThreshold,
		EscalationThreshold: DefaultEscalationThreshold,
		HighRiskThreshold:   DefaultHighRiskThreshold,
		FallbackConfidence:  DefaultFallbackConfidence,
	}
}

// RequiresApproval is the single decision used by both the approval gate and
// the conditional edge that routes to it
func (p Policy) RequiresApproval(confidence float64) bool {
	return confidence < p.ApprovalThreshold
}

// Decide maps a confidence score to the approval gate state
func (p Policy) Decide(confidence float64) (ApprovalStatus, bool) {
	if p.RequiresApproval(confidence) {
		return ApprovalPending, true
	}
	return ApprovalAutoApproved, false
}

// ClampUnit bounds a score to [0,1]
func ClampUnit(v float64) float64 {
	switch {
	case v != v: // NaN
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
