package pipeline

import (
	"context"

	"github.com/ppiankov/cram/internal/model"
)

type validationStage struct {
	caller *modelCaller
	policy model.Policy
}

func (s *validationStage) Name() string { return StageValidation }

// Execute sets the run's confidence score: the model's overall_confidence
// when usable, otherwise the policy fallback
func (s *validationStage) Execute(ctx context.Context, st *model.AnalysisState) error {
	hints := escalationHints(st, s.policy)
	if hints.StableWithHighEscalation {
		st.Log("STABLE trend with escalation probability %.0f (threshold %.0f) flagged for validation",
			hints.MaxEscalation, hints.EscalationThreshold)
	}

	prompt := validationPrompt(st, hints)
	st.Validation = callJSON[model.Validation](ctx, s.caller, st, StageValidation, "Consistency validation", validationSystem, prompt)

	if v := st.Validation.Get(); v != nil {
		st.ConfidenceScore = model.ClampUnit(v.OverallConfidence)
		st.Log("Validation %s with %d issues; confidence %.2f", v.ValidationStatus, len(v.Issues), st.ConfidenceScore)
		return nil
	}

	st.ConfidenceScore = model.ClampUnit(s.policy.FallbackConfidence)
	st.Log("Validation unavailable; confidence defaulted to %.2f", st.ConfidenceScore)
	return nil
}

// escalationHints computes the maximum 0-100 escalation probability across the
// forecast and scenario risks, and whether a STABLE trend contradicts it
func escalationHints(st *model.AnalysisState, policy model.Policy) validationHints {
	var maxEsc float64
	trend := st.Trend.Get()
	if trend != nil {
		maxEsc = max(maxEsc, trend.Forecast7Days.ArmedClashLikelihood, trend.Forecast7Days.CivilianTargetingLikelihood)
	}
	if set := st.Scenarios.Get(); set != nil {
		for _, sc := range set.Scenarios {
			maxEsc = max(maxEsc, sc.Pessimistic.RiskProbability)
		}
	}

	return validationHints{
		MaxEscalation:            maxEsc,
		EscalationThreshold:      policy.EscalationThreshold,
		StableWithHighEscalation: trend != nil && trend.TrendClassification == model.TrendStable && maxEsc >= policy.EscalationThreshold,
		EventCount:               len(st.Events),
		ScenariosRequested:       len(st.Interventions) > 0,
	}
}
