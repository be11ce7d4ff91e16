package reasoning

import "github.com/ppiankov/cram/internal/model"

// MinEventsForCoverage is the event count below which a data-gap prompt fires
const MinEventsForCoverage = 5

// Decision prompts, in the order their rules are evaluated
const (
	PromptLowConfidence = "Overall confidence is below the approval threshold. Which parts of this " +
		"assessment would you double-check manually before acting?"
	PromptValidationIssues = "Validation reported issues. Do you agree with the identified inconsistencies, " +
		"or do they point to a problem in the data or in the model's assumptions?"
	PromptDataGap = "Only a small number of recent events was found. Could missing data sources or " +
		"reporting gaps be distorting the picture for this region?"
	PromptHighRisk = "Short-term escalation risk is high. What contingency plans should be in place " +
		"if this forecast or the scenario risks turn out to be wrong?"
	PromptGeneric = "Which assumption in this assessment, if wrong, would most change your decision?"
)

// BuildDecisionPrompts applies fixed threshold rules to the final state. The
// result is never empty.
func BuildDecisionPrompts(s *model.AnalysisState, policy model.Policy) []string {
	var prompts []string

	if policy.RequiresApproval(s.ConfidenceScore) {
		prompts = append(prompts, PromptLowConfidence)
	}

	if v := s.Validation.Get(); v != nil {
		if v.ValidationStatus == model.ValidationWarning || v.ValidationStatus == model.ValidationFailed {
			prompts = append(prompts, PromptValidationIssues)
		}
	}

	if len(s.Events) < MinEventsForCoverage {
		prompts = append(prompts, PromptDataGap)
	}

	if risk, ok := MaxRisk(s); ok && risk >= policy.HighRiskThreshold {
		prompts = append(prompts, PromptHighRisk)
	}

	if len(prompts) == 0 {
		prompts = append(prompts, PromptGeneric)
	}
	return prompts
}

// MaxRisk is the highest 0-100 risk across the forecast likelihoods and the
// pessimistic scenario outcomes. ok is false when neither is available.
func MaxRisk(s *model.AnalysisState) (float64, bool) {
	var (
		maxRisk float64
		ok      bool
	)
	consider := func(v float64) {
		if !ok || v > maxRisk {
			maxRisk = v
			ok = true
		}
	}
	if t := s.Trend.Get(); t != nil {
		consider(t.Forecast7Days.ArmedClashLikelihood)
		consider(t.Forecast7Days.CivilianTargetingLikelihood)
	}
	if set := s.Scenarios.Get(); set != nil {
		for _, sc := range set.Scenarios {
			consider(sc.Pessimistic.RiskProbability)
		}
	}
	return maxRisk, ok
}
