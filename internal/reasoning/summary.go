package reasoning

import (
	"time"

	"github.com/ppiankov/cram/internal/model"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// BuildSummary condenses the run inputs and stage outputs
func BuildSummary(s *model.AnalysisState) model.ExplainabilitySummary {
	return model.ExplainabilitySummary{
		Input: model.InputSummary{
			Region:             s.Region,
			HasRawData:         s.HasRawText(),
			InterventionsCount: len(s.Interventions),
			Interventions:      append([]string{}, s.Interventions...),
		},
		Retrieval:  retrievalSummary(s.RetrievedEvents),
		Trend:      trendSummary(s.Trend.Get()),
		Scenarios:  scenarioSummary(s.Scenarios.Get()),
		Validation: validationSummary(s.Validation.Get()),
		Meta: model.SummaryMeta{
			PipelineConfidenceScore: s.ConfidenceScore,
			Timestamp:               s.Timestamp.UTC().Format(time.RFC3339),
		},
	}
}

func retrievalSummary(hits []model.EvidenceHit) model.RetrievalSummary {
	sum := model.RetrievalSummary{
		TotalEventsConsidered: len(hits),
		Sources:               map[string]int{},
	}

	var first, last time.Time
	seen := false
	for _, h := range hits {
		src := h.Metadata.Source
		if src == "" {
			src = "UNKNOWN"
		}
		sum.Sources[src]++

		t, ok := parseDate(h.Metadata.Date)
		if !ok {
			continue
		}
		if !seen || t.Before(first) {
			first = t
		}
		if !seen || t.After(last) {
			last = t
		}
		seen = true
	}
	if seen {
		days := int(last.Sub(first) / (24 * time.Hour))
		sum.TimeSpanDays = &days
	}
	return sum
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func trendSummary(t *model.TrendAnalysis) model.TrendSummary {
	if t == nil {
		return model.TrendSummary{Drivers: []string{}}
	}
	forecast := t.Forecast7Days
	drivers := t.Drivers
	if drivers == nil {
		drivers = []string{}
	}
	return model.TrendSummary{
		TrendClassification: t.TrendClassification,
		ConfidenceLabel:     t.Confidence,
		Drivers:             drivers,
		Forecast7Days:       &forecast,
	}
}

func scenarioSummary(set *model.ScenarioSet) model.ScenarioSummary {
	sum := model.ScenarioSummary{Recommendations: []model.Recommendation{}}
	if set == nil {
		return sum
	}
	sum.NumScenarios = len(set.Scenarios)
	for i, sc := range set.Scenarios {
		if sc.Recommendation != "" {
			sum.Recommendations = append(sum.Recommendations, sc.Recommendation)
		}
		success, risk := sc.Optimistic.SuccessProbability, sc.Pessimistic.RiskProbability
		if i == 0 || success > *sum.MaxSuccessProbability {
			sum.MaxSuccessProbability = &success
		}
		if i == 0 || risk > *sum.MaxRiskProbability {
			sum.MaxRiskProbability = &risk
		}
	}
	return sum
}

func validationSummary(v *model.Validation) model.ValidationSummary {
	if v == nil {
		return model.ValidationSummary{Issues: []model.ValidationIssue{}}
	}
	issues := v.Issues
	if issues == nil {
		issues = []model.ValidationIssue{}
	}
	conf := v.OverallConfidence
	return model.ValidationSummary{
		Status:            v.ValidationStatus,
		IssueCount:        len(issues),
		Issues:            issues,
		OverallConfidence: &conf,
	}
}

// Build derives the full explainability payload of a finished run
func Build(s *model.AnalysisState, policy model.Policy) *model.Explainability {
	return &model.Explainability{
		Summary: BuildSummary(s),
		Reasoning: model.Reasoning{
			Tree:              BuildTree(s),
			DecisionPrompts:   BuildDecisionPrompts(s, policy),
			NarrativeEvidence: BuildNarrativeEvidence(s),
		},
	}
}
