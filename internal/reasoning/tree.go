// Package reasoning derives the explainability artifacts of a finished run.
// Every function here is pure and leaves the state untouched.
package reasoning

import (
	"fmt"
	"strings"

	"github.com/ppiankov/cram/internal/model"
)

// Stage node ids in tree order
const (
	NodeRetrieval  = "retrieval"
	NodeExtraction = "extraction"
	NodeTrend      = "trend"
	NodeScenario   = "scenario"
	NodeValidation = "validation"
	NodeNarrative  = "narrative"
)

const (
	maxSampleEvents  = 3
	maxEvidenceItems = 5
	maxScenarioItems = 3
)

// BuildTree returns the reasoning tree: a root for the run with one child per stage
func BuildTree(s *model.AnalysisState) model.ReasoningNode {
	region := s.Region
	if region == "" {
		region = "(national)"
	}
	return model.ReasoningNode{
		ID:          "root",
		Name:        "Conflict risk analysis",
		Description: fmt.Sprintf("End-to-end analysis for region %s", region),
		Status:      model.StatusCompleted,
		Evidence:    []model.EvidenceItem{},
		Children: []model.ReasoningNode{
			retrievalNode(s),
			extractionNode(s),
			trendNode(s),
			scenarioNode(s),
			validationNode(s),
			narrativeNode(s),
		},
	}
}

func node(id, name, desc string, status model.NodeStatus, evidence []model.EvidenceItem) model.ReasoningNode {
	if evidence == nil {
		evidence = []model.EvidenceItem{}
	}
	return model.ReasoningNode{
		ID:          id,
		Name:        name,
		Description: desc,
		Status:      status,
		Evidence:    evidence,
		Children:    []model.ReasoningNode{},
	}
}

func retrievalNode(s *model.AnalysisState) model.ReasoningNode {
	mode := "unknown"
	if s.RetrievalContext != nil && s.RetrievalContext.Filters.Mode != "" {
		mode = string(s.RetrievalContext.Filters.Mode)
	}

	var evidence []model.EvidenceItem
	for i := 0; i < len(s.Events) && i < maxSampleEvents; i++ {
		ev := s.Events[i]
		source := ev.Source
		if source == "" {
			source = "unknown"
		}
		evidence = append(evidence, model.EvidenceItem{
			Source:      source,
			Description: describeEvent(ev),
			Event:       &ev,
		})
	}

	return node(NodeRetrieval, "Evidence retrieval",
		fmt.Sprintf("Retrieved %d events using mode '%s'.", len(s.Events), mode),
		model.StatusCompleted, evidence)
}

func describeEvent(ev model.CanonicalEvent) string {
	date := ev.Date
	if date == "" {
		date = "undated"
	}
	desc := fmt.Sprintf("%s: %s in %s", date, orUnknown(ev.EventType), orUnknown(ev.Region))
	if len(ev.Actors) > 0 {
		desc += " involving " + strings.Join(ev.Actors, ", ")
	}
	return desc
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func extractionNode(s *model.AnalysisState) model.ReasoningNode {
	const name = "Event extraction"
	switch {
	case s.Extraction.OK():
		ext := s.Extraction.Get()
		var evidence []model.EvidenceItem
		for i := 0; i < len(ext.Events) && i < maxEvidenceItems; i++ {
			ev := ext.Events[i]
			where := "unknown location"
			if ev.Location != nil && *ev.Location != "" {
				where = *ev.Location
			}
			evidence = append(evidence, model.EvidenceItem{
				Source:      "extraction",
				Description: fmt.Sprintf("%s at %s (%d fatalities)", ev.EventType, where, ev.Fatalities),
			})
		}
		return node(NodeExtraction, name,
			fmt.Sprintf("Extracted %d events from raw text.", len(ext.Events)),
			model.StatusCompleted, evidence)
	case s.Extraction.Failed():
		return node(NodeExtraction, name, "Event extraction ran but its output could not be parsed.", model.StatusError, nil)
	case s.HasRawText():
		return node(NodeExtraction, name, "Event extraction call failed; no output.", model.StatusError, nil)
	default:
		return node(NodeExtraction, name, "No raw text provided; event extraction was skipped.", model.StatusSkipped, nil)
	}
}

func trendNode(s *model.AnalysisState) model.ReasoningNode {
	const name = "Trend and forecast"
	trend := s.Trend.Get()
	if trend == nil {
		return node(NodeTrend, name, "Trend analysis not available or failed.", model.StatusError, nil)
	}

	var evidence []model.EvidenceItem
	for i := 0; i < len(trend.Drivers) && len(evidence) < maxEvidenceItems-1; i++ {
		evidence = append(evidence, model.EvidenceItem{
			Source:      "trend_analysis",
			Description: "Driver: " + trend.Drivers[i],
		})
	}
	evidence = append(evidence, model.EvidenceItem{
		Source: "trend_analysis",
		Description: fmt.Sprintf("7-day forecast: armed clash %g%%, civilian targeting %g%%",
			trend.Forecast7Days.ArmedClashLikelihood, trend.Forecast7Days.CivilianTargetingLikelihood),
	})

	return node(NodeTrend, name,
		fmt.Sprintf("Trend classified as %s with %s confidence.", trend.TrendClassification, trend.Confidence),
		model.StatusCompleted, evidence)
}

func scenarioNode(s *model.AnalysisState) model.ReasoningNode {
	const name = "Scenario generation"
	set := s.Scenarios.Get()
	switch {
	case set != nil:
		var evidence []model.EvidenceItem
		for i := 0; i < len(set.Scenarios) && i < maxScenarioItems; i++ {
			sc := set.Scenarios[i]
			evidence = append(evidence, model.EvidenceItem{
				Source: "scenario_generation",
				Description: fmt.Sprintf("Intervention '%s': recommend %s (success %g%%, risk %g%%)",
					sc.Intervention, sc.Recommendation, sc.Optimistic.SuccessProbability, sc.Pessimistic.RiskProbability),
			})
		}
		return node(NodeScenario, name,
			fmt.Sprintf("Evaluated %d intervention scenarios.", len(set.Scenarios)),
			model.StatusCompleted, evidence)
	case len(s.Interventions) == 0:
		return node(NodeScenario, name, "No interventions provided; no scenarios were generated.", model.StatusSkipped, nil)
	default:
		return node(NodeScenario, name, "Scenario generation not available or failed.", model.StatusError, nil)
	}
}

func validationNode(s *model.AnalysisState) model.ReasoningNode {
	const name = "Consistency validation"
	v := s.Validation.Get()
	if v == nil {
		return node(NodeValidation, name,
			fmt.Sprintf("Validation not available or failed; confidence defaulted to %.2f.", s.ConfidenceScore),
			model.StatusError, nil)
	}

	var evidence []model.EvidenceItem
	for i := 0; i < len(v.Issues) && i < maxEvidenceItems; i++ {
		issue := v.Issues[i]
		evidence = append(evidence, model.EvidenceItem{
			Source:      "validation",
			Description: fmt.Sprintf("%s (%s): %s", issue.Type, issue.Severity, issue.Description),
		})
	}
	return node(NodeValidation, name,
		fmt.Sprintf("Validation status: %s, overall confidence %.2f.", v.ValidationStatus, v.OverallConfidence),
		model.StatusCompleted, evidence)
}

func narrativeNode(s *model.AnalysisState) model.ReasoningNode {
	const name = "Narrative synthesis"

	var evidence []model.EvidenceItem
	msgs := s.Messages
	if len(msgs) > maxEvidenceItems {
		msgs = msgs[len(msgs)-maxEvidenceItems:]
	}
	for _, m := range msgs {
		evidence = append(evidence, model.EvidenceItem{Source: "log", Description: m})
	}

	if s.Narrative == nil || strings.TrimSpace(*s.Narrative) == "" {
		return node(NodeNarrative, name, "Narrative brief not generated.", model.StatusSkipped, evidence)
	}
	return node(NodeNarrative, name, "Generated a human-readable brief summarizing the assessment.",
		model.StatusCompleted, evidence)
}
