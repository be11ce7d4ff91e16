package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/cram/internal/model"
)

const (
	maxContextHits   = 5
	maxTrendEvents   = 15
	analystPreamble  = "You are a conflict analyst covering Sudan. "
	jsonOnlyReminder = "Respond with a single JSON object and nothing else: no prose, no markdown fences."
)

const extractionSystem = analystPreamble +
	"Extract discrete conflict events from field reports. Only report events stated in the text. " +
	jsonOnlyReminder

const trendSystem = analystPreamble +
	"Classify the short-term trajectory of violence from a list of recent events and forecast the next seven days. " +
	jsonOnlyReminder

const scenarioSystem = analystPreamble +
	"Assess proposed interventions against the current trend, giving a best plausible and a worst plausible outcome for each. " +
	jsonOnlyReminder

const validationSystem = analystPreamble +
	"Audit the outputs of earlier analysis steps for internal contradictions and data gaps. " +
	jsonOnlyReminder

const narrativeSystem = analystPreamble +
	"Write concise situation briefs for humanitarian decision-makers. Use markdown headers. Never include JSON."

func extractionPrompt(rawText string, hits []model.EvidenceHit) string {
	var b strings.Builder
	b.WriteString("Known recent events for context:\n")
	b.WriteString(hitContext(hits, maxContextHits))
	b.WriteString("\nField report:\n\"\"\"\n")
	b.WriteString(strings.TrimSpace(rawText))
	b.WriteString("\n\"\"\"\n\n")
	b.WriteString(`Return:
{
  "events": [
    {"event_type": "string", "date": "YYYY-MM-DD or null", "location": "string or null", "actors": ["string"], "fatalities": 0}
  ],
  "confidence": 0.0
}
confidence is between 0 and 1. Use an empty events list when the report describes no events.`)
	return b.String()
}

func hitContext(hits []model.EvidenceHit, limit int) string {
	if len(hits) == 0 {
		return "(none)\n"
	}
	var b strings.Builder
	for i, h := range hits {
		if i >= limit {
			break
		}
		m := h.Metadata
		fmt.Fprintf(&b, "- %s | %s | %s | %s | actors: %s\n",
			orDash(m.Date), orDash(m.Source), orDash(m.Region), orDash(m.EventType), orDash(strings.Join(m.Actors, ", ")))
	}
	return b.String()
}

// eventSummary renders the most recent events, oldest first, one per line
func eventSummary(events []model.CanonicalEvent, limit int) string {
	if len(events) == 0 {
		return "No recent events were retrieved."
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		fatalities := "unknown"
		if ev.Fatalities != nil {
			fatalities = fmt.Sprintf("%d fatalities", *ev.Fatalities)
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", orDash(ev.Date), orDash(ev.EventType), fatalities))
	}
	return strings.Join(lines, "\n")
}

func trendPrompt(region string, events []model.CanonicalEvent) string {
	return fmt.Sprintf(`Region: %s

Recent events:
%s

Return:
{
  "trend_classification": "ESCALATING | STABLE | DEESCALATING | VOLATILE",
  "drivers": ["string"],
  "forecast_7_days": {"armed_clash_likelihood": 0, "civilian_targeting_likelihood": 0},
  "confidence": "LOW | MEDIUM | HIGH"
}
Likelihoods are percentages from 0 to 100. With few or no events, say so through LOW confidence rather than guessing.`,
		regionLabel(region), eventSummary(events, maxTrendEvents))
}

func scenarioPrompt(region string, trend *model.StageResult[model.TrendAnalysis], interventions []string) string {
	return fmt.Sprintf(`Region: %s

Current trend analysis:
%s

Proposed interventions:
%s

Return one scenario per intervention:
{
  "scenarios": [
    {
      "intervention": "string",
      "optimistic": {"description": "string", "success_probability": 0},
      "pessimistic": {"description": "string", "risk_probability": 0},
      "recommendation": "PROCEED | MODIFY | AVOID"
    }
  ]
}
Probabilities are percentages from 0 to 100.`,
		regionLabel(region), stageJSON(trend), bulletList(interventions))
}

type validationHints struct {
	MaxEscalation            float64 `json:"max_escalation"`
	EscalationThreshold      float64 `json:"escalation_threshold"`
	StableWithHighEscalation bool    `json:"stable_with_high_escalation"`
	EventCount               int     `json:"event_count"`
	ScenariosRequested       bool    `json:"scenarios_requested"`
}

func validationPrompt(state *model.AnalysisState, hints validationHints) string {
	payload := struct {
		Events    []model.CanonicalEvent `json:"events"`
		Trend     json.RawMessage        `json:"trend_analysis"`
		Scenarios json.RawMessage        `json:"scenarios"`
		Hints     validationHints        `json:"hints"`
	}{
		Events:    state.Events,
		Trend:     json.RawMessage(stageJSON(state.Trend)),
		Scenarios: json.RawMessage(stageJSON(state.Scenarios)),
		Hints:     hints,
	}
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		body = []byte("{}")
	}

	return fmt.Sprintf(`Analysis outputs to audit:
%s

Check that the trend classification agrees with the forecast and scenario probabilities, and that the evidence is sufficient.
If hints.stable_with_high_escalation is true, you MUST report an INCONSISTENCY issue: the trend is STABLE while an escalation probability is at or above hints.escalation_threshold.
Report missing or failed analysis steps as DATA_GAP issues.

Return:
{
  "validation_status": "PASSED | WARNING | FAILED",
  "issues": [{"type": "INCONSISTENCY | DATA_GAP", "description": "string", "severity": "LOW | MEDIUM | HIGH"}],
  "overall_confidence": 0.0
}
overall_confidence is between 0 and 1.`, body)
}

// narrativeSnapshot is the compact view of a run handed to the narrative model.
// Degraded stage outputs appear as short markers.
type narrativeSnapshot struct {
	Region          string                 `json:"region"`
	Events          []model.CanonicalEvent `json:"events"`
	Trend           any                    `json:"trend_analysis"`
	Scenarios       any                    `json:"scenarios"`
	Validation      any                    `json:"validation"`
	ApprovalStatus  model.ApprovalStatus   `json:"approval_status"`
	ConfidenceScore float64                `json:"confidence_score"`
}

const (
	markerNotAvailable = "not available"
	markerParseFailed  = "not available (model output could not be parsed)"
	markerSkipped      = "not requested"
)

func snapshotValue[T any](r *model.StageResult[T], skipped bool) any {
	switch {
	case r.OK():
		return r.Get()
	case r.Failed():
		return markerParseFailed
	case skipped:
		return markerSkipped
	default:
		return markerNotAvailable
	}
}

func narrativePrompt(state *model.AnalysisState) string {
	snap := narrativeSnapshot{
		Region:          regionLabel(state.Region),
		Events:          state.Events,
		Trend:           snapshotValue(state.Trend, false),
		Scenarios:       snapshotValue(state.Scenarios, len(state.Interventions) == 0),
		Validation:      snapshotValue(state.Validation, false),
		ApprovalStatus:  state.ApprovalStatus,
		ConfidenceScore: state.ConfidenceScore,
	}
	if len(snap.Events) > maxTrendEvents {
		snap.Events = snap.Events[len(snap.Events)-maxTrendEvents:]
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		body = []byte("{}")
	}

	return fmt.Sprintf(`Analysis snapshot:
%s

Write a situation brief of 300 to 600 words with exactly these markdown sections:
## Overview
## Recent Events
## 7-Day Outlook
## Scenarios & Recommendations
## Confidence & Data Notes

Where a field is marked "not available", say plainly that the information is missing. Do not invent figures and do not include JSON.`, body)
}

// stageJSON renders a stage result for a prompt; nil becomes null
func stageJSON[T any](r *model.StageResult[T]) string {
	if r == nil {
		return "null"
	}
	b, err := json.Marshal(r)
	if err != nil {
		return "null"
	}
	return string(b)
}

func regionLabel(region string) string {
	if region == "" {
		return "Sudan (national)"
	}
	return region
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, it := range items {
		b.WriteString("- ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
