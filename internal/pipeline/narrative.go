package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/model"
)

type narrativeStage struct {
	caller *modelCaller
	policy model.Policy
}

func (s *narrativeStage) Name() string { return StageNarrative }

// Execute always leaves a narrative in the state; when the model cannot
// produce one a brief is rendered locally from the state
func (s *narrativeStage) Execute(ctx context.Context, st *model.AnalysisState) error {
	if st.ApprovalStatus == "" {
		// the gate was routed around
		applyApproval(st, s.policy)
	}

	text, err := s.caller.invoke(ctx, StageNarrative, narrativeSystem, narrativePrompt(st))
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err == nil {
			s.caller.logger.Warn("model returned an empty narrative", zap.String("stage", StageNarrative))
		}
		fallback := fallbackBrief(st)
		st.Narrative = &fallback
		st.Log("Narrative model unavailable; rendered fallback brief")
		return nil
	}

	st.Narrative = &text
	st.Log("Narrative brief generated (%d words)", len(strings.Fields(text)))
	return nil
}

// fallbackBrief renders the five-section brief from structured state only
func fallbackBrief(st *model.AnalysisState) string {
	var b strings.Builder

	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "Automated brief for %s. The narrative model was unavailable, so this summary is generated directly from the analysis outputs.\n\n",
		regionLabel(st.Region))

	b.WriteString("## Recent Events\n")
	if len(st.Events) == 0 {
		b.WriteString("No recent events were retrieved.\n\n")
	} else {
		fmt.Fprintf(&b, "%d distinct events were considered. Most recent:\n", len(st.Events))
		recent := st.Events
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		for _, ev := range recent {
			fmt.Fprintf(&b, "- %s: %s in %s\n", orDash(ev.Date), orDash(ev.EventType), orDash(ev.Region))
		}
		b.WriteString("\n")
	}

	b.WriteString("## 7-Day Outlook\n")
	switch t := st.Trend; {
	case t.OK():
		v := t.Get()
		fmt.Fprintf(&b, "Trend: %s (%s confidence). Armed clash likelihood %g%%, civilian targeting likelihood %g%%.\n\n",
			v.TrendClassification, v.Confidence, v.Forecast7Days.ArmedClashLikelihood, v.Forecast7Days.CivilianTargetingLikelihood)
	case t.Failed():
		b.WriteString("Trend analysis output could not be parsed; no outlook is available.\n\n")
	default:
		b.WriteString("Trend analysis is not available.\n\n")
	}

	b.WriteString("## Scenarios & Recommendations\n")
	switch sc := st.Scenarios; {
	case sc.OK():
		for _, s := range sc.Get().Scenarios {
			fmt.Fprintf(&b, "- %s: %s (success %g%%, risk %g%%)\n",
				s.Intervention, s.Recommendation, s.Optimistic.SuccessProbability, s.Pessimistic.RiskProbability)
		}
		b.WriteString("\n")
	case sc.Failed():
		b.WriteString("Scenario output could not be parsed.\n\n")
	case len(st.Interventions) == 0:
		b.WriteString("No interventions were proposed.\n\n")
	default:
		b.WriteString("Scenario generation is not available.\n\n")
	}

	b.WriteString("## Confidence & Data Notes\n")
	fmt.Fprintf(&b, "Confidence score %.2f; approval status %s.", st.ConfidenceScore, st.ApprovalStatus)
	if v := st.Validation.Get(); v != nil {
		fmt.Fprintf(&b, " Validation %s with %d issues.", v.ValidationStatus, len(v.Issues))
	} else {
		b.WriteString(" Validation output was not available.")
	}
	b.WriteString("\n")

	return b.String()
}
