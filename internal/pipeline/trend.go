package pipeline

import (
	"context"

	"github.com/ppiankov/cram/internal/model"
)

type trendStage struct {
	caller *modelCaller
}

func (s *trendStage) Name() string { return StageTrend }

// Execute always calls the model, even with an empty timeline
func (s *trendStage) Execute(ctx context.Context, st *model.AnalysisState) error {
	prompt := trendPrompt(st.Region, st.Events)
	st.Trend = callJSON[model.TrendAnalysis](ctx, s.caller, st, StageTrend, "Trend analysis", trendSystem, prompt)
	if t := st.Trend.Get(); t != nil {
		st.Log("Trend classified as %s (%s confidence)", t.TrendClassification, t.Confidence)
	}
	return nil
}
