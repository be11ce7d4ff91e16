package pipeline

import (
	"context"

	"github.com/ppiankov/cram/internal/model"
)

type extractionStage struct {
	caller *modelCaller
}

func (s *extractionStage) Name() string { return StageExtraction }

func (s *extractionStage) Execute(ctx context.Context, st *model.AnalysisState) error {
	if !st.HasRawText() {
		st.Log("Event extraction skipped: no raw text provided")
		return nil
	}

	prompt := extractionPrompt(*st.RawText, st.RetrievedEvents)
	st.Extraction = callJSON[model.ExtractionResult](ctx, s.caller, st, StageExtraction, "Event extraction", extractionSystem, prompt)
	if ext := st.Extraction.Get(); ext != nil {
		st.Log("Extracted %d events from raw text (confidence %.2f)", len(ext.Events), ext.Confidence)
	}
	return nil
}
