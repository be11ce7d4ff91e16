package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cram/internal/model"
)

func sampleResult() *model.AnalysisResult {
	narrative := "## Overview\nFighting continues around the capital."
	return &model.AnalysisResult{
		Region:           "Khartoum",
		Timestamp:        time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC),
		Events:           []model.CanonicalEvent{},
		RetrievalContext: &model.RetrievalContext{Query: "q", Filters: model.RetrievalFilters{Region: "Khartoum", Mode: model.ModeNationalFallback}},
		Trend:            model.ParseError[model.TrendAnalysis]("garbage"),
		Validation:       model.Ok(model.Validation{ValidationStatus: model.ValidationWarning, Issues: []model.ValidationIssue{}, OverallConfidence: 0.6}),
		ApprovalRequired: true,
		ApprovalStatus:   model.ApprovalPending,
		ConfidenceScore:  0.6,
		Messages:         []string{},
		Narrative:        &narrative,
		Explainability: &model.Explainability{Reasoning: model.Reasoning{
			DecisionPrompts: []string{"Is more evidence needed?"},
		}},
		RunID: "abc123",
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleResult())

	assert.Contains(t, md, "# Conflict risk brief: Khartoum")
	assert.Contains(t, md, "Approval: pending (confidence 0.60)")
	assert.Contains(t, md, "Fighting continues around the capital.")
	assert.Contains(t, md, "## Questions before acting\n- Is more evidence needed?")
}

func TestRenderer_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(&bytes.Buffer{})
	result := sampleResult()

	jsonPath := filepath.Join(dir, "nested", "result.json")
	require.NoError(t, r.RenderJSON(result, jsonPath))

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "pending", decoded["approval_status"])
	assert.Equal(t, map[string]any{"error": "parse_failed", "raw": "garbage"}, decoded["trend_analysis"])
	assert.Nil(t, decoded["scenarios"])

	mdPath := filepath.Join(dir, "brief.md")
	require.NoError(t, r.RenderMarkdown(result, mdPath))
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, Markdown(result), string(md))
}

func TestRenderer_Summary(t *testing.T) {
	var out bytes.Buffer
	NewRenderer(&out).RenderSummary(sampleResult())

	s := out.String()
	assert.Contains(t, s, "Retrieval:   0 events (national_fallback)")
	assert.Contains(t, s, "Trend:       not available")
	assert.Contains(t, s, "Validation:  WARNING, 0 issues")
	assert.Contains(t, s, "Audit log:   not written (run abc123)")
}
