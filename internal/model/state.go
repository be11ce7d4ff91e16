package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRequest is returned for malformed analysis requests or pipelines
var ErrInvalidRequest = errors.New("invalid analysis request")

// ApprovalStatus is the state of the human-approval gate
type ApprovalStatus string

const (
	ApprovalPending      ApprovalStatus = "pending"
	ApprovalAutoApproved ApprovalStatus = "auto-approved"
)

// AnalysisRequest is the input to a single analysis run
type AnalysisRequest struct {
	Region        string   `json:"region" yaml:"region"`
	RawText       *string  `json:"raw_data,omitempty" yaml:"raw_data,omitempty"`
	Interventions []string `json:"interventions" yaml:"interventions"`
}

// Validate rejects requests that cannot form a well-defined initial state
func (r AnalysisRequest) Validate() error {
	for i, iv := range r.Interventions {
		if strings.TrimSpace(iv) == "" {
			return fmt.Errorf("%w: interventions[%d] is blank", ErrInvalidRequest, i)
		}
	}
	return nil
}

// AnalysisState is the run-state shared by every stage of one analysis.
// Each field is written by its owning stage; Messages only grows.
type AnalysisState struct {
	// Inputs
	Region        string   `json:"region"`
	RawText       *string  `json:"raw_data"`
	Interventions []string `json:"interventions"`

	// Retrieval
	RetrievedEvents  []EvidenceHit     `json:"retrieved_events"`
	Events           []CanonicalEvent  `json:"events"`
	RetrievalContext *RetrievalContext `json:"retrieval_context"`

	// Stage outputs
	Extraction *StageResult[ExtractionResult] `json:"extracted_events"`
	Trend      *StageResult[TrendAnalysis]    `json:"trend_analysis"`
	Scenarios  *StageResult[ScenarioSet]      `json:"scenarios"`
	Validation *StageResult[Validation]       `json:"validation"`
	Narrative  *string                        `json:"narrative"`

	// Approval gate
	ApprovalRequired bool           `json:"human_approval_required"`
	ApprovalStatus   ApprovalStatus `json:"approval_status,omitempty"`

	// Tracing
	Messages        []string  `json:"messages"`
	ConfidenceScore float64   `json:"confidence_score"`
	Timestamp       time.Time `json:"timestamp"`

	Explainability *Explainability `json:"explainability,omitempty"`
}

// NewAnalysisState builds the initial state for a request
func NewAnalysisState(req AnalysisRequest, now time.Time) *AnalysisState {
	interventions := make([]string, 0, len(req.Interventions))
	for _, iv := range req.Interventions {
		interventions = append(interventions, strings.TrimSpace(iv))
	}
	return &AnalysisState{
		Region:          strings.TrimSpace(req.Region),
		RawText:         req.RawText,
		Interventions:   interventions,
		RetrievedEvents: []EvidenceHit{},
		Events:          []CanonicalEvent{},
		Messages:        []string{},
		Timestamp:       now,
	}
}

// Log appends a human-readable step to the run's message log
func (s *AnalysisState) Log(format string, args ...any) {
	s.Messages = append(s.Messages, fmt.Sprintf(format, args...))
}

// HasRawText reports whether a non-blank raw narrative was supplied
func (s *AnalysisState) HasRawText() bool {
	return s.RawText != nil && strings.TrimSpace(*s.RawText) != ""
}

// UniqueMessages returns the message log with repeats removed, first occurrence kept
func (s *AnalysisState) UniqueMessages() []string {
	seen := make(map[string]bool, len(s.Messages))
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// AnalysisResult is the response of one analysis run
type AnalysisResult struct {
	Region           string                         `json:"region"`
	Timestamp        time.Time                      `json:"timestamp"`
	Events           []CanonicalEvent               `json:"events"`
	RetrievalContext *RetrievalContext              `json:"retrieval_context"`
	Extraction       *StageResult[ExtractionResult] `json:"extracted_events"`
	Trend            *StageResult[TrendAnalysis]    `json:"trend_analysis"`
	Scenarios        *StageResult[ScenarioSet]      `json:"scenarios"`
	Validation       *StageResult[Validation]       `json:"validation"`
	ApprovalRequired bool                           `json:"human_approval_required"`
	ApprovalStatus   ApprovalStatus                 `json:"approval_status"`
	ConfidenceScore  float64                        `json:"confidence_score"`
	Messages         []string                       `json:"messages"`
	Narrative        *string                        `json:"narrative"`
	Explainability   *Explainability                `json:"explainability"`
	RunID            string                         `json:"run_id"`
	AuditLogPath     string                         `json:"audit_log_path"`
}

// Result projects a finished state into the response shape
func (s *AnalysisState) Result(runID, auditLogPath string) *AnalysisResult {
	return &AnalysisResult{
		Region:           s.Region,
		Timestamp:        s.Timestamp,
		Events:           s.Events,
		RetrievalContext: s.RetrievalContext,
		Extraction:       s.Extraction,
		Trend:            s.Trend,
		Scenarios:        s.Scenarios,
		Validation:       s.Validation,
		ApprovalRequired: s.ApprovalRequired,
		ApprovalStatus:   s.ApprovalStatus,
		ConfidenceScore:  s.ConfidenceScore,
		Messages:         s.UniqueMessages(),
		Narrative:        s.Narrative,
		Explainability:   s.Explainability,
		RunID:            runID,
		AuditLogPath:     auditLogPath,
	}
}
