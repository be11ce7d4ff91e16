package model

// NodeStatus is the outcome of a stage as shown in the reasoning tree
type NodeStatus string

const (
	StatusCompleted NodeStatus = "completed"
	StatusSkipped   NodeStatus = "skipped"
	StatusError     NodeStatus = "error"
)

// ReasoningNode is a node in the read-only reasoning tree of a run
type ReasoningNode struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      NodeStatus      `json:"status"`
	Evidence    []EvidenceItem  `json:"evidence"`
	Children    []ReasoningNode `json:"children"`
}

// Child returns the direct child with the given ID
func (n ReasoningNode) Child(id string) (ReasoningNode, bool) {
	for _, c := range n.Children {
		if c.ID == id {
			return c, true
		}
	}
	return ReasoningNode{}, false
}

// EvidenceItem is a single piece of evidence supporting a reasoning step
type EvidenceItem struct {
	Source      string          `json:"source"`      // e.g. "GDELT", "trend_analysis", "validation", "log"
	Description string          `json:"description"` // Human-readable description
	Event       *CanonicalEvent `json:"event"`       // Structured event when the evidence is one
}

// NarrativeSection maps one section of the brief to its supporting events
type NarrativeSection struct {
	SectionID        string           `json:"section_id"`
	SectionLabel     string           `json:"section_label"`
	Text             string           `json:"text"`
	SupportingEvents []CanonicalEvent `json:"supporting_events"`
}

// Reasoning is the derived explanation of a run
type Reasoning struct {
	Tree              ReasoningNode      `json:"tree"`
	DecisionPrompts   []string           `json:"decision_prompts"`
	NarrativeEvidence []NarrativeSection `json:"narrative_evidence"`
}

// Explainability is attached to every finished run
type Explainability struct {
	Summary   ExplainabilitySummary `json:"summary"`
	Reasoning Reasoning             `json:"reasoning"`
}

// ExplainabilitySummary is a compact snapshot of what drove the result
type ExplainabilitySummary struct {
	Input      InputSummary      `json:"input"`
	Retrieval  RetrievalSummary  `json:"retrieval"`
	Trend      TrendSummary      `json:"trend"`
	Scenarios  ScenarioSummary   `json:"scenarios"`
	Validation ValidationSummary `json:"validation"`
	Meta       SummaryMeta       `json:"meta"`
}

type InputSummary struct {
	Region             string   `json:"region"`
	HasRawData         bool     `json:"has_raw_data"`
	InterventionsCount int      `json:"interventions_count"`
	Interventions      []string `json:"interventions"`
}

type RetrievalSummary struct {
	TotalEventsConsidered int            `json:"total_events_considered"`
	Sources               map[string]int `json:"sources"`
	TimeSpanDays          *int           `json:"time_span_days"`
}

type TrendSummary struct {
	TrendClassification TrendClassification `json:"trend_classification,omitempty"`
	ConfidenceLabel     ConfidenceLabel     `json:"confidence_label,omitempty"`
	Drivers             []string            `json:"drivers"`
	Forecast7Days       *Forecast           `json:"forecast_7_days"`
}

type ScenarioSummary struct {
	NumScenarios          int              `json:"num_scenarios"`
	Recommendations       []Recommendation `json:"recommendations"`
	MaxSuccessProbability *float64         `json:"max_success_probability"`
	MaxRiskProbability    *float64         `json:"max_risk_probability"`
}

type ValidationSummary struct {
	Status            ValidationStatus  `json:"status,omitempty"`
	IssueCount        int               `json:"issue_count"`
	Issues            []ValidationIssue `json:"issues"`
	OverallConfidence *float64          `json:"overall_confidence"`
}

type SummaryMeta struct {
	PipelineConfidenceScore float64 `json:"pipeline_confidence_score"`
	Timestamp               string  `json:"timestamp"`
}
