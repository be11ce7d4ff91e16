package model

import "fmt"

// ExtractionResult is the structured output of event extraction from raw text
type ExtractionResult struct {
	Events     []ExtractedEvent `json:"events"`
	Confidence float64          `json:"confidence"`
}

// ExtractedEvent is a single event the model found in the raw narrative
type ExtractedEvent struct {
	EventType  string   `json:"event_type"`
	Date       *string  `json:"date"`
	Location   *string  `json:"location"`
	Actors     []string `json:"actors"`
	Fatalities int      `json:"fatalities"`
}

// RequiredFields lists the keys an extraction reply must carry
func (ExtractionResult) RequiredFields() []string {
	return []string{"events", "events[].event_type", "confidence"}
}

// Validate checks the extraction schema
func (r ExtractionResult) Validate() error {
	if r.Events == nil {
		return fmt.Errorf("missing events")
	}
	for i, ev := range r.Events {
		if ev.EventType == "" {
			return fmt.Errorf("events[%d]: missing event_type", i)
		}
		if ev.Fatalities < 0 {
			return fmt.Errorf("events[%d]: negative fatalities", i)
		}
	}
	return checkUnit("confidence", r.Confidence)
}

// TrendClassification is the short-term trajectory label
type TrendClassification string

const (
	TrendEscalating   TrendClassification = "ESCALATING"
	TrendStable       TrendClassification = "STABLE"
	TrendDeescalating TrendClassification = "DEESCALATING"
	TrendVolatile     TrendClassification = "VOLATILE"
)

// ConfidenceLabel is the coarse confidence a model attaches to its trend call
type ConfidenceLabel string

const (
	ConfidenceLow    ConfidenceLabel = "LOW"
	ConfidenceMedium ConfidenceLabel = "MEDIUM"
	ConfidenceHigh   ConfidenceLabel = "HIGH"
)

// TrendAnalysis is the output of the trend stage
type TrendAnalysis struct {
	TrendClassification TrendClassification `json:"trend_classification"`
	Drivers             []string            `json:"drivers"`
	Forecast7Days       Forecast            `json:"forecast_7_days"`
	Confidence          ConfidenceLabel     `json:"confidence"`
}

// Forecast holds 0-100 likelihoods for the next seven days
type Forecast struct {
	ArmedClashLikelihood        float64 `json:"armed_clash_likelihood"`
	CivilianTargetingLikelihood float64 `json:"civilian_targeting_likelihood"`
}

// RequiredFields lists the keys a trend reply must carry
func (TrendAnalysis) RequiredFields() []string {
	return []string{
		"trend_classification",
		"drivers",
		"forecast_7_days.armed_clash_likelihood",
		"forecast_7_days.civilian_targeting_likelihood",
		"confidence",
	}
}

// Validate checks the trend schema
func (t TrendAnalysis) Validate() error {
	switch t.TrendClassification {
	case TrendEscalating, TrendStable, TrendDeescalating, TrendVolatile:
	default:
		return fmt.Errorf("invalid trend_classification %q", t.TrendClassification)
	}
	switch t.Confidence {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
	default:
		return fmt.Errorf("invalid confidence %q", t.Confidence)
	}
	if err := checkPercent("armed_clash_likelihood", t.Forecast7Days.ArmedClashLikelihood); err != nil {
		return err
	}
	return checkPercent("civilian_targeting_likelihood", t.Forecast7Days.CivilianTargetingLikelihood)
}

// Recommendation is the scenario verdict for an intervention
type Recommendation string

const (
	RecommendProceed Recommendation = "PROCEED"
	RecommendModify  Recommendation = "MODIFY"
	RecommendAvoid   Recommendation = "AVOID"
)

// ScenarioSet is the output of the scenario stage
type ScenarioSet struct {
	Scenarios []Scenario `json:"scenarios"`
}

// Scenario is the optimistic/pessimistic projection for one intervention
type Scenario struct {
	Intervention   string          `json:"intervention"`
	Optimistic     OptimisticCase  `json:"optimistic"`
	Pessimistic    PessimisticCase `json:"pessimistic"`
	Recommendation Recommendation  `json:"recommendation"`
}

// OptimisticCase describes the best plausible outcome
type OptimisticCase struct {
	Description        string  `json:"description"`
	SuccessProbability float64 `json:"success_probability"`
}

// PessimisticCase describes the worst plausible outcome
type PessimisticCase struct {
	Description     string  `json:"description"`
	RiskProbability float64 `json:"risk_probability"`
}

// RequiredFields lists the keys a scenario reply must carry
func (ScenarioSet) RequiredFields() []string {
	return []string{
		"scenarios[].intervention",
		"scenarios[].optimistic.success_probability",
		"scenarios[].pessimistic.risk_probability",
		"scenarios[].recommendation",
	}
}

// Validate checks the scenario schema
func (s ScenarioSet) Validate() error {
	if s.Scenarios == nil {
		return fmt.Errorf("missing scenarios")
	}
	for i, sc := range s.Scenarios {
		switch sc.Recommendation {
		case RecommendProceed, RecommendModify, RecommendAvoid:
		default:
			return fmt.Errorf("scenarios[%d]: invalid recommendation %q", i, sc.Recommendation)
		}
		if err := checkPercent("success_probability", sc.Optimistic.SuccessProbability); err != nil {
			return fmt.Errorf("scenarios[%d]: %w", i, err)
		}
		if err := checkPercent("risk_probability", sc.Pessimistic.RiskProbability); err != nil {
			return fmt.Errorf("scenarios[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidationStatus is the verdict of the consistency check
type ValidationStatus string

const (
	ValidationPassed  ValidationStatus = "PASSED"
	ValidationWarning ValidationStatus = "WARNING"
	ValidationFailed  ValidationStatus = "FAILED"
)

// IssueType classifies a validation issue
type IssueType string

const (
	IssueInconsistency IssueType = "INCONSISTENCY"
	IssueDataGap       IssueType = "DATA_GAP"
)

// Validation is the output of the consistency stage
type Validation struct {
	ValidationStatus  ValidationStatus  `json:"validation_status"`
	Issues            []ValidationIssue `json:"issues"`
	OverallConfidence float64           `json:"overall_confidence"`
}

// ValidationIssue is one problem found across the stage outputs
type ValidationIssue struct {
	Type        IssueType       `json:"type"`
	Description string          `json:"description"`
	Severity    ConfidenceLabel `json:"severity"`
}

// RequiredFields lists the keys a validation reply must carry
func (Validation) RequiredFields() []string {
	return []string{"validation_status", "issues", "overall_confidence"}
}

// Validate checks the validation schema
func (v Validation) Validate() error {
	switch v.ValidationStatus {
	case ValidationPassed, ValidationWarning, ValidationFailed:
	default:
		return fmt.Errorf("invalid validation_status %q", v.ValidationStatus)
	}
	for i, issue := range v.Issues {
		switch issue.Type {
		case IssueInconsistency, IssueDataGap:
		default:
			return fmt.Errorf("issues[%d]: invalid type %q", i, issue.Type)
		}
		switch issue.Severity {
		case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		default:
			return fmt.Errorf("issues[%d]: invalid severity %q", i, issue.Severity)
		}
	}
	return checkUnit("overall_confidence", v.OverallConfidence)
}

func checkPercent(field string, v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%s out of range [0,100]: %v", field, v)
	}
	return nil
}

func checkUnit(field string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s out of range [0,1]: %v", field, v)
	}
	return nil
}
