package pipeline

// Stage names, in walk order
const (
	StageRetrieval  = "retrieval"
	StageExtraction = "extraction"
	StageTrend      = "trend"
	StageScenario   = "scenario"
	StageValidation = "validation"
	StageApproval   = "approval"
	StageNarrative  = "narrative"
)
