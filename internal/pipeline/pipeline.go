package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/audit"
	"github.com/ppiankov/cram/internal/llm"
	"github.com/ppiankov/cram/internal/metrics"
	"github.com/ppiankov/cram/internal/model"
	"github.com/ppiankov/cram/internal/reasoning"
	"github.com/ppiankov/cram/internal/retrieval"
)

// AuditSink persists one record per finished run. It must not fail the run:
// an empty path signals that the record was not written.
type AuditSink interface {
	Append(runID string, state *model.AnalysisState, explain *model.Explainability) (string, string)
}

// Options are the collaborators of a Pipeline
type Options struct {
	Provider  llm.Provider        // required
	Retriever retrieval.Retriever // required
	Audit     AuditSink           // optional; runs are not persisted when nil
	Logger    *zap.Logger
	Policy    *model.Policy // nil means model.DefaultPolicy()
	Now       func() time.Time
}

// Pipeline orchestrates the analysis workflow. It is safe for concurrent use;
// every Run owns its state.
type Pipeline struct {
	graph  *Graph
	audit  AuditSink
	policy model.Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewPipeline wires the stage graph:
//
//	retrieval → extraction → trend → scenario → validation
//	validation → approval   (confidence below the approval threshold)
//	validation → narrative  (otherwise)
//	approval → narrative → done
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: pipeline requires a model provider", model.ErrInvalidRequest)
	}
	if opts.Retriever == nil {
		return nil, fmt.Errorf("%w: pipeline requires a retriever", model.ErrInvalidRequest)
	}

	policy := model.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("pipeline")
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	caller := &modelCaller{provider: opts.Provider, logger: logger}
	stages := []Stage{
		&retrievalStage{retriever: opts.Retriever, logger: logger},
		&extractionStage{caller: caller},
		&trendStage{caller: caller},
		&scenarioStage{caller: caller},
		&validationStage{caller: caller, policy: policy},
		&approvalStage{policy: policy},
		&narrativeStage{caller: caller, policy: policy},
	}
	needsApproval := func(s *model.AnalysisState) bool {
		return policy.RequiresApproval(s.ConfidenceScore)
	}
	edges := []Edge{
		{From: StageRetrieval, To: StageExtraction},
		{From: StageExtraction, To: StageTrend},
		{From: StageTrend, To: StageScenario},
		{From: StageScenario, To: StageValidation},
		{From: StageValidation, To: StageApproval, When: needsApproval},
		{From: StageValidation, To: StageNarrative},
		{From: StageApproval, To: StageNarrative},
		{From: StageNarrative, To: Done},
	}

	graph, err := NewGraph(StageRetrieval, stages, edges)
	if err != nil {
		return nil, fmt.Errorf("build stage graph: %w", err)
	}

	return &Pipeline{
		graph:  graph,
		audit:  opts.Audit,
		policy: policy,
		logger: logger,
		now:    now,
	}, nil
}

// Policy returns the thresholds the pipeline was built with
func (p *Pipeline) Policy() model.Policy {
	return p.policy
}

// Run executes one analysis. Stage failures degrade the result but never end
// the run; only a malformed request returns an error.
func (p *Pipeline) Run(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	state := model.NewAnalysisState(req, p.now().UTC())
	p.logger.Info("analysis started",
		zap.String("region", state.Region),
		zap.Bool("raw_text", state.HasRawText()),
		zap.Int("interventions", len(state.Interventions)),
	)

	steps, err := p.graph.Walk(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("run analysis: %w", err)
	}

	explain := reasoning.Build(state, p.policy)
	state.Explainability = explain
	p.observeStages(steps, explain)

	runID, logPath := audit.NewRunID(), ""
	if p.audit != nil {
		runID, logPath = p.audit.Append(runID, state, explain)
		if logPath == "" {
			metrics.AuditWriteFailures.Inc()
		}
	}

	metrics.RunsTotal.WithLabelValues(string(state.ApprovalStatus)).Inc()
	metrics.RunDuration.Observe(time.Since(started).Seconds())
	p.logger.Info("analysis complete",
		zap.String("run_id", runID),
		zap.String("region", state.Region),
		zap.String("approval_status", string(state.ApprovalStatus)),
		zap.Float64("confidence", state.ConfidenceScore),
		zap.Int("events", len(state.Events)),
		zap.Duration("elapsed", time.Since(started)),
	)

	return state.Result(runID, logPath), nil
}

// observeStages records stage durations labelled with the status the
// reasoning tree assigned to each stage
func (p *Pipeline) observeStages(steps []Step, explain *model.Explainability) {
	for _, step := range steps {
		status := string(model.StatusCompleted)
		if node, ok := explain.Reasoning.Tree.Child(step.Stage); ok {
			status = string(node.Status)
		}
		metrics.StageDuration.WithLabelValues(step.Stage, status).Observe(step.Elapsed.Seconds())
		p.logger.Debug("stage finished",
			zap.String("stage", step.Stage),
			zap.String("status", status),
			zap.Duration("elapsed", step.Elapsed),
		)
	}
}
