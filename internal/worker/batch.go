package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cram/internal/model"
)

// Analyzer runs one analysis
type Analyzer interface {
	Run(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisResult, error)
}

// AnalysisJob is one queued analysis
type AnalysisJob struct {
	Position int
	Request  model.AnalysisRequest
	Analyzer Analyzer
}

func (j *AnalysisJob) Index() int { return j.Position }

// Execute runs the analysis
func (j *AnalysisJob) Execute(ctx context.Context) Result {
	res, err := j.Analyzer.Run(ctx, j.Request)
	return &AnalysisOutcome{Position: j.Position, Request: j.Request, Result: res, Error: err}
}

// AnalysisOutcome is the result of an AnalysisJob
type AnalysisOutcome struct {
	Position int
	Request  model.AnalysisRequest
	Result   *model.AnalysisResult
	Error    error
}

func (o *AnalysisOutcome) Index() int      { return o.Position }
func (o *AnalysisOutcome) GetError() error { return o.Error }

// BatchProcessor runs many analyses concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	onDone      func(*AnalysisOutcome)
}

// NewBatchProcessor creates a processor running at most concurrency analyses at once
func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{analyzer: analyzer, concurrency: concurrency}
}

// OnDone registers a callback invoked, from the collecting goroutine, as each
// analysis finishes
func (b *BatchProcessor) OnDone(fn func(*AnalysisOutcome)) {
	b.onDone = fn
}

// Process runs every request and returns outcomes in request order.
// Requests not started before ctx is cancelled report ctx.Err().
func (b *BatchProcessor) Process(ctx context.Context, reqs []model.AnalysisRequest) []*AnalysisOutcome {
	out := make([]*AnalysisOutcome, len(reqs))
	if len(reqs) == 0 {
		return out
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, req := range reqs {
			if !pool.Submit(&AnalysisJob{Position: i, Request: req, Analyzer: b.analyzer}) {
				return
			}
		}
	}()

	for r := range pool.Results() {
		o := r.(*AnalysisOutcome)
		out[o.Position] = o
		if b.onDone != nil {
			b.onDone(o)
		}
	}

	for i, o := range out {
		if o == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &AnalysisOutcome{Position: i, Request: reqs[i], Error: err}
		}
	}
	return out
}

// ProcessFile reads requests from path and processes them
func (b *BatchProcessor) ProcessFile(ctx context.Context, path string) ([]*AnalysisOutcome, error) {
	reqs, err := ReadRequestsFile(path)
	if err != nil {
		return nil, fmt.Errorf("read requests: %w", err)
	}
	return b.Process(ctx, reqs), nil
}

// ReadRequestsFile loads analysis requests. YAML files (.yaml, .yml) hold a
// list of requests or a document with a "requests" list. Any other file is
// read one region per line, optionally followed by "|" and
// semicolon-separated interventions; blank lines and # comments are skipped
// and repeated lines are dropped.
func ReadRequestsFile(path string) ([]model.AnalysisRequest, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return readYAMLRequests(path)
	default:
		return readLineRequests(path)
	}
}

func readYAMLRequests(path string) ([]model.AnalysisRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	var list []model.AnalysisRequest
	if err := yaml.Unmarshal(data, &list); err != nil {
		var doc struct {
			Requests []model.AnalysisRequest `yaml:"requests"`
		}
		if err2 := yaml.Unmarshal(data, &doc); err2 != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		list = doc.Requests
	}
	for i, req := range list {
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
	}
	return list, nil
}

func readLineRequests(path string) ([]model.AnalysisRequest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var reqs []model.AnalysisRequest
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true

		region, rest, _ := strings.Cut(line, "|")
		req := model.AnalysisRequest{Region: strings.TrimSpace(region), Interventions: []string{}}
		for _, iv := range strings.Split(rest, ";") {
			if iv = strings.TrimSpace(iv); iv != "" {
				req.Interventions = append(req.Interventions, iv)
			}
		}
		reqs = append(reqs, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return reqs, nil
}
