package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/cram/internal/model"
)

// Done is the terminal pseudo-stage; a transition to it ends the walk
const Done = "_done"

var (
	ErrStageNotFound = errors.New("stage not found")
	ErrNoEdge        = errors.New("no matching edge")
	ErrCycle         = errors.New("graph contains a cycle")
)

// Stage transforms the run state. Stages degrade their own outputs on
// collaborator failures; a returned error is a contract violation and ends the run.
type Stage interface {
	Name() string
	Execute(ctx context.Context, state *model.AnalysisState) error
}

// Edge connects two stages. A nil When always matches.
type Edge struct {
	From string
	To   string
	When func(*model.AnalysisState) bool
}

func (e Edge) matches(s *model.AnalysisState) bool {
	return e.When == nil || e.When(s)
}

// Step records one executed stage
type Step struct {
	Stage   string
	Elapsed time.Duration
}

// Graph is a fixed, acyclic stage topology. Outgoing edges are evaluated in
// definition order and the first match wins.
type Graph struct {
	start     string
	stages    map[string]Stage
	edgeIndex map[string][]Edge
}

// NewGraph validates referential integrity and acyclicity
func NewGraph(start string, stages []Stage, edges []Edge) (*Graph, error) {
	g := &Graph{
		start:     start,
		stages:    make(map[string]Stage, len(stages)),
		edgeIndex: make(map[string][]Edge),
	}
	for _, s := range stages {
		if _, dup := g.stages[s.Name()]; dup {
			return nil, fmt.Errorf("duplicate stage %q", s.Name())
		}
		g.stages[s.Name()] = s
	}
	if _, ok := g.stages[start]; !ok {
		return nil, fmt.Errorf("%w: start stage %q", ErrStageNotFound, start)
	}
	for _, e := range edges {
		if _, ok := g.stages[e.From]; !ok {
			return nil, fmt.Errorf("%w: edge %s->%s references source %q", ErrStageNotFound, e.From, e.To, e.From)
		}
		if e.To != Done {
			if _, ok := g.stages[e.To]; !ok {
				return nil, fmt.Errorf("%w: edge %s->%s references target %q", ErrStageNotFound, e.From, e.To, e.To)
			}
		}
		g.edgeIndex[e.From] = append(g.edgeIndex[e.From], e)
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) checkAcyclic() error {
	const (
		unvisited = iota
		inProgress
		finished
	)
	mark := make(map[string]int, len(g.stages))

	var visit func(name string) error
	visit = func(name string) error {
		switch mark[name] {
		case inProgress:
			return fmt.Errorf("%w: through %q", ErrCycle, name)
		case finished:
			return nil
		}
		mark[name] = inProgress
		for _, e := range g.edgeIndex[name] {
			if e.To == Done {
				continue
			}
			if err := visit(e.To); err != nil {
				return err
			}
		}
		mark[name] = finished
		return nil
	}

	for name := range g.stages {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Walk runs stages from the start until a transition reaches Done or a stage
// has no outgoing edges. The context is handed to stages only; a started walk
// is never interrupted between stages.
func (g *Graph) Walk(ctx context.Context, state *model.AnalysisState) ([]Step, error) {
	var steps []Step
	visited := make(map[string]bool, len(g.stages))

	name := g.start
	for {
		stage, ok := g.stages[name]
		if !ok {
			return steps, fmt.Errorf("%w: %q", ErrStageNotFound, name)
		}
		if visited[name] {
			return steps, fmt.Errorf("%w: %q visited twice", ErrCycle, name)
		}
		visited[name] = true

		started := time.Now()
		err := stage.Execute(ctx, state)
		steps = append(steps, Step{Stage: name, Elapsed: time.Since(started)})
		if err != nil {
			return steps, fmt.Errorf("stage %s: %w", name, err)
		}

		edges := g.edgeIndex[name]
		if len(edges) == 0 {
			return steps, nil
		}

		next := ""
		for _, e := range edges {
			if e.matches(state) {
				next = e.To
				break
			}
		}
		if next == "" {
			return steps, fmt.Errorf("%w: from stage %q", ErrNoEdge, name)
		}
		if next == Done {
			return steps, nil
		}
		name = next
	}
}
