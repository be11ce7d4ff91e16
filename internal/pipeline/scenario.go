package pipeline

import (
	"context"

	"github.com/ppiankov/cram/internal/model"
)

type scenarioStage struct {
	caller *modelCaller
}

func (s *scenarioStage) Name() string { return StageScenario }

func (s *scenarioStage) Execute(ctx context.Context, st *model.AnalysisState) error {
	if len(st.Interventions) == 0 {
		st.Log("Scenario generation skipped: no interventions provided")
		return nil
	}

	prompt := scenarioPrompt(st.Region, st.Trend, st.Interventions)
	st.Scenarios = callJSON[model.ScenarioSet](ctx, s.caller, st, StageScenario, "Scenario generation", scenarioSystem, prompt)
	if set := st.Scenarios.Get(); set != nil {
		st.Log("Generated %d scenarios for %d interventions", len(set.Scenarios), len(st.Interventions))
	}
	return nil
}
