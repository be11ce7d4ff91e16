package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/llm"
	"github.com/ppiankov/cram/internal/metrics"
	"github.com/ppiankov/cram/internal/model"
)

// modelCaller invokes the model provider on behalf of a stage
type modelCaller struct {
	provider llm.Provider
	logger   *zap.Logger
}

func (c *modelCaller) invoke(ctx context.Context, stage, system, prompt string) (string, error) {
	started := time.Now()
	text, err := c.provider.Invoke(ctx, system, prompt)
	metrics.LLMRequestDuration.WithLabelValues(c.provider.Name(), stage).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider.Name(), stage, "call_failed").Inc()
		c.logger.Warn("model call failed",
			zap.String("stage", stage),
			zap.String("provider", c.provider.Name()),
			zap.Error(err),
		)
		return "", err
	}
	return text, nil
}

// callJSON runs one model call and parses the reply into T.
// Call failure yields nil, parse failure yields a ParseError result; both are
// recorded in the run log and the run continues.
func callJSON[T any](ctx context.Context, c *modelCaller, state *model.AnalysisState, stage, label, system, prompt string) *model.StageResult[T] {
	raw, err := c.invoke(ctx, stage, system, prompt)
	if err != nil {
		state.Log("%s failed: model call error", label)
		return nil
	}

	v, err := llm.ParseJSON[T](raw)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(c.provider.Name(), stage, "parse_failed").Inc()
		c.logger.Warn("model response did not match schema",
			zap.String("stage", stage),
			zap.Error(err),
			zap.Int("raw_len", len(raw)),
		)
		state.Log("%s failed: response could not be parsed", label)
		return model.ParseError[T](raw)
	}

	metrics.LLMRequestsTotal.WithLabelValues(c.provider.Name(), stage, "ok").Inc()
	return model.Ok(v)
}
