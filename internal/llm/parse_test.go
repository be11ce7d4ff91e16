package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ppiankov/cram/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON_Trend(t *testing.T) {
	raw := `{
		"trend_classification": "ESCALATING",
		"drivers": ["RSF offensive", "supply routes cut"],
		"forecast_7_days": {"armed_clash_likelihood": 80, "civilian_targeting_likelihood": 55},
		"confidence": "MEDIUM"
	}`

	trend, err := ParseJSON[model.TrendAnalysis](raw)
	require.NoError(t, err)
	assert.Equal(t, model.TrendEscalating, trend.TrendClassification)
	assert.Len(t, trend.Drivers, 2)
	assert.Equal(t, 80.0, trend.Forecast7Days.ArmedClashLikelihood)
}

func TestParseJSON_CodeFence(t *testing.T) {
	raw := "```json\n{\"validation_status\": \"PASSED\", \"issues\": [], \"overall_confidence\": 0.9}\n```"

	v, err := ParseJSON[model.Validation](raw)
	require.NoError(t, err)
	assert.Equal(t, model.ValidationPassed, v.ValidationStatus)
	assert.InDelta(t, 0.9, v.OverallConfidence, 1e-9)
}

func TestParseJSON_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "prose", raw: "The trend is stable."},
		{name: "prose before json", raw: `Sure! {"trend_classification":"STABLE"}`},
		{name: "truncated", raw: `{"trend_classification": "STABLE", "drivers": [`},
		{name: "trailing data", raw: `{"trend_classification":"STABLE","confidence":"LOW"} extra`},
		{name: "bad enum", raw: `{"trend_classification":"CALM","confidence":"LOW"}`},
		{name: "out of range", raw: `{"trend_classification":"STABLE","drivers":[],"confidence":"LOW","forecast_7_days":{"armed_clash_likelihood":140,"civilian_targeting_likelihood":10}}`},
		{name: "array", raw: `[{"trend_classification":"STABLE"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON[model.TrendAnalysis](tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "expected ErrParse, got %v", err)
		})
	}
}

func TestParseJSON_MissingRequiredFields(t *testing.T) {
	trendTests := []struct {
		name    string
		raw     string
		missing string
	}{
		{
			name:    "no forecast",
			raw:     `{"trend_classification":"STABLE","drivers":[],"confidence":"HIGH"}`,
			missing: "forecast_7_days",
		},
		{
			name:    "partial forecast",
			raw:     `{"trend_classification":"STABLE","drivers":[],"forecast_7_days":{"armed_clash_likelihood":30},"confidence":"HIGH"}`,
			missing: "forecast_7_days.civilian_targeting_likelihood",
		},
		{
			name:    "no drivers",
			raw:     `{"trend_classification":"STABLE","forecast_7_days":{"armed_clash_likelihood":30,"civilian_targeting_likelihood":5},"confidence":"HIGH"}`,
			missing: "drivers",
		},
		{
			name:    "null confidence",
			raw:     `{"trend_classification":"STABLE","drivers":[],"forecast_7_days":{"armed_clash_likelihood":30,"civilian_targeting_likelihood":5},"confidence":null}`,
			missing: "confidence",
		},
	}
	for _, tt := range trendTests {
		t.Run("trend "+tt.name, func(t *testing.T) {
			_, err := ParseJSON[model.TrendAnalysis](tt.raw)
			require.ErrorIs(t, err, ErrParse)
			assert.Contains(t, err.Error(), "missing "+tt.missing)
		})
	}

	validationTests := map[string]string{
		"overall_confidence": `{"validation_status":"PASSED","issues":[]}`,
		"validation_status":  `{"issues":[],"overall_confidence":0.8}`,
		"issues":             `{"validation_status":"PASSED","overall_confidence":0.8}`,
	}
	for field, raw := range validationTests {
		t.Run("validation "+field, func(t *testing.T) {
			_, err := ParseJSON[model.Validation](raw)
			require.ErrorIs(t, err, ErrParse)
			assert.Contains(t, err.Error(), "missing "+field)
		})
	}

	t.Run("scenario without pessimistic case", func(t *testing.T) {
		_, err := ParseJSON[model.ScenarioSet](`{"scenarios":[{"intervention":"aid corridor",
			"optimistic":{"description":"convoys pass","success_probability":50},
			"recommendation":"PROCEED"}]}`)
		require.ErrorIs(t, err, ErrParse)
		assert.Contains(t, err.Error(), "missing scenarios[0].pessimistic")
	})

	t.Run("scenario without success probability", func(t *testing.T) {
		_, err := ParseJSON[model.ScenarioSet](`{"scenarios":[{"intervention":"aid corridor",
			"optimistic":{"description":"convoys pass"},
			"pessimistic":{"description":"convoys looted","risk_probability":60},
			"recommendation":"PROCEED"}]}`)
		require.ErrorIs(t, err, ErrParse)
		assert.Contains(t, err.Error(), "missing scenarios[0].optimistic.success_probability")
	})

	t.Run("zero values present are accepted", func(t *testing.T) {
		v, err := ParseJSON[model.Validation](`{"validation_status":"FAILED","issues":[],"overall_confidence":0}`)
		require.NoError(t, err)
		assert.Zero(t, v.OverallConfidence)
	})
}

func TestParseJSON_ValidationConfidenceRange(t *testing.T) {
	_, err := ParseJSON[model.Validation](`{"validation_status":"WARNING","issues":[],"overall_confidence":1.7}`)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseJSON_ScenarioRequiresList(t *testing.T) {
	_, err := ParseJSON[model.ScenarioSet](`{"items": []}`)
	assert.ErrorIs(t, err, ErrParse)

	set, err := ParseJSON[model.ScenarioSet](`{"scenarios": [{"intervention": "ceasefire talks",
		"optimistic": {"description": "talks hold", "success_probability": 40},
		"pessimistic": {"description": "talks collapse", "risk_probability": 65},
		"recommendation": "MODIFY"}]}`)
	require.NoError(t, err)
	require.Len(t, set.Scenarios, 1)
	assert.Equal(t, model.RecommendModify, set.Scenarios[0].Recommendation)
}

type countingWaiter struct {
	calls int
	err   error
}

func (w *countingWaiter) Wait(ctx context.Context, key string) error {
	w.calls++
	return w.err
}

type echoProvider struct{ calls int }

func (p *echoProvider) Name() string                         { return "echo" }
func (p *echoProvider) Model() string                        { return "echo-1" }
func (p *echoProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *echoProvider) Invoke(ctx context.Context, system, prompt string) (string, error) {
	p.calls++
	return prompt, nil
}

func TestRateLimited_WaitsBeforeInvoke(t *testing.T) {
	inner := &echoProvider{}
	waiter := &countingWaiter{}
	p := WithRateLimit(inner, waiter)

	got, err := p.Invoke(context.Background(), "s", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, 1, waiter.calls)
	assert.Equal(t, "echo", p.Name())

	waiter.err = context.Canceled
	_, err = p.Invoke(context.Background(), "s", "again")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls, "provider must not be called when the limiter refuses")
}
