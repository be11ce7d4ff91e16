package audit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cram/internal/model"
)

func testState() *model.AnalysisState {
	st := model.NewAnalysisState(model.AnalysisRequest{Region: "Khartoum"}, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	st.Log("Retrieved 0 events")
	st.ConfidenceScore = 0.5
	st.Explainability = &model.Explainability{}
	return st
}

func TestAppend_WritesOneLinePerRun(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger(Config{Dir: filepath.Join(dir, "nested", "audit")}, Meta{LLMModel: "qwen2.5:14b"}, nil)
	defer l.Close()

	explain := &model.Explainability{Reasoning: model.Reasoning{DecisionPrompts: []string{"p"}}}

	id1, path1 := l.Append("", testState(), explain)
	id2, path2 := l.Append("fixed-id", testState(), explain)

	require.NotEmpty(t, path1)
	assert.Equal(t, path1, path2)
	assert.Equal(t, filepath.Join(dir, "nested", "audit", "analysis_runs.jsonl"), path1)
	assert.Len(t, id1, 32)
	assert.NotContains(t, id1, "-")
	assert.Equal(t, "fixed-id", id2)

	f, err := os.Open(path1)
	require.NoError(t, err)
	defer f.Close()

	records, bad, err := ReadRecords(f)
	require.NoError(t, err)
	assert.Zero(t, bad)
	require.Len(t, records, 2)

	rec := records[0]
	assert.Equal(t, id1, rec.RunID)
	assert.Equal(t, "Khartoum", rec.Payload.State.Region)
	assert.Nil(t, rec.Payload.State.Explainability, "explainability is stored beside the state, not inside it")
	assert.Equal(t, []string{"p"}, rec.Payload.Explainability.Reasoning.DecisionPrompts)
	assert.Equal(t, "qwen2.5:14b", rec.Meta.LLMModel)
	require.Len(t, rec.Meta.DataSources, 2)
	assert.Equal(t, "GDELT", rec.Meta.DataSources[0].Name)
	_, err = time.Parse("2006-01-02T15:04:05.000000", rec.LoggedAt)
	assert.NoError(t, err)
}

func TestAppend_DoesNotMutateState(t *testing.T) {
	l := NewLogger(Config{Dir: t.TempDir()}, Meta{}, nil)
	defer l.Close()

	st := testState()
	_, path := l.Append("", st, nil)
	require.NotEmpty(t, path)
	assert.NotNil(t, st.Explainability)
}

func TestAppend_FailureYieldsEmptyPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	l := NewLogger(Config{Dir: filepath.Join(blocker, "audit")}, Meta{}, nil)
	runID, path := l.Append("", testState(), nil)
	assert.NotEmpty(t, runID)
	assert.Empty(t, path)
}

func TestAppend_Concurrent(t *testing.T) {
	l := NewLogger(Config{Dir: t.TempDir()}, Meta{}, nil)
	defer l.Close()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, path := l.Append("", testState(), nil)
			assert.NotEmpty(t, path)
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(l.Path())
	require.NoError(t, err)
	records, bad, err := ReadRecords(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Zero(t, bad, "interleaved writes would corrupt lines")
	assert.Len(t, records, n)
}

func TestReadRecords_SkipsMalformed(t *testing.T) {
	in := `{"run_id":"a","logged_at":"x","payload":{"state":null,"explainability":null},"meta":{}}
not json

{"run_id":"b","logged_at":"y","payload":{},"meta":{}}
`
	records, bad, err := ReadRecords(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 1, bad)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].RunID)
}

func TestNewLogger_Defaults(t *testing.T) {
	l := NewLogger(Config{}, Meta{}, nil)
	assert.Equal(t, filepath.Join("data", "audit_logs", "analysis_runs.jsonl"), l.Path())
	assert.Equal(t, DefaultDataSources, l.meta.DataSources)
}
