package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cram/internal/model"
	"github.com/ppiankov/cram/internal/retrieval"
)

const eventsJSON = `[
  {"id": "a1", "metadata": {"source": "ACLED", "region": "Khartoum", "date": "2024-05-01", "event_type": "Battles", "actors": ["SAF", "RSF"]}},
  {"source": "GDELT", "region": "Kassala", "date": "2024-05-02", "event_type": "190"}
]`

func TestApp_StaticRetrieverWithCache(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(events, []byte(eventsJSON), 0o644))

	cfg := model.DefaultConfig()
	cfg.Retrieval.EventsFile = events
	cfg.Audit.Dir = filepath.Join(dir, "audit")
	a := newApp(cfg, nil)

	r, err := a.Retriever()
	require.NoError(t, err)
	assert.IsType(t, &retrieval.CachedRetriever{}, r)

	hits, err := r.Search(context.Background(), "conflict in Khartoum", map[string]string{"region": "Khartoum"}, 20)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a1", hits[0].ID)

	again, err := a.Retriever()
	require.NoError(t, err)
	assert.Same(t, r, again)
	assert.Nil(t, a.qdrant)

	assert.Equal(t, filepath.Join(dir, "audit", "analysis_runs.jsonl"), a.Audit().Path())
}

func TestApp_StaticBackendNeedsFile(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Retrieval.Backend = "static"
	_, err := newApp(cfg, nil).Retriever()
	assert.ErrorIs(t, err, retrieval.ErrNotConfigured)
}

func TestApp_ProviderRateLimited(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.RateLimit.RequestsPerSecond = 5
	a := newApp(cfg, nil)

	p, err := a.Provider()
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, "qwen2.5:14b", p.Model())

	cfg2 := model.DefaultConfig()
	cfg2.LLM.Provider = "bard"
	_, err = newApp(cfg2, nil).Provider()
	assert.Error(t, err)
}

func TestApp_Pipeline(t *testing.T) {
	dir := t.TempDir()
	events := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(events, []byte(eventsJSON), 0o644))

	cfg := model.DefaultConfig()
	cfg.Retrieval.EventsFile = events
	cfg.Audit.Dir = dir
	cfg.Policy.ApprovalThreshold = 0.9

	p, err := newApp(cfg, nil).Pipeline()
	require.NoError(t, err)
	assert.Equal(t, 0.9, p.Policy().ApprovalThreshold)
}
