package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cram/internal/cache"
)

func TestReportLoader_URLIsCached(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, "<html><head><title>Sitrep</title></head><body><p>Shelling in Omdurman.</p></body></html>")
	}))
	defer server.Close()

	loader := NewReportLoader(
		NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", ""),
		cache.NewMemoryCache(time.Minute, time.Minute),
		time.Minute,
		nil,
	)

	first, err := loader.Load(context.Background(), server.URL+"/sitrep")
	require.NoError(t, err)
	assert.Equal(t, "Sitrep", first.Title)
	assert.Equal(t, "Shelling in Omdurman.", first.Text)
	assert.False(t, first.Cached)

	second, err := loader.Load(context.Background(), server.URL+"/sitrep")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Title, second.Title)
	assert.Equal(t, int32(1), hits.Load())
}

func TestReportLoader_PlainTextAndEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if r.URL.Path == "/empty" {
			_, _ = fmt.Fprint(w, "   ")
			return
		}
		_, _ = fmt.Fprint(w, "<b>not html</b>")
	}))
	defer server.Close()

	loader := NewReportLoader(NewFetcher(5*time.Second, "a", 1<<20, false, "", "", ""), nil, 0, nil)

	rep, err := loader.Load(context.Background(), server.URL+"/plain")
	require.NoError(t, err)
	assert.Equal(t, "<b>not html</b>", rep.Text)

	_, err = loader.Load(context.Background(), server.URL+"/empty")
	assert.Error(t, err)
}

func TestReportLoader_Files(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "report.txt")
	htm := filepath.Join(dir, "report.html")
	require.NoError(t, os.WriteFile(txt, []byte("  Armed men attacked a convoy.\n"), 0o644))
	require.NoError(t, os.WriteFile(htm, []byte("<p>Market shelled.</p>"), 0o644))

	loader := NewReportLoader(nil, nil, 0, nil)

	rep, err := loader.Load(context.Background(), txt)
	require.NoError(t, err)
	assert.Equal(t, "Armed men attacked a convoy.", rep.Text)

	rep, err = loader.Load(context.Background(), htm)
	require.NoError(t, err)
	assert.Equal(t, "Market shelled.", rep.Text)

	_, err = loader.Load(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}
