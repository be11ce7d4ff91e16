package ingest

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/cache"
)

// Report is raw narrative text ready for event extraction
type Report struct {
	Source string
	Title  string
	Text   string
	Cached bool
}

// ReportLoader turns a URL or local file into report text. Fetched reports
// are cached by URL when a cache is configured.
type ReportLoader struct {
	fetcher *Fetcher
	cache   cache.Cache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewReportLoader creates a loader. c may be nil.
func NewReportLoader(fetcher *Fetcher, c cache.Cache, ttl time.Duration, logger *zap.Logger) *ReportLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportLoader{fetcher: fetcher, cache: c, ttl: ttl, logger: logger.Named("ingest")}
}

// Load reads source, an http(s) URL or a file path
func (l *ReportLoader) Load(ctx context.Context, source string) (*Report, error) {
	if isURL(source) {
		return l.loadURL(ctx, source)
	}
	return loadFile(source)
}

func (l *ReportLoader) loadURL(ctx context.Context, rawURL string) (*Report, error) {
	key := cache.CacheKey("report", rawURL)
	if l.cache != nil {
		if data, ok := l.cache.Get(key); ok {
			title, text, _ := strings.Cut(string(data), "\n")
			return &Report{Source: rawURL, Title: title, Text: text, Cached: true}, nil
		}
	}
	if l.fetcher == nil {
		return nil, fmt.Errorf("fetch %s: no fetcher configured", rawURL)
	}

	res, err := l.fetcher.FetchWithRetry(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if res.Meta.Truncated {
		l.logger.Warn("report body truncated", zap.String("url", rawURL))
	}

	title, text := "", res.HTML
	if !strings.HasPrefix(res.Meta.ContentType, "text/plain") {
		title, text, err = VisibleText(res.HTML)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rawURL, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("report %s has no readable text", rawURL)
	}

	if l.cache != nil {
		if err := l.cache.Set(key, []byte(title+"\n"+text), l.ttl); err != nil {
			l.logger.Debug("report cache write failed", zap.Error(err))
		}
	}
	l.logger.Info("report fetched",
		zap.String("url", res.FinalURL),
		zap.Int("chars", len(text)),
	)
	return &Report{Source: rawURL, Title: title, Text: text}, nil
}

func loadFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	title, text := "", string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		title, text, err = VisibleText(text)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	return &Report{Source: path, Title: title, Text: strings.TrimSpace(text)}, nil
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
