package cli

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/audit"
	"github.com/ppiankov/cram/internal/cache"
	"github.com/ppiankov/cram/internal/ingest"
	"github.com/ppiankov/cram/internal/llm"
	"github.com/ppiankov/cram/internal/model"
	"github.com/ppiankov/cram/internal/pipeline"
	"github.com/ppiankov/cram/internal/retrieval"
	"github.com/ppiankov/cram/internal/worker"
)

// app owns the collaborators of one CLI invocation. Each is built on first
// use so commands only pay for what they touch.
type app struct {
	cfg    *model.Config
	logger *zap.Logger

	providerOnce sync.Once
	provider     llm.Provider
	providerErr  error

	retrieverOnce sync.Once
	retriever     retrieval.Retriever
	qdrant        *retrieval.QdrantRetriever
	retrieverErr  error

	cacheOnce sync.Once
	cache     cache.Cache

	auditOnce sync.Once
	audit     *audit.Logger
}

func newApp(cfg *model.Config, logger *zap.Logger) *app {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &app{cfg: cfg, logger: logger}
}

// Provider returns the model provider, rate limited when configured
func (a *app) Provider() (llm.Provider, error) {
	a.providerOnce.Do(func() {
		p, err := llm.NewProvider(llm.ConfigFromModel(a.cfg))
		if err != nil {
			a.providerErr = fmt.Errorf("create model provider: %w", err)
			return
		}
		if rl := a.cfg.RateLimit; rl.RequestsPerSecond > 0 {
			p = llm.WithRateLimit(p, worker.NewLimiter(rl.RequestsPerSecond, rl.Burst))
		}
		a.provider = p
	})
	return a.provider, a.providerErr
}

func (a *app) Cache() cache.Cache {
	a.cacheOnce.Do(func() {
		c := a.cfg.Cache
		a.cache = cache.NewLayeredCache(c.MemoryTTL, c.DiskDir, c.DiskTTL)
	})
	return a.cache
}

// Retriever returns the configured evidence store, cached when enabled
func (a *app) Retriever() (retrieval.Retriever, error) {
	a.retrieverOnce.Do(func() {
		r, err := a.buildRetriever()
		if err != nil {
			a.retrieverErr = err
			return
		}
		if a.cfg.Cache.Enabled {
			r = retrieval.NewCachedRetriever(r, a.Cache(), a.cfg.Cache.MemoryTTL, a.namespace(), a.logger.Named("retrieval"))
		}
		a.retriever = r
	})
	return a.retriever, a.retrieverErr
}

func (a *app) buildRetriever() (retrieval.Retriever, error) {
	rc := a.cfg.Retrieval
	if strings.EqualFold(rc.Backend, "static") || rc.EventsFile != "" {
		if rc.EventsFile == "" {
			return nil, fmt.Errorf("%w: static backend needs retrieval.events_file", retrieval.ErrNotConfigured)
		}
		s, err := retrieval.LoadStaticRetriever(rc.EventsFile)
		if err != nil {
			return nil, err
		}
		a.logger.Info("using static evidence file", zap.String("path", rc.EventsFile), zap.Int("events", s.Len()))
		return s, nil
	}

	embedder, err := retrieval.NewOpenAIEmbedder(retrieval.EmbedderConfig{
		BaseURL:    rc.EmbeddingURL,
		APIKey:     rc.EmbeddingKey,
		Model:      rc.EmbeddingModel,
		HTTPProxy:  a.cfg.HTTP.HTTPProxy,
		HTTPSProxy: a.cfg.HTTP.HTTPSProxy,
		NoProxy:    a.cfg.HTTP.NoProxy,
	})
	if err != nil {
		return nil, err
	}
	q, err := retrieval.NewQdrantRetriever(retrieval.QdrantConfig{
		URL:        rc.QdrantURL,
		APIKey:     rc.QdrantAPIKey,
		Collection: rc.Collection,
		Timeout:    time.Duration(rc.Timeout) * time.Second,
	}, embedder)
	if err != nil {
		return nil, err
	}
	a.qdrant = q
	return q, nil
}

func (a *app) namespace() string {
	if a.cfg.Retrieval.EventsFile != "" {
		return "static:" + a.cfg.Retrieval.EventsFile
	}
	return a.cfg.Retrieval.Collection
}

// Audit returns the run audit logger
func (a *app) Audit() *audit.Logger {
	a.auditOnce.Do(func() {
		ac := a.cfg.Audit
		collection := a.cfg.Retrieval.Collection
		if a.cfg.Retrieval.EventsFile != "" {
			collection = a.cfg.Retrieval.EventsFile
		}
		a.audit = audit.NewLogger(audit.Config{
			Dir:        ac.Dir,
			FileName:   ac.FileName,
			MaxSize:    ac.MaxSizeMB,
			MaxBackups: ac.MaxBackups,
			Compress:   ac.Compress,
		}, audit.Meta{
			LLMModel:              a.modelName(),
			LLMBaseURL:            a.cfg.LLM.BaseURL,
			EmbeddingModel:        a.cfg.Retrieval.EmbeddingModel,
			VectorStoreCollection: collection,
		}, a.logger.Named("audit"))
	})
	return a.audit
}

func (a *app) modelName() string {
	if p, err := a.Provider(); err == nil {
		return p.Model()
	}
	return a.cfg.LLM.Model
}

// Pipeline wires the analysis pipeline from the collaborators
func (a *app) Pipeline() (*pipeline.Pipeline, error) {
	provider, err := a.Provider()
	if err != nil {
		return nil, err
	}
	retriever, err := a.Retriever()
	if err != nil {
		return nil, fmt.Errorf("create retriever: %w", err)
	}
	policy := a.cfg.Policy
	return pipeline.NewPipeline(pipeline.Options{
		Provider:  provider,
		Retriever: retriever,
		Audit:     a.Audit(),
		Logger:    a.logger,
		Policy:    &policy,
	})
}

// Reports returns a loader for situation reports
func (a *app) Reports() *ingest.ReportLoader {
	h := a.cfg.HTTP
	fetcher := ingest.NewFetcher(h.Timeout, h.UserAgent, h.MaxBodyBytes, h.RespectRobots, h.HTTPProxy, h.HTTPSProxy, h.NoProxy)
	var c cache.Cache
	if a.cfg.Cache.Enabled {
		c = a.Cache()
	}
	return ingest.NewReportLoader(fetcher, c, a.cfg.Cache.DiskTTL, a.logger)
}

// Close flushes the audit log
func (a *app) Close() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			a.logger.Warn("close audit log", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
