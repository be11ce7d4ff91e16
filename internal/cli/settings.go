package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ppiankov/cram/internal/model"
)

// legacyEnv maps config keys to environment variables understood by earlier
// deployments. The CRAM_ variable, when set, wins.
var legacyEnv = map[string]string{
	"audit.dir":                 "SUDANCRAM_AUDIT_LOG_DIR",
	"retrieval.qdrant_url":      "QDRANT_URL",
	"retrieval.qdrant_api_key":  "QDRANT_API_KEY",
	"retrieval.embedding_model": "EMBEDDING_MODEL_NAME",
	"retrieval.collection":      "VECTOR_STORE_COLLECTION",
}

// LoadConfig resolves the configuration: flags, CRAM_* environment,
// legacy environment, config file, then defaults
func LoadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	setDefaults(v, cfg)

	v.SetEnvPrefix("CRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envName(key), legacy); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyProviderEnv(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envName(key string) string {
	return "CRAM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func setDefaults(v *viper.Viper, d *model.Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)

	v.SetDefault("retrieval.backend", d.Retrieval.Backend)
	v.SetDefault("retrieval.qdrant_url", d.Retrieval.QdrantURL)
	v.SetDefault("retrieval.qdrant_api_key", d.Retrieval.QdrantAPIKey)
	v.SetDefault("retrieval.collection", d.Retrieval.Collection)
	v.SetDefault("retrieval.embedding_model", d.Retrieval.EmbeddingModel)
	v.SetDefault("retrieval.embedding_url", d.Retrieval.EmbeddingURL)
	v.SetDefault("retrieval.embedding_api_key", d.Retrieval.EmbeddingKey)
	v.SetDefault("retrieval.events_file", d.Retrieval.EventsFile)
	v.SetDefault("retrieval.timeout", d.Retrieval.Timeout)

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.memory_ttl", d.Cache.MemoryTTL)
	v.SetDefault("cache.disk_dir", d.Cache.DiskDir)
	v.SetDefault("cache.disk_ttl", d.Cache.DiskTTL)

	v.SetDefault("audit.dir", d.Audit.Dir)
	v.SetDefault("audit.file_name", d.Audit.FileName)
	v.SetDefault("audit.max_size_mb", d.Audit.MaxSizeMB)
	v.SetDefault("audit.max_backups", d.Audit.MaxBackups)
	v.SetDefault("audit.compress", d.Audit.Compress)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("policy.approval_threshold", d.Policy.ApprovalThreshold)
	v.SetDefault("policy.escalation_threshold", d.Policy.EscalationThreshold)
	v.SetDefault("policy.high_risk_threshold", d.Policy.HighRiskThreshold)
	v.SetDefault("policy.fallback_confidence", d.Policy.FallbackConfidence)

	v.SetDefault("rate_limit.requests_per_second", d.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", d.RateLimit.Burst)

	v.SetDefault("http.timeout", d.HTTP.Timeout)
	v.SetDefault("http.user_agent", d.HTTP.UserAgent)
	v.SetDefault("http.max_body_bytes", d.HTTP.MaxBodyBytes)
	v.SetDefault("http.http_proxy", d.HTTP.HTTPProxy)
	v.SetDefault("http.https_proxy", d.HTTP.HTTPSProxy)
	v.SetDefault("http.no_proxy", d.HTTP.NoProxy)
	v.SetDefault("http.respect_robots", d.HTTP.RespectRobots)

	v.SetDefault("concurrency.batch_workers", d.Concurrency.BatchWorkers)
}

// applyProviderEnv fills provider-specific settings from the environment
// variables each provider's own tooling uses, and drops Ollama defaults that
// make no sense for hosted providers
func applyProviderEnv(cfg *model.Config) {
	def := model.DefaultConfig().LLM

	switch strings.ToLower(cfg.LLM.Provider) {
	case "ollama":
		if os.Getenv("CRAM_LLM_MODEL") == "" {
			if m := os.Getenv("OLLAMA_MODEL"); m != "" {
				cfg.LLM.Model = m
			}
		}
		if os.Getenv("CRAM_LLM_BASE_URL") == "" {
			if u := os.Getenv("OLLAMA_BASE_URL"); u != "" {
				cfg.LLM.BaseURL = u
			}
		}
	case "openai", "anthropic", "claude":
		if cfg.LLM.BaseURL == def.BaseURL {
			cfg.LLM.BaseURL = ""
		}
		if cfg.LLM.Model == def.Model {
			cfg.LLM.Model = ""
		}
		if cfg.LLM.APIKey == "" {
			if strings.EqualFold(cfg.LLM.Provider, "openai") {
				cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
			} else {
				cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			}
		}
	}
}

func validateConfig(cfg *model.Config) error {
	p := cfg.Policy
	if p.ApprovalThreshold < 0 || p.ApprovalThreshold > 1 {
		return fmt.Errorf("policy.approval_threshold must be within [0,1], got %v", p.ApprovalThreshold)
	}
	if p.FallbackConfidence < 0 || p.FallbackConfidence > 1 {
		return fmt.Errorf("policy.fallback_confidence must be within [0,1], got %v", p.FallbackConfidence)
	}
	switch strings.ToLower(cfg.Retrieval.Backend) {
	case "qdrant", "static":
	default:
		return fmt.Errorf("unknown retrieval backend %q (supported: qdrant, static)", cfg.Retrieval.Backend)
	}
	if cfg.Concurrency.BatchWorkers <= 0 {
		cfg.Concurrency.BatchWorkers = 1
	}
	return nil
}
