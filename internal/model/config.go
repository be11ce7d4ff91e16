package model

import "time"

// Config is the complete cram configuration
type Config struct {
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" mapstructure:"retrieval"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Audit       AuditConfig       `yaml:"audit" mapstructure:"audit"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Policy      Policy            `yaml:"policy" mapstructure:"policy"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// LLMConfig selects and configures the model provider
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`
}

// RetrievalConfig configures the evidence store
type RetrievalConfig struct {
	Backend        string `yaml:"backend" mapstructure:"backend"` // qdrant, static
	QdrantURL      string `yaml:"qdrant_url" mapstructure:"qdrant_url"`
	QdrantAPIKey   string `yaml:"qdrant_api_key,omitempty" mapstructure:"qdrant_api_key"`
	Collection     string `yaml:"collection" mapstructure:"collection"`
	EmbeddingModel string `yaml:"embedding_model" mapstructure:"embedding_model"`
	EmbeddingURL   string `yaml:"embedding_url" mapstructure:"embedding_url"` // OpenAI-compatible embeddings endpoint
	EmbeddingKey   string `yaml:"embedding_api_key,omitempty" mapstructure:"embedding_api_key"`
	EventsFile     string `yaml:"events_file,omitempty" mapstructure:"events_file"` // static backend
	Timeout        int    `yaml:"timeout" mapstructure:"timeout"`                   // seconds
}

// CacheConfig configures the retrieval cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// AuditConfig configures the run audit log
type AuditConfig struct {
	Dir        string `yaml:"dir" mapstructure:"dir"`
	FileName   string `yaml:"file_name" mapstructure:"file_name"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// LogConfig configures application logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
	File   string `yaml:"file,omitempty" mapstructure:"file"`
}

// RateLimitConfig bounds model calls per provider
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"` // 0 disables
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// HTTPConfig configures situation-report fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// ConcurrencyConfig bounds concurrent runs in batch mode
type ConcurrencyConfig struct {
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "qwen2.5:14b",
			BaseURL:     "http://localhost:11434",
			Timeout:     120,
			MaxTokens:   2000,
			Temperature: 0.2,
		},
		Retrieval: RetrievalConfig{
			Backend:        "qdrant",
			QdrantURL:      "http://localhost:6333",
			Collection:     "sudan_events",
			EmbeddingModel: "Alibaba-NLP/gte-multilingual-base",
			EmbeddingURL:   "http://localhost:8080/v1",
			Timeout:        60,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 10 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Audit: AuditConfig{
			Dir:        "data/audit_logs",
			FileName:   "analysis_runs.jsonl",
			MaxSizeMB:  100,
			MaxBackups: 10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Policy: DefaultPolicy(),
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             1,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "cram/0.1 (+https://github.com/ppiankov/cram)",
			MaxBodyBytes:  2_000_000,
			RespectRobots: true,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
	}
}
