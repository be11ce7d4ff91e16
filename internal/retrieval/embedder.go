package retrieval

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ppiankov/cram/internal/util"
	"github.com/sashabaranov/go-openai"
)

// EmbedderConfig configures an OpenAI-compatible embeddings endpoint
// (OpenAI itself, or a local text-embeddings server serving the same API)
type EmbedderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// OpenAIEmbedder embeds text through the OpenAI embeddings API
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder; the model name is required
func NewOpenAIEmbedder(cfg EmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: embedding model is required", ErrNotConfigured)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		},
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}, nil
}

// Model returns the embedding model name
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Embed returns the embedding of a single text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings API error: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embeddings API returned no vectors")
	}
	return resp.Data[0].Embedding, nil
}
