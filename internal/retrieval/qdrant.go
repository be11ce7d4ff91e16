package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/cram/internal/model"
)

// QdrantConfig configures the Qdrant REST client
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantRetriever searches a Qdrant collection over its REST API
type QdrantRetriever struct {
	baseURL    string
	apiKey     string
	collection string
	embedder   Embedder
	httpClient *http.Client
}

// NewQdrantRetriever creates a retriever for one collection
func NewQdrantRetriever(cfg QdrantConfig, embedder Embedder) (*QdrantRetriever, error) {
	if cfg.URL == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("%w: qdrant url and collection are required", ErrNotConfigured)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: qdrant retriever needs an embedder", ErrNotConfigured)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &QdrantRetriever{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		embedder:   embedder,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Collection returns the searched collection name
func (q *QdrantRetriever) Collection() string {
	return q.collection
}

type qdrantMatch struct {
	Value string `json:"value"`
}

type qdrantCondition struct {
	Key   string      `json:"key"`
	Match qdrantMatch `json:"match"`
}

type qdrantFilter struct {
	Must []qdrantCondition `json:"must"`
}

type qdrantSearchRequest struct {
	Vector      []float32     `json:"vector"`
	Limit       int           `json:"limit"`
	Filter      *qdrantFilter `json:"filter,omitempty"`
	WithPayload bool          `json:"with_payload"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantPoint `json:"result"`
	Status any           `json:"status"`
}

type qdrantCollectionResponse struct {
	Result struct {
		PointsCount int64 `json:"points_count"`
	} `json:"result"`
}

// Search embeds the query and runs a filtered similarity search
func (q *QdrantRetriever) Search(ctx context.Context, query string, filters map[string]string, topK int) ([]model.EvidenceHit, error) {
	vector, err := q.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := qdrantSearchRequest{
		Vector:      vector,
		Limit:       topK,
		Filter:      buildFilter(filters),
		WithPayload: true,
	}

	var resp qdrantSearchResponse
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}

	hits := make([]model.EvidenceHit, 0, len(resp.Result))
	for _, p := range resp.Result {
		hits = append(hits, model.EvidenceHit{
			ID:       pointID(p.ID),
			Score:    p.Score,
			Metadata: metadataFromPayload(p.Payload),
		})
	}
	return hits, nil
}

// Count returns the number of points in the collection
func (q *QdrantRetriever) Count(ctx context.Context) (int64, error) {
	var resp qdrantCollectionResponse
	path := fmt.Sprintf("/collections/%s", url.PathEscape(q.collection))
	if err := q.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Result.PointsCount, nil
}

// buildFilter turns exact-match filters into a Qdrant "must" clause, keys sorted
func buildFilter(filters map[string]string) *qdrantFilter {
	if len(filters) == 0 {
		return nil
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := &qdrantFilter{Must: make([]qdrantCondition, 0, len(keys))}
	for _, k := range keys {
		f.Must = append(f.Must, qdrantCondition{Key: k, Match: qdrantMatch{Value: filters[k]}})
	}
	return f
}

func (q *QdrantRetriever) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, q.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		httpReq.Header.Set("api-key", q.apiKey)
	}

	httpResp, err := q.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("qdrant error (%d): %s", httpResp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
