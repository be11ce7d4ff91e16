// Package retrieval provides the evidence search collaborators used by the
// retrieval stage: a Qdrant vector store, an offline file-backed store and a
// caching decorator.
package retrieval

import (
	"context"
	"errors"

	"github.com/ppiankov/cram/internal/model"
)

// ErrNotConfigured is returned when a retriever is missing a required setting
var ErrNotConfigured = errors.New("retriever not configured")

// Retriever searches the historical event store.
// filters are exact-match payload conditions; nil or empty means unfiltered.
type Retriever interface {
	Search(ctx context.Context, query string, filters map[string]string, topK int) ([]model.EvidenceHit, error)
}

// Embedder turns query text into a vector for similarity search
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
