package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/ppiankov/cram/internal/model"
)

// StaticRetriever serves a fixed set of hits from memory. Ranking is a plain
// token overlap between the query and each hit's metadata.
type StaticRetriever struct {
	hits []model.EvidenceHit
}

// NewStaticRetriever serves the given hits
func NewStaticRetriever(hits []model.EvidenceHit) *StaticRetriever {
	return &StaticRetriever{hits: append([]model.EvidenceHit(nil), hits...)}
}

// LoadStaticRetriever reads a JSON array of hits. Each element is either an
// EvidenceHit ({"id","score","metadata":{...}}) or a bare event payload.
func LoadStaticRetriever(path string) (*StaticRetriever, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse events file %s: %w", path, err)
	}

	hits := make([]model.EvidenceHit, 0, len(raw))
	for i, item := range raw {
		payload := item
		if md, ok := item["metadata"].(map[string]any); ok {
			payload = md
		}
		id := stringField(item, "id")
		if id == "" {
			id = fmt.Sprintf("static-%d", i)
		}
		score, _ := item["score"].(float64)
		hits = append(hits, model.EvidenceHit{
			ID:       id,
			Score:    score,
			Metadata: metadataFromPayload(payload),
		})
	}
	return NewStaticRetriever(hits), nil
}

// Len returns the number of loaded hits
func (s *StaticRetriever) Len() int {
	return len(s.hits)
}

// Search applies exact filters, ranks by token overlap and returns at most topK hits
func (s *StaticRetriever) Search(ctx context.Context, query string, filters map[string]string, topK int) ([]model.EvidenceHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queryTokens := tokenize(query)
	type ranked struct {
		hit   model.EvidenceHit
		score float64
	}
	var matches []ranked
	for _, h := range s.hits {
		if !matchesFilters(h.Metadata, filters) {
			continue
		}
		matches = append(matches, ranked{hit: h, score: overlap(queryTokens, tokenize(hitText(h.Metadata)))})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	out := make([]model.EvidenceHit, 0, len(matches))
	for _, m := range matches {
		h := m.hit
		h.Score = m.score
		out = append(out, h)
	}
	return out, nil
}

func matchesFilters(m model.HitMetadata, filters map[string]string) bool {
	for k, v := range filters {
		var got string
		switch k {
		case "region":
			got = m.Region
		case "source":
			got = m.Source
		case "event_type":
			got = m.EventType
		case "date":
			got = m.Date
		case "event_id":
			got = m.EventID
		default:
			return false
		}
		if got != v {
			return false
		}
	}
	return true
}

func hitText(m model.HitMetadata) string {
	return strings.Join(append([]string{m.Source, m.Region, m.EventType}, m.Actors...), " ")
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = true
	}
	return out
}

// overlap is the share of query tokens found in the hit
func overlap(query, doc map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	n := 0
	for t := range query {
		if doc[t] {
			n++
		}
	}
	return float64(n) / float64(len(query))
}
