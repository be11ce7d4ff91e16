package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/cram/internal/metrics"
	"github.com/ppiankov/cram/internal/model"
	"github.com/ppiankov/cram/internal/retrieval"
	"github.com/ppiankov/cram/internal/timeline"
)

const (
	exactTopK     = 20
	broadTopK     = 50
	nationalQuery = "recent conflict events in Sudan"
	nationalLabel = "national"
)

type retrievalStage struct {
	retriever retrieval.Retriever
	logger    *zap.Logger
}

func (s *retrievalStage) Name() string { return StageRetrieval }

// Execute resolves evidence: exact region filter, then semantic search
// narrowed by region substring, then the unnarrowed national result.
func (s *retrievalStage) Execute(ctx context.Context, st *model.AnalysisState) error {
	region := st.Region
	query := nationalQuery
	if region != "" {
		query = "recent conflict events in " + region
	}

	var (
		hits []model.EvidenceHit
		mode model.RetrievalMode
	)
	if region == "" {
		hits = s.search(ctx, st, query, nil, broadTopK)
		mode = model.ModeNationalNoRegion
	} else if exact := s.search(ctx, st, query, map[string]string{"region": region}, exactTopK); len(exact) > 0 {
		hits, mode = exact, model.ModeRegionExact
	} else {
		broad := s.search(ctx, st, query, nil, broadTopK)
		if matched := filterByRegion(broad, region, exactTopK); len(matched) > 0 {
			hits, mode = matched, model.ModeSemanticRegionFilter
		} else {
			hits, mode = broad, model.ModeNationalFallback
		}
	}

	if hits == nil {
		hits = []model.EvidenceHit{}
	}
	label := region
	if label == "" {
		label = nationalLabel
	}

	st.RetrievedEvents = hits
	st.Events = timeline.Build(hits)
	st.RetrievalContext = &model.RetrievalContext{
		Query:   query,
		Filters: model.RetrievalFilters{Region: label, Mode: mode},
	}
	st.Log("Retrieved %d events (mode %s); %d after deduplication", len(hits), mode, len(st.Events))

	metrics.RetrievalModeTotal.WithLabelValues(string(mode)).Inc()
	s.logger.Debug("retrieval resolved",
		zap.String("region", label),
		zap.String("mode", string(mode)),
		zap.Int("hits", len(hits)),
		zap.Int("events", len(st.Events)),
	)
	return nil
}

// search treats any collaborator failure as zero hits
func (s *retrievalStage) search(ctx context.Context, st *model.AnalysisState, query string, filters map[string]string, topK int) []model.EvidenceHit {
	hits, err := s.retriever.Search(ctx, query, filters, topK)
	if err != nil {
		metrics.RetrievalErrorsTotal.Inc()
		s.logger.Warn("retrieval failed",
			zap.String("query", query),
			zap.Any("filters", filters),
			zap.Error(err),
		)
		st.Log("Retrieval query failed; continuing with no results from it")
		return nil
	}
	return hits
}

// filterByRegion keeps hits whose region contains region, case-insensitively
func filterByRegion(hits []model.EvidenceHit, region string, limit int) []model.EvidenceHit {
	needle := strings.ToLower(region)
	var out []model.EvidenceHit
	for _, h := range hits {
		if len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(h.Metadata.Region), needle) {
			out = append(out, h)
		}
	}
	return out
}
