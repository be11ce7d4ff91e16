// Package timeline builds the canonical, deduplicated event timeline from
// retrieved evidence.
package timeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/cram/internal/model"
)

// Dedup sorts hits ascending by metadata date (missing dates first) and drops
// duplicates, keeping the first occurrence. Duplicate identity is, in order of
// preference: (source, numeric id), (source, string id), then the composite
// (source, date, region, event type, actors).
//
// Dedup is idempotent: Dedup(Dedup(h)) equals Dedup(h).
func Dedup(hits []model.EvidenceHit) []model.EvidenceHit {
	sorted := make([]model.EvidenceHit, len(hits))
	copy(sorted, hits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Metadata.Date < sorted[j].Metadata.Date
	})

	seen := make(map[string]bool, len(sorted))
	out := make([]model.EvidenceHit, 0, len(sorted))
	for _, h := range sorted {
		key := Key(h.Metadata)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

// Build returns the canonical timeline for the hits
func Build(hits []model.EvidenceHit) []model.CanonicalEvent {
	deduped := Dedup(hits)
	events := make([]model.CanonicalEvent, 0, len(deduped))
	for _, h := range deduped {
		events = append(events, h.Canonical())
	}
	return events
}

// Key returns the dedup identity of an evidence payload
func Key(m model.HitMetadata) string {
	if m.DBID != nil {
		return "id\x1f" + m.Source + "\x1f" + strconv.FormatInt(*m.DBID, 10)
	}
	if sid := stringID(m); sid != "" {
		return "sid\x1f" + m.Source + "\x1f" + sid
	}
	return strings.Join([]string{
		"cmp",
		m.Source,
		m.Date,
		m.Region,
		m.EventType,
		strings.Join(m.Actors, "\x1e"),
	}, "\x1f")
}

func stringID(m model.HitMetadata) string {
	if m.DBEventID != "" {
		return m.DBEventID
	}
	return m.EventID
}
