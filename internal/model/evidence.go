package model

// EvidenceHit is a single result returned by the retrieval store
type EvidenceHit struct {
	ID       string      `json:"id"`       // Store point ID (UUID or integer rendered as string)
	Score    float64     `json:"score"`    // Relevance score reported by the store
	Metadata HitMetadata `json:"metadata"` // Event payload
}

// HitMetadata is the event payload stored alongside each vector
type HitMetadata struct {
	Source     string   `json:"source,omitempty"`     // GDELT, ACLED, ...
	Date       string   `json:"date,omitempty"`       // ISO date or datetime
	Region     string   `json:"region,omitempty"`     // Sub-national region name
	EventType  string   `json:"event_type,omitempty"` // Event code or ACLED event type
	Actors     []string `json:"actors,omitempty"`
	Fatalities *int     `json:"fatalities,omitempty"` // nil when the source does not report fatalities

	// Stable identifiers, when the ingesting job recorded them
	EventID   string `json:"event_id,omitempty"`    // Logical ID, e.g. "acled-42"
	DBID      *int64 `json:"db_id,omitempty"`       // Numeric row ID in the source database
	DBEventID string `json:"db_event_id,omitempty"` // Source-native event ID
}

// CanonicalEvent is the deduplicated projection of an evidence hit used by
// every downstream stage
type CanonicalEvent struct {
	Date       string   `json:"date"`
	Source     string   `json:"source"`
	Region     string   `json:"region"`
	EventType  string   `json:"event_type"`
	Actors     []string `json:"actors"`
	Fatalities *int     `json:"fatalities"`
}

// Canonical projects the hit into a CanonicalEvent
func (h EvidenceHit) Canonical() CanonicalEvent {
	actors := h.Metadata.Actors
	if actors == nil {
		actors = []string{}
	}
	return CanonicalEvent{
		Date:       h.Metadata.Date,
		Source:     h.Metadata.Source,
		Region:     h.Metadata.Region,
		EventType:  h.Metadata.EventType,
		Actors:     actors,
		Fatalities: h.Metadata.Fatalities,
	}
}

// RetrievalMode records which branch of the retrieval resolution produced the hits
type RetrievalMode string

const (
	ModeRegionExact          RetrievalMode = "region_exact"
	ModeSemanticRegionFilter RetrievalMode = "semantic_region_filter"
	ModeNationalFallback     RetrievalMode = "national_fallback"
	ModeNationalNoRegion     RetrievalMode = "national_no_region"
)

// RetrievalContext describes how the evidence for a run was retrieved
type RetrievalContext struct {
	Query   string           `json:"query"`
	Filters RetrievalFilters `json:"filters"`
}

// RetrievalFilters holds the region label and resolution mode
type RetrievalFilters struct {
	Region string        `json:"region"`
	Mode   RetrievalMode `json:"mode"`
}
