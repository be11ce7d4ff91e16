package timeline

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ppiankov/cram/internal/model"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func hit(id, source, date, region, eventType string, actors ...string) model.EvidenceHit {
	return model.EvidenceHit{
		ID: id,
		Metadata: model.HitMetadata{
			Source:    source,
			Date:      date,
			Region:    region,
			EventType: eventType,
			Actors:    actors,
		},
	}
}

func TestBuild_SortsByDateMissingFirst(t *testing.T) {
	hits := []model.EvidenceHit{
		hit("a", "ACLED", "2025-03-02", "Khartoum", "Battles", "RSF"),
		hit("b", "GDELT", "", "Darfur", "190"),
		hit("c", "ACLED", "2025-01-15", "Khartoum", "Shelling", "SAF"),
	}

	events := Build(hits)

	got := make([]string, len(events))
	for i, ev := range events {
		got[i] = ev.Date
	}
	want := []string{"", "2025-01-15", "2025-03-02"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("date order mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_DedupPriority(t *testing.T) {
	numeric1 := hit("1", "ACLED", "2025-01-01", "Khartoum", "Battles", "RSF")
	numeric1.Metadata.DBID = int64Ptr(7)
	// Same numeric id, different composite fields: still a duplicate
	numeric2 := hit("2", "ACLED", "2025-01-02", "Omdurman", "Riots")
	numeric2.Metadata.DBID = int64Ptr(7)
	// Same numeric id under another source is distinct
	numeric3 := hit("3", "GDELT", "2025-01-03", "Khartoum", "190")
	numeric3.Metadata.DBID = int64Ptr(7)

	str1 := hit("4", "GDELT", "2025-01-04", "Kassala", "173")
	str1.Metadata.DBEventID = "ev-99"
	str2 := hit("5", "GDELT", "2025-01-05", "Kassala", "174")
	str2.Metadata.DBEventID = "ev-99"

	comp1 := hit("6", "ACLED", "2025-01-06", "Darfur", "Battles", "RSF", "SAF")
	comp1.Metadata.Fatalities = intPtr(3)
	comp2 := hit("7", "ACLED", "2025-01-06", "Darfur", "Battles", "RSF", "SAF")
	comp2.Metadata.Fatalities = intPtr(12)
	// Different actor order is a different tuple
	comp3 := hit("8", "ACLED", "2025-01-06", "Darfur", "Battles", "SAF", "RSF")

	events := Build([]model.EvidenceHit{numeric1, numeric2, numeric3, str1, str2, comp1, comp2, comp3})

	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d: %+v", len(events), events)
	}
	if events[0].Region != "Khartoum" || events[0].EventType != "Battles" {
		t.Errorf("first occurrence should win for numeric id, got %+v", events[0])
	}
	if events[2].EventType != "173" {
		t.Errorf("first occurrence should win for string id, got %+v", events[2])
	}
	if events[3].Fatalities == nil || *events[3].Fatalities != 3 {
		t.Errorf("first occurrence should win for composite key, got %+v", events[3])
	}
}

func TestBuild_FirstOccurrenceWinsAfterSort(t *testing.T) {
	late := hit("late", "ACLED", "2025-02-01", "Khartoum", "Battles")
	late.Metadata.DBID = int64Ptr(1)
	early := hit("early", "ACLED", "2025-01-01", "Khartoum", "Shelling")
	early.Metadata.DBID = int64Ptr(1)

	deduped := Dedup([]model.EvidenceHit{late, early})
	if len(deduped) != 1 || deduped[0].ID != "early" {
		t.Fatalf("expected the earliest-dated hit to survive, got %+v", deduped)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	events := Build(nil)
	if events == nil || len(events) != 0 {
		t.Fatalf("expected empty non-nil timeline, got %#v", events)
	}
}

func TestBuild_NilActorsBecomeEmpty(t *testing.T) {
	events := Build([]model.EvidenceHit{hit("a", "GDELT", "2025-01-01", "Khartoum", "190")})
	if events[0].Actors == nil {
		t.Error("expected actors to be an empty list, not nil")
	}
}

func TestDedup_DoesNotMutateInput(t *testing.T) {
	hits := []model.EvidenceHit{
		hit("b", "ACLED", "2025-02-01", "Khartoum", "Battles"),
		hit("a", "ACLED", "2025-01-01", "Khartoum", "Battles"),
	}
	_ = Dedup(hits)
	if hits[0].ID != "b" {
		t.Error("input slice was reordered")
	}
}

func randomHits(r *rand.Rand, n int) []model.EvidenceHit {
	sources := []string{"ACLED", "GDELT"}
	regions := []string{"Khartoum", "Darfur", "Kassala"}
	types := []string{"Battles", "Riots", "190"}
	hits := make([]model.EvidenceHit, 0, n)
	for i := 0; i < n; i++ {
		h := hit(
			fmt.Sprintf("h%d", i),
			sources[r.Intn(len(sources))],
			fmt.Sprintf("2025-01-%02d", 1+r.Intn(5)),
			regions[r.Intn(len(regions))],
			types[r.Intn(len(types))],
			"RSF",
		)
		switch r.Intn(4) {
		case 0:
			h.Metadata.DBID = int64Ptr(int64(r.Intn(6)))
		case 1:
			h.Metadata.DBEventID = fmt.Sprintf("ev-%d", r.Intn(6))
		case 2:
			h.Metadata.Date = ""
		}
		hits = append(hits, h)
	}
	return hits
}

func TestDedup_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		hits := randomHits(r, r.Intn(40))
		once := Dedup(hits)
		twice := Dedup(once)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("Dedup not idempotent (-once +twice):\n%s", diff)
		}
		if diff := cmp.Diff(Build(hits), Build(once)); diff != "" {
			t.Fatalf("Build not idempotent (-once +twice):\n%s", diff)
		}
	}
}

func TestDedup_LengthIsInputMinusDuplicates(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		hits := randomHits(r, r.Intn(40))
		keys := make(map[string]int)
		for _, h := range hits {
			keys[Key(h.Metadata)]++
		}
		duplicates := 0
		for _, n := range keys {
			duplicates += n - 1
		}
		if got, want := len(Dedup(hits)), len(hits)-duplicates; got != want {
			t.Fatalf("expected %d hits, got %d", want, got)
		}
	}
}
