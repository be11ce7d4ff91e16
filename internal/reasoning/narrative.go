package reasoning

import (
	"strings"

	"github.com/ppiankov/cram/internal/model"
)

const (
	defaultSectionLabel = "Full narrative"
	citedEvents         = 5
)

// BuildNarrativeEvidence splits the narrative on markdown headers and cites
// the same first events for every section. Per-section relevance is not
// attempted.
func BuildNarrativeEvidence(s *model.AnalysisState) []model.NarrativeSection {
	out := []model.NarrativeSection{}
	if s.Narrative == nil || strings.TrimSpace(*s.Narrative) == "" {
		return out
	}

	top := s.Events
	if len(top) > citedEvents {
		top = top[:citedEvents]
	}
	top = append([]model.CanonicalEvent{}, top...)

	label := defaultSectionLabel
	var lines []string
	flush := func() {
		text := strings.TrimSpace(strings.Join(lines, "\n"))
		if text == "" {
			return
		}
		out = append(out, model.NarrativeSection{
			SectionID:        sectionID(label),
			SectionLabel:     label,
			Text:             text,
			SupportingEvents: top,
		})
	}

	for _, line := range strings.Split(*s.Narrative, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			if h := strings.TrimSpace(strings.TrimLeft(trimmed, "#")); h != "" {
				label = h
			}
			lines = nil
			continue
		}
		lines = append(lines, line)
	}
	flush()

	return out
}

func sectionID(label string) string {
	return strings.ReplaceAll(strings.ToLower(label), " ", "_")
}
