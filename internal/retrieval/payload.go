package retrieval

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/cram/internal/model"
)

// metadataFromPayload maps a loosely typed vector payload onto HitMetadata.
// Ingestion jobs were not consistent about types: actors may be a list or a
// ';'/',' separated string, numbers may arrive as strings.
func metadataFromPayload(p map[string]any) model.HitMetadata {
	m := model.HitMetadata{
		Source:    stringField(p, "source"),
		Date:      stringField(p, "date"),
		Region:    stringField(p, "region"),
		EventType: stringField(p, "event_type"),
		Actors:    actorsField(p["actors"]),
		EventID:   stringField(p, "event_id"),
		DBEventID: stringField(p, "db_event_id"),
	}
	if n, ok := intField(p["fatalities"]); ok {
		f := int(n)
		m.Fatalities = &f
	}
	if n, ok := intField(p["db_id"]); ok {
		m.DBID = &n
	}
	return m
}

func stringField(p map[string]any, key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func intField(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return int64(f), true
		}
		return i, true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

func actorsField(v any) []string {
	var out []string
	switch a := v.(type) {
	case []any:
		for _, item := range a {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range a {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.FieldsFunc(a, func(r rune) bool { return r == ';' || r == ',' }) {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

// pointID renders a Qdrant point id, which is either an unsigned integer or a UUID
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.TrimSpace(string(raw))
}
