package model

import (
	"encoding/json"
	"errors"
)

// ParseFailedMarker is the error value stored when a model response could not be parsed
const ParseFailedMarker = "parse_failed"

// StageResult is the tagged outcome of a model-backed stage.
// A nil *StageResult means the stage was skipped or its call failed; otherwise
// exactly one of Value or Raw is meaningful.
type StageResult[T any] struct {
	Value *T
	Raw   string // verbatim response when parsing failed
}

// Ok wraps a successfully parsed value
func Ok[T any](v T) *StageResult[T] {
	return &StageResult[T]{Value: &v}
}

// ParseError records an unparseable response
func ParseError[T any](raw string) *StageResult[T] {
	return &StageResult[T]{Raw: raw}
}

// OK reports whether the stage produced a parsed value
func (r *StageResult[T]) OK() bool {
	return r != nil && r.Value != nil
}

// Failed reports whether the stage ran but its response could not be parsed
func (r *StageResult[T]) Failed() bool {
	return r != nil && r.Value == nil
}

// Get returns the parsed value, or nil if absent or degraded
func (r *StageResult[T]) Get() *T {
	if r == nil {
		return nil
	}
	return r.Value
}

type parseFailure struct {
	Error string `json:"error"`
	Raw   string `json:"raw"`
}

// MarshalJSON renders the value itself, or {"error":"parse_failed","raw":...}
func (r StageResult[T]) MarshalJSON() ([]byte, error) {
	if r.Value != nil {
		return json.Marshal(r.Value)
	}
	return json.Marshal(parseFailure{Error: ParseFailedMarker, Raw: r.Raw})
}

// UnmarshalJSON is the inverse of MarshalJSON, used when reading audit logs back
func (r *StageResult[T]) UnmarshalJSON(data []byte) error {
	var probe struct {
		Error *string `json:"error"`
		Raw   string  `json:"raw"`
	}
	if err := json.Unmarshal(data, &probe); err == nil && probe.Error != nil {
		if *probe.Error != ParseFailedMarker {
			return errors.New("unknown stage error marker: " + *probe.Error)
		}
		r.Value = nil
		r.Raw = probe.Raw
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Value = &v
	r.Raw = ""
	return nil
}
