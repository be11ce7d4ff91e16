package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrParse wraps every failure to turn a model reply into a typed value
var ErrParse = errors.New("model response does not match schema")

// validator is implemented by stage schemas that check their own enums and ranges
type validator interface {
	Validate() error
}

// requirer lists the keys a reply must carry. Paths are dotted; a segment
// ending in "[]" applies the rest of the path to every element of that list.
type requirer interface {
	RequiredFields() []string
}

// ParseJSON strictly decodes a model reply into T.
// The reply must be exactly one JSON object, optionally wrapped in a single
// markdown code fence. Unknown fields are ignored. Fields named by T's
// RequiredFields must be present and non-null, and T's Validate method, if
// any, must pass.
func ParseJSON[T any](raw string) (T, error) {
	var out T

	body := stripFence(strings.TrimSpace(raw))
	if !strings.HasPrefix(body, "{") {
		return out, fmt.Errorf("%w: reply is not a JSON object", ErrParse)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	if err := dec.Decode(&out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if dec.More() {
		return out, fmt.Errorf("%w: trailing data after JSON object", ErrParse)
	}

	if r, ok := any(out).(requirer); ok {
		if err := checkRequired([]byte(body), r.RequiredFields()); err != nil {
			return out, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	if v, ok := any(out).(validator); ok {
		if err := v.Validate(); err != nil {
			return out, fmt.Errorf("%w: %v", ErrParse, err)
		}
	}

	return out, nil
}

// stripFence removes a surrounding ```json ... ``` block
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		// drop the language tag line
		if tag := strings.TrimSpace(inner[:nl]); tag == "" || !strings.ContainsAny(tag, "{[") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}

// checkRequired reports the first required path that is absent or null
func checkRequired(body []byte, paths []string) error {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}
	for _, p := range paths {
		if at := missingAt(doc, strings.Split(p, "."), ""); at != "" {
			return fmt.Errorf("missing %s", at)
		}
	}
	return nil
}

func missingAt(node any, segs []string, prefix string) string {
	if len(segs) == 0 {
		return ""
	}
	each := strings.HasSuffix(segs[0], "[]")
	key := strings.TrimSuffix(segs[0], "[]")
	at := key
	if prefix != "" {
		at = prefix + "." + key
	}

	obj, ok := node.(map[string]any)
	if !ok {
		return at
	}
	v, ok := obj[key]
	if !ok || v == nil {
		return at
	}
	if !each {
		return missingAt(v, segs[1:], at)
	}

	list, ok := v.([]any)
	if !ok {
		return at
	}
	for i, el := range list {
		if m := missingAt(el, segs[1:], fmt.Sprintf("%s[%d]", at, i)); m != "" {
			return m
		}
	}
	return ""
}
