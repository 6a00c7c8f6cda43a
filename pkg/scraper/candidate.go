package scraper

import (
	"encoding/json"
	"strconv"
	"strings"
)

// rawCandidate is one untyped JSON node (an API response, a shoebox resource's
// attributes, a framework state product) before it is folded into a
// ProductRecord. Candidates live only for the duration of one extraction.
type rawCandidate map[string]any

// str returns the first non-empty string among keys.
func (c rawCandidate) str(keys ...string) string {
	for _, k := range keys {
		if s, ok := c[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// price returns the first parseable positive price among keys. The retailer
// emits prices as numbers in some feeds and as strings in others; a field
// that parses to nothing is skipped rather than failing the candidate.
func (c rawCandidate) price(keys ...string) (float64, bool) {
	for _, k := range keys {
		v, ok := c[k]
		if !ok || v == nil {
			continue
		}
		if p, ok := asPrice(v); ok {
			return p, true
		}
	}
	return 0, false
}

// flag returns the truthiness of the first present key, or def when none of
// the keys exist.
func (c rawCandidate) flag(def bool, keys ...string) bool {
	for _, k := range keys {
		if v, ok := c[k]; ok {
			return truthy(v)
		}
	}
	return def
}

func asPrice(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return t, true
		}
	case json.Number:
		if f, err := t.Float64(); err == nil && f > 0 {
			return f, true
		}
	case string:
		cleaned := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "$"))
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f > 0 {
			return f, true
		}
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	}
	return true
}
