// Package mcda ranks catalog items against a user's filter selections.
//
// The weighting scheme is deliberately lexicographic across sections: a
// section earlier in the section order dominates every later one via an
// exponential base spread, while values picked earlier within a section
// dominate later picks via a second, independent decay. Scoring is a pure
// function of its inputs; it never mutates the catalog it is given.
package mcda

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	sectionDominanceBase  = 5.0
	valueDecay            = 0.65
	highPriorityThreshold = 0.5

	// SearchTermItemPrefix marks selection-order keys that carry a single
	// free-text term: "search_term_item:<base_key>:<url-escaped term>".
	SearchTermItemPrefix = "search_term_item:"
)

// Record is a dynamically shaped catalog item, as decoded from JSON.
type Record = map[string]any

func normalize(value any) string {
	if value == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(stringify(value)))
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

// ParseSearchTermKey splits a per-term selection key into its base section
// key and decoded term. Returns ok=false for anything else.
func ParseSearchTermKey(key string) (baseKey, term string, ok bool) {
	if !strings.HasPrefix(key, SearchTermItemPrefix) {
		return "", "", false
	}
	rest := key[len(SearchTermItemPrefix):]
	sep := strings.Index(rest, ":")
	if sep < 0 {
		return "", "", false
	}
	baseKey = rest[:sep]
	term = rest[sep+1:]
	if unescaped, err := url.PathUnescape(term); err == nil {
		term = unescaped
	}
	return baseKey, term, true
}
