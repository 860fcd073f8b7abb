package mcda

import (
	"regexp"
	"strconv"
	"strings"
)

var indexedSegmentRE = regexp.MustCompile(`^(.+)\[(\d+)\]$`)

// resolvePath walks a dot-separated path into an arbitrarily shaped value.
// A segment may end in an integer index ("components.scanner[0]"). Missing
// keys, nulls, out-of-range indices and type mismatches all resolve to nil;
// the walk never panics.
func resolvePath(data any, path string) any {
	if path == "" {
		return nil
	}
	value := data
	for _, segment := range strings.Split(path, ".") {
		if value == nil {
			return nil
		}
		switch current := value.(type) {
		case []any:
			m := indexedSegmentRE.FindStringSubmatch(segment)
			if m == nil {
				// plain keys don't descend into lists
				return nil
			}
			key := m[1]
			idx, _ := strconv.Atoi(m[2])
			if idx >= len(current) {
				return nil
			}
			// project each element through the key, then index the
			// projected sequence
			projected := make([]any, len(current))
			for i, entry := range current {
				if obj, isObj := entry.(map[string]any); isObj {
					projected[i] = obj[key]
				}
			}
			value = projected[idx]
		case map[string]any:
			if m := indexedSegmentRE.FindStringSubmatch(segment); m != nil {
				key := m[1]
				idx, _ := strconv.Atoi(m[2])
				inner, isList := current[key].([]any)
				if !isList || idx >= len(inner) {
					return nil
				}
				value = inner[idx]
				continue
			}
			value = current[segment]
		default:
			return nil
		}
	}
	return value
}
