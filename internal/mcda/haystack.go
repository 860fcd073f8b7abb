package mcda

import (
	"regexp"
	"sort"
	"strings"
)

// textSearchFields is the fixed set of descriptive fields that feed the
// free-text haystack. Order matters: it defines the concatenation order.
var textSearchFields = []string{
	"system_type",
	"scanner_reader",
	"components_included.scanner_reader",
	"phone_models",
	"scan_required",
	"scan_required_for_current_reading",
	"pricing_notes",
	"insurance_notes",
	"product_name",
	"notes",
}

var (
	htmlTagRE    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

func stripHTML(s string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(htmlTagRE.ReplaceAllString(s, " "), " "))
}

// collectLeaves appends every leaf value under v, stringified. Map keys are
// visited in sorted order so iteration order never leaks into the haystack.
func collectLeaves(bucket *[]string, v any) {
	switch value := v.(type) {
	case nil:
	case []any:
		for _, entry := range value {
			collectLeaves(bucket, entry)
		}
	case map[string]any:
		keys := make([]string, 0, len(value))
		for k := range value {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectLeaves(bucket, value[k])
		}
	default:
		*bucket = append(*bucket, stringify(value))
	}
}

// BuildHaystack flattens an item's descriptive fields into one normalized
// string for substring matching. This is not a tokenized index: free-text
// terms match by plain containment against the whole blob.
func BuildHaystack(item Record) string {
	var parts []string
	for _, path := range textSearchFields {
		collectLeaves(&parts, resolvePath(item, path))
	}

	if sources, isList := resolvePath(item, "pricing_sources").([]any); isList {
		for _, entry := range sources {
			if obj, isObj := entry.(map[string]any); isObj {
				collectLeaves(&parts, obj["label"])
			}
		}
	}

	// synthetic phrases so "no scanning" / "scan required" are searchable
	// whether the source field is a string or a bool
	switch scan := resolvePath(item, "scan_required").(type) {
	case string:
		switch normalize(scan) {
		case "no":
			parts = append(parts, "no scanning")
		case "yes":
			parts = append(parts, "scan required")
		}
	case bool:
		if scan {
			parts = append(parts, "scan required")
		} else {
			parts = append(parts, "no scanning")
		}
	}
	if scan, isBool := resolvePath(item, "scan_required_for_current_reading").(bool); isBool {
		if scan {
			parts = append(parts, "scan required")
		} else {
			parts = append(parts, "no scanning")
		}
	}

	return strings.ToLower(stripHTML(strings.Join(parts, " ")))
}
