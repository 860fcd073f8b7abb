package mcda

import (
	"sort"
	"strconv"
	"strings"

	"octivary-engine/internal/config"
)

// RangeSelection is an active numeric range filter; either bound may be nil
// (open-ended). Matching is closed-interval on both ends.
type RangeSelection struct {
	Min *float64
	Max *float64
}

func buildFilterMap(cfg config.FilterConfig) map[string]*config.FilterSpec {
	m := make(map[string]*config.FilterSpec, len(cfg.Filters))
	for i := range cfg.Filters {
		spec := &cfg.Filters[i]
		if spec.Key != "" {
			m[spec.Key] = spec
		}
	}
	return m
}

// defaultSectionOrder derives a section order from the config's sections
// grouping, falling back to declared filter order.
func defaultSectionOrder(cfg config.FilterConfig) []string {
	filterKeys := make([]string, 0, len(cfg.Filters))
	known := make(map[string]struct{}, len(cfg.Filters))
	for _, spec := range cfg.Filters {
		if spec.Key == "" {
			continue
		}
		filterKeys = append(filterKeys, spec.Key)
		known[spec.Key] = struct{}{}
	}

	var sectionKeys []string
	for _, section := range cfg.Sections {
		for _, key := range section.Filters {
			if _, exists := known[key]; exists {
				sectionKeys = append(sectionKeys, key)
			}
		}
	}
	if len(sectionKeys) > 0 {
		return sectionKeys
	}
	return filterKeys
}

// extractRangeSelections pulls active range filters out of the raw filter
// values. A range is active once either bound is a JSON number.
func extractRangeSelections(filterValues map[string]any, filterMap map[string]*config.FilterSpec) map[string]RangeSelection {
	selections := make(map[string]RangeSelection)
	for key, spec := range filterMap {
		if spec.Type != "range" {
			continue
		}
		raw, isObj := filterValues[key].(map[string]any)
		if !isObj {
			continue
		}
		minBound := jsonNumber(raw["min"])
		maxBound := jsonNumber(raw["max"])
		if minBound == nil && maxBound == nil {
			continue
		}
		selections[key] = RangeSelection{Min: minBound, Max: maxBound}
	}
	return selections
}

func jsonNumber(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	}
	return nil
}

// numericValue coerces an item field to a float for range matching. Numeric
// strings parse; booleans count as 1/0; anything else is no signal.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func isTextSection(sectionKey string, spec *config.FilterSpec) bool {
	if strings.HasPrefix(sectionKey, SearchTermItemPrefix) {
		return true
	}
	return spec != nil && spec.Type == "text"
}

type scoredItem struct {
	record Record
	score  float64
	index  int
}

// Score ranks items by how well they match the user's selections. It
// returns annotated shallow copies plus the total selection count; when
// that count is zero the original order is preserved. Inputs are treated
// as read-only, so concurrent callers are safe as long as they don't
// mutate the catalog themselves.
func Score(
	items []Record,
	cfg config.FilterConfig,
	filterValues map[string]any,
	selectionOrder map[string][]string,
	sectionOrder []string,
) ([]Record, int) {
	filterMap := buildFilterMap(cfg)
	effectiveOrder := sectionOrder
	if len(effectiveOrder) == 0 {
		effectiveOrder = defaultSectionOrder(cfg)
	}
	rangeSelections := extractRangeSelections(filterValues, filterMap)
	rangeKeys := make(map[string]struct{}, len(rangeSelections))
	for key := range rangeSelections {
		rangeKeys[key] = struct{}{}
	}

	spec := buildPrioritySpec(effectiveOrder, selectionOrder, rangeKeys)

	type structuredSection struct {
		key  string
		spec *config.FilterSpec
	}
	var structuredSections []structuredSection
	var searchSections []string
	for _, key := range spec.Sections {
		if isTextSection(key, filterMap[key]) {
			searchSections = append(searchSections, key)
		} else {
			structuredSections = append(structuredSections, structuredSection{key: key, spec: filterMap[key]})
		}
	}

	// every active range counts, even outside the section order (it then
	// adds zero weight but still registers as a match); iterate in filter
	// declaration order for determinism
	var rangeOrder []string
	for _, filterSpec := range cfg.Filters {
		if _, active := rangeSelections[filterSpec.Key]; active {
			rangeOrder = append(rangeOrder, filterSpec.Key)
		}
	}

	scored := make([]scoredItem, 0, len(items))
	for index, item := range items {
		itemTokens := make(map[string]struct{})
		for _, section := range structuredSections {
			for _, token := range extractTokens(item, section.key, section.spec) {
				itemTokens[token] = struct{}{}
			}
		}

		if len(searchSections) > 0 {
			haystack := BuildHaystack(item)
			for _, sectionKey := range searchSections {
				for _, term := range spec.SelectedValues[sectionKey] {
					if term != "" && strings.Contains(haystack, term) {
						itemTokens[sectionKey+":"+term] = struct{}{}
					}
				}
			}
		}

		var totalMatches, highPriorityMatches, rangeMatches int
		var derivedScore float64
		for token := range itemTokens {
			if _, selected := spec.SelectedTokens[token]; !selected {
				continue
			}
			totalMatches++
			if _, high := spec.HighPriorityTokens[token]; high {
				highPriorityMatches++
			}
			derivedScore += spec.TokenWeights[token]
		}

		for _, sectionKey := range rangeOrder {
			rangeSpec := rangeSelections[sectionKey]
			filterSpec := filterMap[sectionKey]
			if filterSpec == nil || filterSpec.Path == "" {
				continue
			}
			value, isNumeric := numericValue(resolvePath(item, filterSpec.Path))
			if !isNumeric {
				continue
			}
			if rangeSpec.Min != nil && value < *rangeSpec.Min {
				continue
			}
			if rangeSpec.Max != nil && value > *rangeSpec.Max {
				continue
			}
			// ranges are maximal-confidence signals
			totalMatches++
			highPriorityMatches++
			rangeMatches++
			derivedScore += spec.SectionWeights[sectionKey]
		}

		annotated := make(Record, len(item)+1)
		for k, v := range item {
			annotated[k] = v
		}
		annotated["_mcda"] = map[string]any{
			"derived_score":         derivedScore,
			"total_matches":         totalMatches,
			"high_priority_matches": highPriorityMatches,
			"range_matches":         rangeMatches,
			"total_selected_count":  spec.TotalSelectedCount,
			"index":                 index,
		}
		scored = append(scored, scoredItem{record: annotated, score: derivedScore, index: index})
	}

	if spec.TotalSelectedCount > 0 {
		sort.Slice(scored, func(i, j int) bool {
			if scored[i].score != scored[j].score {
				return scored[i].score > scored[j].score
			}
			return scored[i].index < scored[j].index
		})
	}

	out := make([]Record, len(scored))
	for i, entry := range scored {
		out[i] = entry.record
	}
	return out, spec.TotalSelectedCount
}
