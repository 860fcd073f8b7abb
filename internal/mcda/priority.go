package mcda

import "math"

// PrioritySpec holds the weights derived from one request's selections.
// Built once per scoring call, read-only afterward.
type PrioritySpec struct {
	Sections           []string
	SelectedValues     map[string][]string
	TokenWeights       map[string]float64
	SectionWeights     map[string]float64
	SelectedTokens     map[string]struct{}
	HighPriorityTokens map[string]struct{}
	TotalSelectedCount int
}

// sectionWeight is BASE^(N-index-1): earlier sections dominate later ones
// totally. The exponent comes from the position in the full section order,
// so skipping an inactive earlier section does not compress the gap.
func sectionWeight(totalSections, index int) float64 {
	power := totalSections - index - 1
	if power < 0 {
		power = 0
	}
	return math.Pow(sectionDominanceBase, float64(power))
}

// valueWeight is DECAY^rank: the first-picked value in a section dominates
// later picks.
func valueWeight(rank int) float64 {
	return math.Pow(valueDecay, float64(rank))
}

// buildPrioritySpec turns the section order and per-section selection order
// into token and section weights. Range sections count as active even with
// no selected values, since their bounds arrive via filter values instead.
func buildPrioritySpec(sectionOrder []string, selectionOrder map[string][]string, rangeKeys map[string]struct{}) *PrioritySpec {
	spec := &PrioritySpec{
		SelectedValues:     make(map[string][]string),
		TokenWeights:       make(map[string]float64),
		SectionWeights:     make(map[string]float64),
		SelectedTokens:     make(map[string]struct{}),
		HighPriorityTokens: make(map[string]struct{}),
	}
	totalSections := len(sectionOrder)

	for index, sectionKey := range sectionOrder {
		normalizedSection := normalize(sectionKey)
		if normalizedSection == "" {
			continue
		}

		values := selectionOrder[sectionKey]
		if len(values) == 0 {
			values = selectionOrder[normalizedSection]
		}
		var normalizedValues []string
		seen := make(map[string]struct{})
		for _, value := range values {
			normalizedValue := normalize(value)
			if normalizedValue == "" {
				continue
			}
			if _, dup := seen[normalizedValue]; dup {
				continue
			}
			seen[normalizedValue] = struct{}{}
			normalizedValues = append(normalizedValues, normalizedValue)
		}

		_, hasRange := rangeKeys[sectionKey]
		if len(normalizedValues) == 0 && !hasRange {
			continue
		}

		spec.Sections = append(spec.Sections, sectionKey)
		if len(normalizedValues) > 0 {
			spec.SelectedValues[sectionKey] = normalizedValues
			spec.TotalSelectedCount += len(normalizedValues)
		} else {
			spec.TotalSelectedCount++
		}

		sw := sectionWeight(totalSections, index)
		spec.SectionWeights[sectionKey] = sw
		for rank, value := range normalizedValues {
			vw := valueWeight(rank)
			token := sectionKey + ":" + value
			spec.TokenWeights[token] = sw * vw
			spec.SelectedTokens[token] = struct{}{}
			if vw >= highPriorityThreshold {
				spec.HighPriorityTokens[token] = struct{}{}
			}
		}
	}

	return spec
}
