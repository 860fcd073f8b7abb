package mcda

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrioritySpecWeights(t *testing.T) {
	spec := buildPrioritySpec(
		[]string{"make", "body_style"},
		map[string][]string{
			"make":       {"Honda", "Toyota", "Ford"},
			"body_style": {"Sedan"},
		},
		nil,
	)

	assert.Equal(t, []string{"make", "body_style"}, spec.Sections)
	assert.Equal(t, 4, spec.TotalSelectedCount)

	// first section gets 5^1, second 5^0; in-section rank decays by 0.65
	assert.InDelta(t, 5.0, spec.TokenWeights["make:honda"], 1e-9)
	assert.InDelta(t, 5.0*0.65, spec.TokenWeights["make:toyota"], 1e-9)
	assert.InDelta(t, 5.0*0.65*0.65, spec.TokenWeights["make:ford"], 1e-9)
	assert.InDelta(t, 1.0, spec.TokenWeights["body_style:sedan"], 1e-9)

	// high priority is value weight >= 0.5: rank 0 (1.0) and rank 1
	// (0.65) qualify, rank 2 (0.4225) does not
	assert.Contains(t, spec.HighPriorityTokens, "make:honda")
	assert.Contains(t, spec.HighPriorityTokens, "make:toyota")
	assert.NotContains(t, spec.HighPriorityTokens, "make:ford")
	assert.Contains(t, spec.HighPriorityTokens, "body_style:sedan")
}

func TestBuildPrioritySpecSkipsInactiveWithoutCompressing(t *testing.T) {
	// "year" has no selections and isn't a range: skipped entirely, but
	// "body_style" keeps the weight of its original position
	spec := buildPrioritySpec(
		[]string{"make", "year", "body_style"},
		map[string][]string{
			"make":       {"Honda"},
			"body_style": {"Sedan"},
		},
		nil,
	)

	assert.Equal(t, []string{"make", "body_style"}, spec.Sections)
	assert.InDelta(t, 25.0, spec.SectionWeights["make"], 1e-9)
	assert.InDelta(t, 1.0, spec.SectionWeights["body_style"], 1e-9)
}

func TestBuildPrioritySpecDedupesKeepingFirstRank(t *testing.T) {
	spec := buildPrioritySpec(
		[]string{"make"},
		map[string][]string{"make": {"Honda", "honda", " HONDA ", "Toyota"}},
		nil,
	)

	assert.Equal(t, 2, spec.TotalSelectedCount)
	assert.InDelta(t, 1.0, spec.TokenWeights["make:honda"], 1e-9)
	assert.InDelta(t, 0.65, spec.TokenWeights["make:toyota"], 1e-9)
}

func TestBuildPrioritySpecRangeOnlySectionIsActive(t *testing.T) {
	spec := buildPrioritySpec(
		[]string{"price"},
		map[string][]string{},
		map[string]struct{}{"price": {}},
	)

	assert.Equal(t, []string{"price"}, spec.Sections)
	assert.Equal(t, 1, spec.TotalSelectedCount)
	assert.InDelta(t, 1.0, spec.SectionWeights["price"], 1e-9)
	assert.Empty(t, spec.TokenWeights)
}

func TestBuildPrioritySpecNormalizedKeyFallback(t *testing.T) {
	spec := buildPrioritySpec(
		[]string{"Make"},
		map[string][]string{"make": {"Honda"}},
		nil,
	)

	assert.Equal(t, []string{"Make"}, spec.Sections)
	assert.InDelta(t, 1.0, spec.TokenWeights["Make:honda"], 1e-9)
}

func TestParseSearchTermKey(t *testing.T) {
	base, term, ok := ParseSearchTermKey("search_term_item:notes:no%20scanning")
	assert.True(t, ok)
	assert.Equal(t, "notes", base)
	assert.Equal(t, "no scanning", term)

	_, _, ok = ParseSearchTermKey("notes")
	assert.False(t, ok)
	_, _, ok = ParseSearchTermKey("search_term_item:notes")
	assert.False(t, ok)
}
