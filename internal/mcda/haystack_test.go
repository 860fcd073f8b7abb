package mcda

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildHaystackConcatenatesTextFields(t *testing.T) {
	item := Record{
		"system_type":  "CGM",
		"product_name": "Dexcom G7",
		"notes":        []any{"waterproof", "10-day wear"},
	}

	haystack := BuildHaystack(item)
	assert.Contains(t, haystack, "cgm")
	assert.Contains(t, haystack, "dexcom g7")
	assert.Contains(t, haystack, "waterproof")
	assert.Contains(t, haystack, "10-day wear")
}

func TestBuildHaystackStripsHTML(t *testing.T) {
	item := Record{
		"pricing_notes": "<b>MSRP</b> around<br/>$299",
	}

	haystack := BuildHaystack(item)
	assert.Equal(t, "msrp around $299", haystack)
}

func TestBuildHaystackScanRequiredSynthetics(t *testing.T) {
	cases := []struct {
		name string
		item Record
		want string
	}{
		{"string no", Record{"scan_required": "No"}, "no scanning"},
		{"string yes", Record{"scan_required": "yes"}, "scan required"},
		{"bool false", Record{"scan_required": false}, "no scanning"},
		{"bool true", Record{"scan_required": true}, "scan required"},
		{"reading bool", Record{"scan_required_for_current_reading": false}, "no scanning"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Contains(t, BuildHaystack(tc.item), tc.want)
		})
	}
}

func TestBuildHaystackPricingSourceLabels(t *testing.T) {
	item := Record{
		"pricing_sources": []any{
			Record{"label": "Retail", "url": "https://example.com"},
			"not-a-map",
		},
	}

	haystack := BuildHaystack(item)
	assert.Contains(t, haystack, "retail")
	assert.NotContains(t, haystack, "example.com")
}

func TestBuildHaystackEmptyItem(t *testing.T) {
	assert.Equal(t, "", BuildHaystack(Record{}))
}

func TestBuildHaystackDeterministic(t *testing.T) {
	item := Record{
		"notes": Record{"b": "beta", "a": "alpha", "c": "gamma"},
	}
	first := BuildHaystack(item)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, BuildHaystack(item))
	}
	assert.True(t, strings.Contains(first, "alpha beta gamma"))
}
