package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFeatures(t *testing.T) {
	features, evidence := ParseFeatures([]string{
		"ESV Study Bible, Large Print",
		"Red-letter edition with concordance, maps, and three ribbon markers. 10.5 pt type.",
	})

	assert.Equal(t, 1, features["red_letter"])
	assert.Equal(t, 1, features["study_bible"])
	assert.Equal(t, 1, features["concordance"])
	assert.Equal(t, 1, features["maps"])
	assert.Equal(t, "large", features["print_size"])
	assert.Equal(t, 10.5, features["font_size"])
	assert.Equal(t, 3, features["ribbon_markers_count"])
	assert.Equal(t, []string{"red-letter"}, evidence["red_letter"])
	assert.Equal(t, "three ribbon", evidence["ribbon_markers_count"])
}

func TestParseFeaturesDigitRibbonWinsOverWord(t *testing.T) {
	features, _ := ParseFeatures([]string{"2 ribbon markers, one ribbon spare"})
	assert.Equal(t, 2, features["ribbon_markers_count"])
}

func TestExtractTranslation(t *testing.T) {
	code, raw := ExtractTranslation([]string{"The New King James Version Study Bible"}, nil)
	assert.Equal(t, "NKJV", code)
	assert.Equal(t, "new king james version", raw)

	code, raw = ExtractTranslation([]string{"Holy Bible, XYZ edition"}, []string{"XYZ"})
	assert.Equal(t, "XYZ", code)
	assert.Equal(t, "xyz", raw)

	code, _ = ExtractTranslation([]string{"Unmarked text"}, []string{"KJV"})
	assert.Equal(t, "", code)
}

func TestExtractFormatPrecedence(t *testing.T) {
	assert.Equal(t, "bonded leather", ExtractFormat("Bonded Leather", nil))
	assert.Equal(t, "imitation leather", ExtractFormat("", []string{"faux leather cover"}))
	assert.Equal(t, "leather", ExtractFormat("", []string{"genuine leather binding"}))
	assert.Equal(t, "hardcover", ExtractFormat("Hardcover", []string{"paperback reprint"}))
	assert.Equal(t, "", ExtractFormat("", []string{"digital edition"}))
}

func TestExtractCoverColorNeedsBindingContext(t *testing.T) {
	assert.Equal(t, "black", ExtractCoverColor([]string{"black leather with gilded edges"}))
	assert.Equal(t, "navy", ExtractCoverColor([]string{"hardcover navy jacket"}))
	assert.Equal(t, "", ExtractCoverColor([]string{"red letter edition"}))
}
