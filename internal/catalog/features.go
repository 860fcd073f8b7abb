package catalog

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var wordNumbers = map[string]int{
	"one":   1,
	"two":   2,
	"three": 3,
	"four":  4,
	"five":  5,
}

var translationAliases = []struct {
	code    string
	aliases []string
}{
	{"KJV", []string{"kjv", "king james version", "king james"}},
	{"NKJV", []string{"nkjv", "new king james version", "new king james"}},
	{"ESV", []string{"esv", "english standard version"}},
	{"NIV", []string{"niv", "new international version"}},
	{"NLT", []string{"nlt", "new living translation"}},
	{"NASB", []string{"nasb", "new american standard", "new american standard bible"}},
	{"CSB", []string{"csb", "christian standard bible"}},
	{"RSV", []string{"rsv", "revised standard version"}},
	{"NRSV", []string{"nrsv", "new revised standard version"}},
	{"ASV", []string{"asv", "american standard version"}},
	{"CEB", []string{"ceb", "common english bible"}},
	{"GNT", []string{"gnt", "good news translation"}},
	{"AMP", []string{"amp", "amplified bible"}},
}

var formatKeywords = []struct {
	format  string
	phrases []string
}{
	{"bonded leather", []string{"bonded leather"}},
	{"imitation leather", []string{"imitation leather", "leatherette", "faux leather"}},
	{"leather", []string{"genuine leather", "leather"}},
	{"hardcover", []string{"hardcover", "hard cover", "casebound"}},
	{"paperback", []string{"paperback", "softcover", "soft cover"}},
	{"cloth", []string{"cloth", "cloth over board"}},
}

var coverColors = []string{
	"black", "brown", "burgundy", "navy", "blue", "red",
	"green", "pink", "gray", "white", "tan",
}

var featurePatterns = []struct {
	feature string
	phrases []string
}{
	{"red_letter", []string{"red letter", "red-letter", "redletter"}},
	{"study_bible", []string{"study bible", "study edition"}},
	{"commentary_notes", []string{"commentary", "study notes"}},
	{"cross_references", []string{"cross reference", "cross-reference", "crossreferences"}},
	{"concordance", []string{"concordance"}},
	{"maps", []string{"maps", "map section"}},
	{"thumb_indexed", []string{"thumb index", "thumb-indexed", "thumb indexed"}},
	{"gilded_edges", []string{"gilded", "gilt", "gold edges", "gilded edges"}},
	{"journaling", []string{"journaling", "wide margin", "wide-margin", "wide margins"}},
	{"single_column", []string{"single column", "single-column"}},
	{"two_column", []string{"two column", "two-column", "double column", "double-column"}},
	{"devotionals", []string{"devotional", "devotionals"}},
	{"reading_plan", []string{"reading plan", "read through", "one-year", "one year", "365 day"}},
}

var printSizePatterns = []struct {
	label   string
	phrases []string
}{
	{"giant", []string{"giant print", "super giant print"}},
	{"large", []string{"large print"}},
	{"compact", []string{"compact", "ultra compact"}},
	{"personal", []string{"personal size"}},
}

var (
	fontSizeRE    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(pt|point)`)
	ribbonDigitRE = regexp.MustCompile(`(\d+)\s+ribbon`)
	ribbonWordRE  = regexp.MustCompile(`(one|two|three|four|five)\s+ribbon`)
)

func normalizeTexts(texts []string) string {
	var parts []string
	for _, text := range texts {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func findPhrases(text string, phrases []string) []string {
	var hits []string
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			hits = append(hits, phrase)
		}
	}
	return hits
}

// ParseFeatures scans edition text for binding and layout features. It
// returns the detected features alongside the phrases that triggered
// each one.
func ParseFeatures(texts []string) (map[string]any, map[string]any) {
	combined := normalizeTexts(texts)
	features := make(map[string]any)
	evidence := make(map[string]any)

	for _, fp := range featurePatterns {
		if hits := findPhrases(combined, fp.phrases); len(hits) > 0 {
			features[fp.feature] = 1
			evidence[fp.feature] = hits
		}
	}

	for _, ps := range printSizePatterns {
		if hits := findPhrases(combined, ps.phrases); len(hits) > 0 {
			features["print_size"] = ps.label
			evidence["print_size"] = hits
			break
		}
	}

	if m := fontSizeRE.FindStringSubmatch(combined); m != nil {
		size, _ := strconv.ParseFloat(m[1], 64)
		features["font_size"] = size
		evidence["font_size"] = m[0]
	}

	if m := ribbonDigitRE.FindStringSubmatch(combined); m != nil {
		count, _ := strconv.Atoi(m[1])
		features["ribbon_markers_count"] = count
		evidence["ribbon_markers_count"] = m[0]
	} else if m := ribbonWordRE.FindStringSubmatch(combined); m != nil {
		features["ribbon_markers_count"] = wordNumbers[m[1]]
		evidence["ribbon_markers_count"] = m[0]
	}

	return features, evidence
}

// ExtractTranslation matches known translation aliases first, then falls
// back to the seed codes. Returns the code and the matched phrase.
func ExtractTranslation(texts []string, seedCodes []string) (string, string) {
	combined := normalizeTexts(texts)
	for _, ta := range translationAliases {
		for _, alias := range ta.aliases {
			if strings.Contains(combined, alias) {
				return ta.code, alias
			}
		}
	}
	for _, code := range seedCodes {
		codeLower := strings.ToLower(strings.TrimSpace(code))
		if codeLower == "" {
			continue
		}
		if strings.Contains(combined, codeLower) {
			return strings.ToUpper(code), codeLower
		}
	}
	return "", ""
}

// ExtractFormat prefers the structured physical format field over free
// text. Keyword order matters: bonded and imitation leather must win
// over plain leather.
func ExtractFormat(physicalFormat string, texts []string) string {
	if physicalFormat != "" {
		physicalLower := strings.ToLower(physicalFormat)
		for _, fk := range formatKeywords {
			if len(findPhrases(physicalLower, fk.phrases)) > 0 {
				return fk.format
			}
		}
	}
	combined := normalizeTexts(texts)
	for _, fk := range formatKeywords {
		if len(findPhrases(combined, fk.phrases)) > 0 {
			return fk.format
		}
	}
	return ""
}

// ExtractCoverColor only accepts a color adjacent to a binding word, so
// "red letter edition" never reads as a red cover.
func ExtractCoverColor(texts []string) string {
	combined := normalizeTexts(texts)
	for _, color := range coverColors {
		forward := regexp.MustCompile(`\b` + color + `\b\s+(leather|cover|hardcover|paperback|cloth|binding)`)
		reverse := regexp.MustCompile(`(leather|cover|hardcover|paperback|cloth|binding)\s+\b` + color + `\b`)
		if forward.MatchString(combined) || reverse.MatchString(combined) {
			return color
		}
	}
	return ""
}

func FeatureEvidenceJSON(evidence map[string]any) string {
	b, _ := json.Marshal(evidence)
	return string(b)
}
