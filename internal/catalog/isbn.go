package catalog

import (
	"regexp"
	"strings"
)

var (
	isbn10RE    = regexp.MustCompile(`^\d{9}[0-9Xx]$`)
	isbn13RE    = regexp.MustCompile(`^\d{13}$`)
	nonIsbnRE   = regexp.MustCompile(`[^0-9Xx]`)
	yearDigitRE = regexp.MustCompile(`\b(\d{4})\b`)
)

// NormalizeISBN strips separators and validates the result as either an
// ISBN-10 or ISBN-13. Returns "" for anything else.
func NormalizeISBN(value string) string {
	digits := nonIsbnRE.ReplaceAllString(value, "")
	if isbn13RE.MatchString(digits) {
		return digits
	}
	if isbn10RE.MatchString(digits) {
		return strings.ToUpper(digits)
	}
	return ""
}

// ISBN10To13 converts a valid ISBN-10 to its 978-prefixed ISBN-13 form.
func ISBN10To13(isbn10 string) string {
	if !isbn10RE.MatchString(isbn10) {
		return ""
	}
	core := "978" + isbn10[:len(isbn10)-1]
	total := 0
	for i, ch := range core {
		factor := 1
		if i%2 == 1 {
			factor = 3
		}
		total += int(ch-'0') * factor
	}
	check := (10 - total%10) % 10
	return core + string(rune('0'+check))
}
