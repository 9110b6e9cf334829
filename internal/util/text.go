package util

import (
	"regexp"
	"strings"
)

var (
	// Letters and digits of any script survive; company names carry accents.
	reSlugStrip   = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	reSlugJoin    = regexp.MustCompile(`[-\s]+`)
	reWhitespace  = regexp.MustCompile(`\s`)
	reParamSpaces = regexp.MustCompile(`\s+`)
)

// Slugify converts a value to its loose-matching form: lowercase, punctuation
// stripped, runs of spaces and hyphens collapsed to a single hyphen.
func Slugify(input string) string {
	s := strings.ToLower(input)
	s = reSlugStrip.ReplaceAllString(s, "")
	s = reSlugJoin.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}

// NormalizeContainer strips all whitespace and upper-cases a container number
// for comparison.
func NormalizeContainer(input string) string {
	return reWhitespace.ReplaceAllString(strings.ToUpper(input), "")
}

// FormatCountryName title-cases each word of a country name so it matches the
// country lookup table.
func FormatCountryName(input string) string {
	words := strings.Fields(strings.ToLower(input))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// NormalizeParamName is the loose form used when a column name has no exact
// parameter match: lowercase with all spaces removed.
func NormalizeParamName(input string) string {
	return reParamSpaces.ReplaceAllString(strings.ToLower(input), "")
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }
