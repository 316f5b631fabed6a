// Package slug derives URL-safe, comparable identifiers from place names.
// The slug is the primary human-readable duplicate key: two names that are
// equivalent up to case, diacritics, and a leading article collapse to the
// same slug.
package slug

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// turkishFold maps Turkish letters to their ASCII base before the generic
// diacritic strip runs. The dotless ı has no combining-mark decomposition,
// so it must be handled explicitly.
var turkishFold = strings.NewReplacer(
	"ğ", "g",
	"ü", "u",
	"ş", "s",
	"ı", "i",
	"ö", "o",
	"ç", "c",
)

var (
	leadingArticle = regexp.MustCompile(`^(the|a|an|le|la|el|il|der|die|das)\s+`)
	parenthetical  = regexp.MustCompile(`\s*\(.*?\)\s*`)
	nonAlnum       = regexp.MustCompile(`[^a-z0-9]+`)
	edgeHyphens    = regexp.MustCompile(`^-+|-+$`)
	multiHyphen    = regexp.MustCompile(`-+`)
)

// stripMarks removes combining marks after NFD decomposition, folding
// diacritics outside the fixed Turkish set (é→e, å→a, ...).
var stripMarks = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize converts a display name into its canonical slug. Pure and total:
// any string input is accepted, empty or all-punctuation input yields "".
// Callers must treat an empty result as "no reliable slug key".
func Normalize(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))
	s = turkishFold.Replace(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = leadingArticle.ReplaceAllString(s, "")
	// Parenthesized suffixes become a hyphen separator, not deleted outright,
	// so "Castle (ruins)" and "Castle" stay distinct slugs.
	s = parenthetical.ReplaceAllString(s, "-")
	s = nonAlnum.ReplaceAllString(s, "-")
	s = edgeHyphens.ReplaceAllString(s, "")
	s = multiHyphen.ReplaceAllString(s, "-")
	return s
}

// LocationHash buckets coordinates on a ~1km grid (0.01 degree) for grouping
// near-identical locations within a batch. Returns "" when either side is nil.
func LocationHash(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return ""
	}
	return fmt.Sprintf("%.2f,%.2f", *lat, *lon)
}

// ExternalID identifies a place in an external source ecosystem.
type ExternalID struct {
	Type string // "wikidata" or "osm"
	ID   string
}

// ExtractExternalID returns the strongest external identifier carried by a
// candidate, preferring Wikidata over OSM. Nil when neither is set.
func ExtractExternalID(wikidataID, osmID string) *ExternalID {
	if wikidataID != "" {
		return &ExternalID{Type: "wikidata", ID: wikidataID}
	}
	if osmID != "" {
		return &ExternalID{Type: "osm", ID: osmID}
	}
	return nil
}
