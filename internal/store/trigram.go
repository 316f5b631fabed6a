package store

import (
	"strings"
	"unicode"
)

// trigramSet extracts pg_trgm-style trigrams: the string is lowercased,
// non-alphanumerics become word breaks, and each word is padded with two
// leading and one trailing space before windowing.
func trigramSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	var word []rune
	flush := func() {
		if len(word) == 0 {
			return
		}
		padded := append([]rune("  "), word...)
		padded = append(padded, ' ')
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
		word = word[:0]
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word = append(word, r)
		} else {
			flush()
		}
	}
	flush()
	return set
}

// trigramSimilarity mirrors pg_trgm similarity(): shared trigrams over the
// union, in [0,1].
func trigramSimilarity(a, b string) float64 {
	ta := trigramSet(a)
	tb := trigramSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}
