package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Haunted Mill", "haunted-mill"},
		{"turkish_diacritics", "Örümcek Köşkü", "orumcek-kosku"},
		{"upper_turkish", "ŞATOBURG", "satoburg"},
		{"leading_article_the", "The Stanley Hotel", "stanley-hotel"},
		{"leading_article_la", "La Isla de las Muñecas", "isla-de-las-munecas"},
		{"german_article", "Der Geisterwald", "geisterwald"},
		{"parenthetical_becomes_hyphen", "Eastern State (Penitentiary)", "eastern-state-penitentiary"},
		{"punctuation_runs", "St. Augustine's   Lighthouse!!", "st-augustine-s-lighthouse"},
		{"latin_diacritics", "Château de Brissac", "chateau-de-brissac"},
		{"empty", "", ""},
		{"all_punctuation", "?!---...", ""},
		{"whitespace_only", "   \t ", ""},
		{"article_without_space_kept", "Theodore Manor", "theodore-manor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Örümcek Köşkü",
		"The Stanley Hotel",
		"Eastern State (Penitentiary)",
		"",
		"already-a-slug",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalize_CaseAndDiacriticInvariance(t *testing.T) {
	a := Normalize("Şatoburg")
	b := Normalize("satoburg")
	c := Normalize("SATOBURG")
	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestLocationHash(t *testing.T) {
	lat := 41.0134
	lon := 28.9844
	assert.Equal(t, "41.01,28.98", LocationHash(&lat, &lon))
	assert.Equal(t, "", LocationHash(nil, &lon))
	assert.Equal(t, "", LocationHash(&lat, nil))
}

func TestExtractExternalID(t *testing.T) {
	id := ExtractExternalID("Q123", "")
	assert.Equal(t, &ExternalID{Type: "wikidata", ID: "Q123"}, id)

	id = ExtractExternalID("", "node/42")
	assert.Equal(t, &ExternalID{Type: "osm", ID: "node/42"}, id)

	// Wikidata wins when both are present.
	id = ExtractExternalID("Q7", "node/42")
	assert.Equal(t, "wikidata", id.Type)

	assert.Nil(t, ExtractExternalID("", ""))
}
