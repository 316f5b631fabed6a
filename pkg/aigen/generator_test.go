package aigen

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

type fakeMessenger struct {
	response string
	err      error
	prompt   string
}

func (f *fakeMessenger) CreateMessage(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

const fencedResponse = "Here are the places:\n```json\n" + `[
  {
    "name": "Kara Konak",
    "category": "mansion",
    "description": "An abandoned mansion with a well-documented local legend.",
    "city": "Izmir",
    "country_code": "TR",
    "lat": 38.4237,
    "lon": 27.1428,
    "evidence_score": 85,
    "source_urls": ["https://example.com/kara-konak", "not a url", "ftp://files.example.com/x"]
  },
  {
    "name": "",
    "description": "malformed, no name"
  },
  {
    "name": "Issiz Koy",
    "evidence_score": 40,
    "lat": 39.0
  }
]` + "\n```\nLet me know if you need more."

func TestFetch_ParsesFencedJSON(t *testing.T) {
	m := &fakeMessenger{response: fencedResponse}
	g := NewGenerator(m, 3)

	got, err := g.Fetch(context.Background(), scan.Query{Country: "TR"})
	require.NoError(t, err)
	require.Len(t, got, 2, "nameless elements are skipped")

	assert.Contains(t, m.prompt, "List 3 lesser-known")
	assert.Contains(t, m.prompt, `"TR"`)

	first := got[0]
	assert.Equal(t, "Kara Konak", first.Name)
	assert.Equal(t, "mansion", first.Category)
	assert.Equal(t, "Izmir", first.City)
	assert.Equal(t, 85, first.EvidenceScore)
	require.NotNil(t, first.Lat)
	assert.InDelta(t, 38.4237, *first.Lat, 0.0001)
	require.Len(t, first.Sources, 1, "non-http urls are dropped")
	assert.Equal(t, "https://example.com/kara-konak", first.Sources[0].URL)
	assert.Equal(t, "example.com", first.Sources[0].Domain)
	assert.Equal(t, "ai", first.Sources[0].Type)

	second := got[1]
	assert.Equal(t, "Issiz Koy", second.Name)
	assert.Equal(t, "haunted_location", second.Category, "missing category defaults")
	assert.Equal(t, "TR", second.CountryCode, "missing country falls back to the query")
	assert.Nil(t, second.Lat, "lat without lon is discarded")
	assert.Empty(t, second.Sources)
}

func TestFetch_NoJSONArray(t *testing.T) {
	g := NewGenerator(&fakeMessenger{response: "I cannot help with that."}, 3)
	_, err := g.Fetch(context.Background(), scan.Query{Country: "TR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no JSON array")
}

func TestFetch_MalformedArray(t *testing.T) {
	g := NewGenerator(&fakeMessenger{response: `[{"name": "Broken"]`}, 3)
	_, err := g.Fetch(context.Background(), scan.Query{Country: "TR"})
	require.Error(t, err)
}

func TestFetch_MessengerError(t *testing.T) {
	g := NewGenerator(&fakeMessenger{err: eris.New("overloaded")}, 3)
	_, err := g.Fetch(context.Background(), scan.Query{Country: "TR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestSourceDomain(t *testing.T) {
	assert.Equal(t, "example.com", sourceDomain("https://www.example.com/page"))
	assert.Equal(t, "tr.wikipedia.org", sourceDomain("https://tr.wikipedia.org/wiki/X"))
	assert.Empty(t, sourceDomain("ftp://example.com/x"))
	assert.Empty(t, sourceDomain("not a url"))
	assert.Empty(t, sourceDomain(""))
}
