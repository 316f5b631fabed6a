package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

func TestDedupBatch_CollapsesSamePlace(t *testing.T) {
	batch := []model.Candidate{
		{
			Name: "Orumcek Kosku", Lat: model.Float(41.0712), Lon: model.Float(28.9834),
			Sources: []model.Source{{URL: "https://dbpedia.org/page/A", Domain: "dbpedia.org", Type: "api"}},
		},
		{
			// Same grid cell, different provider, stronger identity.
			Name: "orumcek kosku", Lat: model.Float(41.0749), Lon: model.Float(28.9801),
			WikidataID: "Q123",
			Sources:    []model.Source{{URL: "https://www.wikidata.org/wiki/Q123", Domain: "wikidata.org", Type: "api"}},
		},
		{
			Name: "Beykoz Kasri", Lat: model.Float(41.13), Lon: model.Float(29.09),
			Sources: []model.Source{{URL: "https://geonames.org/1", Domain: "geonames.org", Type: "api"}},
		},
	}

	out := DedupBatch(batch)
	require.Len(t, out, 2)

	merged := out[0]
	assert.Equal(t, "Orumcek Kosku", merged.Name, "first occurrence wins for non-source fields")
	assert.Equal(t, "Q123", merged.WikidataID, "strongest external id is kept")
	require.Len(t, merged.Sources, 2)
	assert.Equal(t, "https://dbpedia.org/page/A", merged.Sources[0].URL)

	assert.Equal(t, "Beykoz Kasri", out[1].Name)
}

func TestDedupBatch_DifferentCellsStaySeparate(t *testing.T) {
	batch := []model.Candidate{
		{Name: "Kara Konak", Lat: model.Float(41.01), Lon: model.Float(28.98)},
		{Name: "Kara Konak", Lat: model.Float(38.42), Lon: model.Float(27.14)},
	}
	assert.Len(t, DedupBatch(batch), 2)
}

func TestDedupBatch_NoCoordinatesKeyedByCountry(t *testing.T) {
	batch := []model.Candidate{
		{Name: "Kara Konak", CountryCode: "TR",
			Sources: []model.Source{{URL: "https://a.example/1", Domain: "a.example", Type: "ai"}}},
		{Name: "Kara Konak", CountryCode: "TR",
			Sources: []model.Source{{URL: "https://b.example/1", Domain: "b.example", Type: "ai"}}},
		{Name: "Kara Konak", CountryCode: "DE"},
	}

	out := DedupBatch(batch)
	require.Len(t, out, 2)
	assert.Len(t, out[0].Sources, 2)
}

func TestDedupBatch_Empty(t *testing.T) {
	assert.Empty(t, DedupBatch(nil))
}
