package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

type staticProvider struct {
	name       string
	candidates []model.Candidate
	err        error
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Fetch(ctx context.Context, q Query) ([]model.Candidate, error) {
	return p.candidates, p.err
}

func TestRegistry_SelectAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticProvider{name: "dbpedia"})
	r.Register(&staticProvider{name: "geonames"})

	all, err := r.Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "dbpedia", all[0].Name())
	assert.Equal(t, "geonames", all[1].Name())
}

func TestRegistry_SelectNamed(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticProvider{name: "dbpedia"})
	r.Register(&staticProvider{name: "geonames"})
	r.Register(&staticProvider{name: "foursquare"})

	got, err := r.Select([]string{"foursquare", "dbpedia"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Registration order, not request order.
	assert.Equal(t, "dbpedia", got[0].Name())
	assert.Equal(t, "foursquare", got[1].Name())
}

func TestRegistry_UnknownProvider(t *testing.T) {
	r := NewRegistry()
	r.Register(&staticProvider{name: "dbpedia"})

	_, err := r.Select([]string{"osm"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")

	_, err = r.Get("osm")
	require.Error(t, err)
}
