package dbpedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

const sparqlFixture = `{
  "results": {
    "bindings": [
      {
        "place": {"type": "uri", "value": "http://dbpedia.org/resource/Spider_Mansion"},
        "label": {"type": "literal", "value": "Spider Mansion"},
        "abstract": {"type": "literal", "value": "A reportedly haunted mansion."},
        "lat": {"type": "literal", "value": "41.0712"},
        "long": {"type": "literal", "value": "28.9834"}
      },
      {
        "place": {"type": "uri", "value": "http://dbpedia.org/resource/Old_Cemetery"},
        "label": {"type": "literal", "value": "Old Cemetery"}
      }
    ]
  }
}`

func TestFetch_ParsesBindings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		assert.Contains(t, query, "haunted")
		assert.Contains(t, query, `"Turkey"`)
		_, _ = w.Write([]byte(sparqlFixture))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Fetch(context.Background(), scan.Query{Country: "TR", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Spider Mansion", first.Name)
	assert.Equal(t, "A reportedly haunted mansion.", first.Description)
	assert.Equal(t, "TR", first.CountryCode)
	require.NotNil(t, first.Lat)
	assert.InDelta(t, 41.0712, *first.Lat, 0.0001)
	require.Len(t, first.Sources, 1)
	assert.Equal(t, "http://dbpedia.org/page/Spider_Mansion", first.Sources[0].URL)

	second := got[1]
	assert.Nil(t, second.Lat)
	assert.Empty(t, second.Description)
}

func TestFetch_UnsupportedCountry(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:0"))
	_, err := client.Fetch(context.Background(), scan.Query{Country: "ZZ"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported country")
}

func TestFetch_EndpointError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Fetch(context.Background(), scan.Query{Country: "TR"})
	require.Error(t, err)
}
