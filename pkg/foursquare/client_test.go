package foursquare

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/search", r.URL.Path)
		assert.Equal(t, "fsq-test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "haunted", r.URL.Query().Get("query"))
		assert.Equal(t, "TR", r.URL.Query().Get("near"))

		_, _ = w.Write([]byte(`{
			"results": [
				{"fsq_id": "abc123", "name": "Orumcek Kosku",
				 "geocodes": {"main": {"latitude": 41.0712, "longitude": 28.9834}},
				 "location": {"locality": "Istanbul", "country": "TR"}},
				{"fsq_id": "def456", "name": "Unmapped Ruin", "geocodes": {"main": {}}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient("fsq-test-key", WithBaseURL(srv.URL))
	got, err := client.Fetch(context.Background(), scan.Query{Country: "TR", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Orumcek Kosku", first.Name)
	assert.Equal(t, "Istanbul", first.City)
	require.NotNil(t, first.Lat)
	assert.InDelta(t, 41.0712, *first.Lat, 0.0001)
	assert.Equal(t, "https://foursquare.com/v/abc123", first.Sources[0].URL)

	assert.Nil(t, got[1].Lat, "zero geocode means no coordinates")
}

func TestFetch_MissingKey(t *testing.T) {
	client := NewClient("", WithBaseURL("http://127.0.0.1:0"))
	_, err := client.Fetch(context.Background(), scan.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestFetch_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.Fetch(context.Background(), scan.Query{Country: "TR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
