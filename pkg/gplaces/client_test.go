package gplaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "g-test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.location")

		var body textSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "haunted places in TR", body.TextQuery)
		assert.Equal(t, 10, body.PageSize)

		_, _ = w.Write([]byte(`{
			"places": [
				{"id": "pid1", "displayName": {"text": "Orumcek Kosku"},
				 "location": {"latitude": 41.0712, "longitude": 28.9834},
				 "formattedAddress": "Emirgan, Istanbul"},
				{"id": "pid2", "displayName": {"text": ""}}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient("g-test-key", WithBaseURL(srv.URL))
	got, err := client.Fetch(context.Background(), scan.Query{Country: "TR", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1, "nameless hits are dropped")

	cand := got[0]
	assert.Equal(t, "Orumcek Kosku", cand.Name)
	require.NotNil(t, cand.Lat)
	assert.InDelta(t, 41.0712, *cand.Lat, 0.0001)
	assert.Equal(t, "https://www.google.com/maps/place/?q=place_id:pid1", cand.Sources[0].URL)
}

func TestFetch_MissingKey(t *testing.T) {
	client := NewClient("", WithBaseURL("http://127.0.0.1:0"))
	_, err := client.Fetch(context.Background(), scan.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key not configured")
}

func TestFetch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "key restricted"}`))
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	_, err := client.Fetch(context.Background(), scan.Query{Country: "TR"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key restricted")
}
