package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page/summary/Spider_Mansion", r.URL.Path)
		assert.Equal(t, "HauntedWhispersBot/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"extract": "  A reportedly haunted mansion in Istanbul.  "}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Summary(context.Background(), "Spider_Mansion")
	require.NoError(t, err)
	assert.Equal(t, "A reportedly haunted mansion in Istanbul.", got)
}

func TestSummary_TruncatesLongExtract(t *testing.T) {
	long := strings.Repeat("word ", 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"extract": "` + long + `"}`))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Summary(context.Background(), "Long_Page")
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(got)), maxExtractRunes+1)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "…"), "wor"), "never cuts mid-word")
}

func TestSummary_MissingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	got, err := client.Summary(context.Background(), "Nonexistent_Page")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummary_EmptyTitle(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:0"))
	got, err := client.Summary(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummary_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	_, err := client.Summary(context.Background(), "Any_Page")
	require.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly ten", truncate("exactly ten", 11))
	assert.Equal(t, "one…", truncate("one two three", 6))
}
