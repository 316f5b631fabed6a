package aigen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSDKMessenger_CreateMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/messages")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-sonnet-4-5-20250929", body["model"])
		assert.EqualValues(t, 2048, body["max_tokens"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":   "msg_test_001",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `[{"name": "Kara`},
				{"type": "text", "text": ` Konak"}]`},
			},
			"model":       "claude-sonnet-4-5-20250929",
			"stop_reason": "end_turn",
			"usage": map[string]any{
				"input_tokens":  100,
				"output_tokens": 40,
			},
		})
	}))
	defer ts.Close()

	m := NewSDKMessenger("test-key", "claude-sonnet-4-5-20250929", 2048, option.WithBaseURL(ts.URL))
	text, err := m.CreateMessage(context.Background(), "list places")
	require.NoError(t, err)
	assert.Equal(t, `[{"name": "Kara Konak"}]`, text, "text blocks are concatenated")
}

func TestSDKMessenger_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	m := NewSDKMessenger("test-key", "claude-sonnet-4-5-20250929", 1024,
		option.WithBaseURL(ts.URL), option.WithMaxRetries(0))
	_, err := m.CreateMessage(context.Background(), "list places")
	require.Error(t, err)
}
