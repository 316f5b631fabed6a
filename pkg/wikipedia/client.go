// Package wikipedia fetches short article extracts from the Wikipedia REST API.
package wikipedia

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://en.wikipedia.org/api/rest_v1"
	defaultUserAgent = "HauntedWhispersBot/1.0"

	// maxExtractRunes caps stored descriptions; full articles belong on
	// Wikipedia, not in the directory.
	maxExtractRunes = 500
)

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default REST API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRateLimit caps request throughput in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// Client fetches page summaries.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a Wikipedia REST client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: 15 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type summaryResponse struct {
	Extract string `json:"extract"`
}

// Summary returns the page's lead extract, truncated to a bounded length.
// A missing page returns an empty string without error.
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	if title == "" {
		return "", nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "wikipedia: rate limit")
	}

	reqURL := c.baseURL + "/page/summary/" + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "wikipedia: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "wikipedia: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "wikipedia: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("wikipedia: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out summaryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", eris.Wrap(err, "wikipedia: parse response")
	}

	return truncate(strings.TrimSpace(out.Extract), maxExtractRunes), nil
}

// truncate cuts s to at most n runes, backing up to the last word boundary
// so the result never ends mid-word.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}
