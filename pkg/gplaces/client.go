// Package gplaces fetches candidate places from the Google Places API (new).
package gplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

const (
	defaultBaseURL = "https://places.googleapis.com/v1"
	fieldMask      = "places.id,places.displayName,places.location,places.formattedAddress"
)

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit caps request throughput in requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// Client queries the Places Text Search endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google Places client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements scan.Provider.
func (c *Client) Name() string { return "gplaces" }

type textSearchRequest struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize,omitempty"`
}

type textSearchResponse struct {
	Places []gPlace `json:"places"`
}

type gPlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	FormattedAddress string `json:"formattedAddress"`
}

// Fetch implements scan.Provider.
func (c *Client) Fetch(ctx context.Context, q scan.Query) ([]model.Candidate, error) {
	if c.apiKey == "" {
		return nil, eris.New("gplaces: api key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "gplaces: rate limit")
	}

	text := "haunted places"
	if q.Country != "" {
		text += " in " + q.Country
	}
	limit := q.Limit
	if limit <= 0 || limit > 20 {
		limit = 20 // API maximum page size
	}

	body, err := json.Marshal(textSearchRequest{TextQuery: text, PageSize: limit})
	if err != nil {
		return nil, eris.Wrap(err, "gplaces: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "gplaces: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "gplaces: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gplaces: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("gplaces: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var out textSearchResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "gplaces: parse response")
	}

	candidates := make([]model.Candidate, 0, len(out.Places))
	for _, p := range out.Places {
		if p.DisplayName.Text == "" {
			continue
		}
		cand := model.Candidate{
			Name:        p.DisplayName.Text,
			Category:    "haunted_location",
			CountryCode: q.Country,
			Sources: []model.Source{{
				URL:    "https://www.google.com/maps/place/?q=place_id:" + p.ID,
				Domain: "google.com",
				Type:   "api",
			}},
		}
		if p.Location.Latitude != 0 || p.Location.Longitude != 0 {
			cand.Lat = model.Float(p.Location.Latitude)
			cand.Lon = model.Float(p.Location.Longitude)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
