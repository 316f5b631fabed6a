// Package foursquare fetches candidate places from the Foursquare Places API.
package foursquare

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

const defaultBaseURL = "https://api.foursquare.com/v3"

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

// Client queries the Foursquare Places search API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Foursquare client.
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
func (c *Client) Name() string { return "foursquare" }

type searchResponse struct {
	Results []fsqPlace `json:"results"`
}

type fsqPlace struct {
	FsqID    string `json:"fsq_id"`
	Name     string `json:"name"`
	Geocodes struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
	Location struct {
		Locality string `json:"locality"`
		Country  string `json:"country"`
	} `json:"location"`
}

// Fetch implements scan.Provider.
func (c *Client) Fetch(ctx context.Context, q scan.Query) ([]model.Candidate, error) {
	if c.apiKey == "" {
		return nil, eris.New("foursquare: api key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "foursquare: rate limit")
	}

	limit := q.Limit
	if limit <= 0 || limit > 50 {
		limit = 50 // API maximum
	}
	params := url.Values{
		"query": {"haunted"},
		"limit": {strconv.Itoa(limit)},
	}
	if q.Country != "" {
		params.Set("near", q.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/search?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: build request")
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "foursquare: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("foursquare: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "foursquare: parse response")
	}

	candidates := make([]model.Candidate, 0, len(out.Results))
	for _, p := range out.Results {
		if p.Name == "" {
			continue
		}
		cand := model.Candidate{
			Name:        p.Name,
			Category:    "haunted_location",
			CountryCode: q.Country,
			City:        p.Location.Locality,
			Sources: []model.Source{{
				URL:    "https://foursquare.com/v/" + p.FsqID,
				Domain: "foursquare.com",
				Type:   "api",
			}},
		}
		if p.Geocodes.Main.Latitude != 0 || p.Geocodes.Main.Longitude != 0 {
			cand.Lat = model.Float(p.Geocodes.Main.Latitude)
			cand.Lon = model.Float(p.Geocodes.Main.Longitude)
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
