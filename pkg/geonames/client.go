// Package geonames fetches candidate places from the GeoNames search API.
package geonames

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

const defaultBaseURL = "http://api.geonames.org"

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

// Client queries the GeoNames search API.
type Client struct {
	username string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a GeoNames client. The username is the registered
// GeoNames account; requests without one are rejected upstream.
func NewClient(username string, opts ...Option) *Client {
	c := &Client{
		username: username,
		baseURL:  defaultBaseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements scan.Provider.
func (c *Client) Name() string { return "geonames" }

type searchResponse struct {
	Geonames []geoname `json:"geonames"`
	Status   *struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
}

// geoname is one search hit. GeoNames serializes coordinates as strings.
type geoname struct {
	GeonameID   int    `json:"geonameId"`
	Name        string `json:"name"`
	Lat         string `json:"lat"`
	Lng         string `json:"lng"`
	CountryCode string `json:"countryCode"`
	AdminName1  string `json:"adminName1"`
	FcodeName   string `json:"fcodeName"`
}

// Fetch implements scan.Provider.
func (c *Client) Fetch(ctx context.Context, q scan.Query) ([]model.Candidate, error) {
	if c.username == "" {
		return nil, eris.New("geonames: username not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geonames: rate limit")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{
		"q":        {"haunted"},
		"maxRows":  {strconv.Itoa(limit)},
		"username": {c.username},
		"type":     {"json"},
	}
	if q.Country != "" {
		params.Set("country", q.Country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/searchJSON?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geonames: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geonames: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geonames: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geonames: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "geonames: parse response")
	}
	// GeoNames signals quota and auth failures inside a 200 body.
	if out.Status != nil {
		return nil, eris.Errorf("geonames: api error %d: %s", out.Status.Value, out.Status.Message)
	}

	candidates := make([]model.Candidate, 0, len(out.Geonames))
	for _, g := range out.Geonames {
		if g.Name == "" {
			continue
		}
		cand := model.Candidate{
			Name:        g.Name,
			Category:    "haunted_location",
			CountryCode: g.CountryCode,
			City:        g.AdminName1,
			Sources: []model.Source{{
				URL:    fmt.Sprintf("https://www.geonames.org/%d", g.GeonameID),
				Domain: "geonames.org",
				Type:   "api",
			}},
		}
		if cand.CountryCode == "" {
			cand.CountryCode = q.Country
		}
		lat, latErr := strconv.ParseFloat(g.Lat, 64)
		lon, lonErr := strconv.ParseFloat(g.Lng, 64)
		if latErr == nil && lonErr == nil {
			cand.Lat = model.Float(lat)
			cand.Lon = model.Float(lon)
		} else {
			zap.L().Debug("geonames hit without usable coordinates",
				zap.Int("geoname_id", g.GeonameID), zap.String("name", g.Name))
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
