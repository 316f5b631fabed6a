// Package dbpedia fetches candidate places from the DBpedia SPARQL endpoint.
package dbpedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

const (
	defaultBaseURL   = "https://dbpedia.org/sparql"
	defaultUserAgent = "HauntedWhispersBot/1.0"
)

// sparqlQuery finds places filed under haunted-related categories. DBpedia's
// category labels carry the country ("Reportedly haunted locations in
// Turkey"), so country narrowing happens on the label too.
const sparqlQuery = `PREFIX dct: <http://purl.org/dc/terms/>
PREFIX dbo: <http://dbpedia.org/ontology/>
PREFIX geo: <http://www.w3.org/2003/01/geo/wgs84_pos#>
SELECT DISTINCT ?place ?label ?abstract ?lat ?long WHERE {
  ?place dct:subject ?cat .
  ?cat rdfs:label ?catLabel .
  FILTER(LANG(?catLabel) = "en")
  FILTER(CONTAINS(LCASE(STR(?catLabel)), "haunted"))
  FILTER(CONTAINS(LCASE(STR(?catLabel)), LCASE(%q)))
  ?place rdfs:label ?label .
  FILTER(LANG(?label) = "en")
  OPTIONAL { ?place dbo:abstract ?abstract . FILTER(LANG(?abstract) = "en") }
  OPTIONAL { ?place geo:lat ?lat ; geo:long ?long . }
}
LIMIT %d`

// countryNames maps ISO codes onto the English names DBpedia categories use.
var countryNames = map[string]string{
	"TR": "Turkey",
	"US": "the United States",
	"GB": "the United Kingdom",
	"DE": "Germany",
	"FR": "France",
	"IT": "Italy",
	"ES": "Spain",
	"MX": "Mexico",
	"JP": "Japan",
	"IN": "India",
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the default SPARQL endpoint.
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

// Client queries the DBpedia SPARQL endpoint.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
}

// NewClient creates a DBpedia SPARQL client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name implements scan.Provider.
func (c *Client) Name() string { return "dbpedia" }

type sparqlResponse struct {
	Results struct {
		Bindings []map[string]sparqlValue `json:"bindings"`
	} `json:"results"`
}

type sparqlValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Fetch implements scan.Provider.
func (c *Client) Fetch(ctx context.Context, q scan.Query) ([]model.Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "dbpedia: rate limit")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	country := q.Country
	if country == "" {
		country = "TR"
	}
	countryName, ok := countryNames[country]
	if !ok {
		return nil, eris.Errorf("dbpedia: unsupported country %q", country)
	}

	sparql := fmt.Sprintf(sparqlQuery, countryName, limit)
	params := url.Values{"query": {sparql}, "format": {"application/sparql-results+json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "dbpedia: build request")
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dbpedia: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dbpedia: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("dbpedia: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out sparqlResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "dbpedia: parse response")
	}

	candidates := make([]model.Candidate, 0, len(out.Results.Bindings))
	for _, b := range out.Results.Bindings {
		name := b["label"].Value
		pageURI := b["place"].Value
		if name == "" || pageURI == "" {
			continue
		}

		cand := model.Candidate{
			Name:        name,
			Category:    "haunted_location",
			Description: b["abstract"].Value,
			CountryCode: country,
			Sources: []model.Source{{
				URL:    pageURL(pageURI),
				Domain: "dbpedia.org",
				Type:   "api",
			}},
		}
		if lat, err := strconv.ParseFloat(b["lat"].Value, 64); err == nil {
			if lon, err := strconv.ParseFloat(b["long"].Value, 64); err == nil {
				cand.Lat = model.Float(lat)
				cand.Lon = model.Float(lon)
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// pageURL rewrites a dbpedia.org/resource URI into the browsable page URL.
func pageURL(resourceURI string) string {
	return strings.Replace(resourceURI, "/resource/", "/page/", 1)
}
