// Package wikidata fetches candidate places from the Wikidata SPARQL endpoint.
package wikidata

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
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

const (
	defaultBaseURL   = "https://query.wikidata.org/sparql"
	defaultUserAgent = "HauntedWhispersBot/1.0"
)

// sparqlQuery finds reportedly haunted locations in a country, identified by
// its ISO 3166-1 alpha-2 code so no country-to-QID table is needed.
const sparqlQuery = `SELECT ?item ?itemLabel ?typeLabel ?coord ?osmRelation ?article WHERE {
  ?item wdt:P31/wdt:P279* wd:Q56056032 .
  ?item wdt:P17 ?country .
  ?country wdt:P297 %q .
  OPTIONAL { ?item wdt:P625 ?coord . }
  OPTIONAL { ?item wdt:P31 ?type . }
  OPTIONAL { ?item wdt:P402 ?osmRelation . }
  OPTIONAL { ?article schema:about ?item ; schema:isPartOf <https://en.wikipedia.org/> . }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en,tr,de,fr,es" . }
}
LIMIT %d`

// Summarizer provides short article extracts for description backfill.
// Satisfied by the wikipedia package's client.
type Summarizer interface {
	Summary(ctx context.Context, title string) (string, error)
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

// WithUserAgent sets the User-Agent header. Wikimedia endpoints throttle
// clients with generic agents.
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

// WithSummarizer enables Wikipedia description backfill for items that link
// an article.
func WithSummarizer(s Summarizer) Option {
	return func(c *Client) { c.summarizer = s }
}

// Client queries the Wikidata SPARQL endpoint.
type Client struct {
	baseURL    string
	userAgent  string
	http       *http.Client
	limiter    *rate.Limiter
	summarizer Summarizer
}

// NewClient creates a Wikidata SPARQL client.
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
func (c *Client) Name() string { return "wikidata" }

// sparqlResponse is the application/sparql-results+json envelope.
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
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	country := q.Country
	if country == "" {
		country = "TR"
	}

	resp, err := c.query(ctx, fmt.Sprintf(sparqlQuery, country, limit))
	if err != nil {
		return nil, err
	}

	candidates := make([]model.Candidate, 0, len(resp.Results.Bindings))
	for _, b := range resp.Results.Bindings {
		cand, ok := c.toCandidate(ctx, b, country)
		if !ok {
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (c *Client) query(ctx context.Context, sparql string) (*sparqlResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "wikidata: rate limit")
	}

	params := url.Values{"query": {sparql}, "format": {"json"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: build request")
	}
	req.Header.Set("Accept", "application/sparql-results+json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "wikidata: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("wikidata: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out sparqlResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "wikidata: parse response")
	}
	return &out, nil
}

func (c *Client) toCandidate(ctx context.Context, b map[string]sparqlValue, country string) (model.Candidate, bool) {
	qid := entityID(b["item"].Value)
	name := b["itemLabel"].Value
	if qid == "" || name == "" || name == qid {
		// Items with no label in any requested language echo back the QID.
		return model.Candidate{}, false
	}

	cand := model.Candidate{
		Name:        name,
		Category:    categoryFromType(b["typeLabel"].Value),
		CountryCode: country,
		WikidataID:  qid,
		OSMID:       b["osmRelation"].Value,
		Sources: []model.Source{{
			URL:    "https://www.wikidata.org/wiki/" + qid,
			Domain: "wikidata.org",
			Type:   "api",
		}},
	}

	if lat, lon, ok := parseWKTPoint(b["coord"].Value); ok {
		cand.Lat = model.Float(lat)
		cand.Lon = model.Float(lon)
	}

	if article := b["article"].Value; article != "" {
		cand.Sources = append(cand.Sources, model.Source{
			URL:    article,
			Domain: "en.wikipedia.org",
			Type:   "api",
		})
		if c.summarizer != nil {
			if title := articleTitle(article); title != "" {
				extract, err := c.summarizer.Summary(ctx, title)
				if err != nil {
					// Backfill is best effort; the item still stands on its own.
					zap.L().Debug("wikipedia summary failed",
						zap.String("qid", qid), zap.String("title", title), zap.Error(err))
				} else {
					cand.Description = extract
				}
			}
		}
	}

	return cand, true
}

// entityID extracts the QID from a Wikidata entity URI.
func entityID(uri string) string {
	i := strings.LastIndex(uri, "/")
	if i < 0 || !strings.HasPrefix(uri[i+1:], "Q") {
		return ""
	}
	return uri[i+1:]
}

// articleTitle extracts the URL-decoded page title from a Wikipedia article URL.
func articleTitle(article string) string {
	const marker = "/wiki/"
	i := strings.LastIndex(article, marker)
	if i < 0 {
		return ""
	}
	title, err := url.PathUnescape(article[i+len(marker):])
	if err != nil {
		return ""
	}
	return title
}

// parseWKTPoint parses a Wikidata coordinate literal, "Point(lon lat)".
func parseWKTPoint(wkt string) (lat, lon float64, ok bool) {
	s := strings.TrimSpace(wkt)
	if !strings.HasPrefix(s, "Point(") || !strings.HasSuffix(s, ")") {
		return 0, 0, false
	}
	parts := strings.Fields(s[len("Point(") : len(s)-1])
	if len(parts) != 2 {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lat, err = strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// categoryFromType maps a Wikidata instance-of label onto a directory
// category. Unknown types fall back to the generic category.
func categoryFromType(typeLabel string) string {
	l := strings.ToLower(typeLabel)
	switch {
	case strings.Contains(l, "cemetery") || strings.Contains(l, "graveyard"):
		return "cemetery"
	case strings.Contains(l, "castle") || strings.Contains(l, "fortress"):
		return "castle"
	case strings.Contains(l, "church") || strings.Contains(l, "monastery") || strings.Contains(l, "mosque"):
		return "religious_site"
	case strings.Contains(l, "hospital") || strings.Contains(l, "asylum") || strings.Contains(l, "sanatorium"):
		return "hospital"
	case strings.Contains(l, "hotel"):
		return "hotel"
	case strings.Contains(l, "village") || strings.Contains(l, "ghost town"):
		return "village"
	case strings.Contains(l, "house") || strings.Contains(l, "mansion") || strings.Contains(l, "villa"):
		return "mansion"
	default:
		return "haunted_location"
	}
}
