// Package aigen generates candidate places with the Anthropic API. The model
// is asked for lesser-known locations with real sources; everything it
// returns still flows through the same duplicate check as API data.
package aigen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/scan"
)

const promptTemplate = `You are a research assistant for a directory of reportedly haunted places.

List %d lesser-known reportedly haunted or paranormal-associated locations in country code %q. Prefer places with documented local legends over famous tourist sites.

Respond with ONLY a JSON array, no prose. Each element:
{
  "name": "official place name",
  "category": "one of: mansion, castle, cemetery, hospital, hotel, village, religious_site, haunted_location",
  "description": "2-3 sentences on the place and its legend",
  "city": "city or province",
  "country_code": "ISO 3166-1 alpha-2",
  "lat": 0.0,
  "lon": 0.0,
  "evidence_score": 0,
  "source_urls": ["https://..."]
}

evidence_score is your 0-100 confidence that the place exists and the legend is documented. Omit lat/lon if you are not certain of the coordinates. Only include source_urls you believe are real.`

// Messenger sends one prompt and returns the text response. Satisfied by the
// SDK-backed client in this package.
type Messenger interface {
	CreateMessage(ctx context.Context, prompt string) (string, error)
}

// Generator implements scan.Provider on top of a Messenger.
type Generator struct {
	messenger  Messenger
	placeCount int
}

// NewGenerator creates a Generator requesting placeCount places per run.
func NewGenerator(m Messenger, placeCount int) *Generator {
	if placeCount <= 0 {
		placeCount = 3
	}
	return &Generator{messenger: m, placeCount: placeCount}
}

// Name implements scan.Provider.
func (g *Generator) Name() string { return "ai" }

// Fetch implements scan.Provider.
func (g *Generator) Fetch(ctx context.Context, q scan.Query) ([]model.Candidate, error) {
	country := q.Country
	if country == "" {
		country = "TR"
	}

	text, err := g.messenger.CreateMessage(ctx, fmt.Sprintf(promptTemplate, g.placeCount, country))
	if err != nil {
		return nil, eris.Wrap(err, "aigen: create message")
	}

	return parsePlaces(text, country)
}

// aiPlace is the JSON shape the prompt asks for.
type aiPlace struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	City          string   `json:"city"`
	CountryCode   string   `json:"country_code"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	EvidenceScore int      `json:"evidence_score"`
	SourceURLs    []string `json:"source_urls"`
}

// parsePlaces extracts the JSON array from the model's response and maps each
// well-formed element to a candidate. Malformed elements are skipped, not
// fatal; a response with no parseable array is an error.
func parsePlaces(text, fallbackCountry string) ([]model.Candidate, error) {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, eris.New("aigen: response contains no JSON array")
	}

	var places []aiPlace
	if err := json.Unmarshal([]byte(raw), &places); err != nil {
		return nil, eris.Wrap(err, "aigen: parse response")
	}

	candidates := make([]model.Candidate, 0, len(places))
	for _, p := range places {
		if p.Name == "" {
			zap.L().Warn("aigen: skipping nameless place in model response")
			continue
		}
		cand := model.Candidate{
			Name:          p.Name,
			Category:      p.Category,
			Description:   p.Description,
			City:          p.City,
			CountryCode:   p.CountryCode,
			Lat:           p.Lat,
			Lon:           p.Lon,
			EvidenceScore: p.EvidenceScore,
		}
		if cand.Category == "" {
			cand.Category = "haunted_location"
		}
		if cand.CountryCode == "" {
			cand.CountryCode = fallbackCountry
		}
		// One coordinate without the other is as good as none.
		if cand.Lat == nil || cand.Lon == nil {
			cand.Lat, cand.Lon = nil, nil
		}
		for _, u := range p.SourceURLs {
			domain := sourceDomain(u)
			if domain == "" {
				continue
			}
			cand.Sources = append(cand.Sources, model.Source{URL: u, Domain: domain, Type: "ai"})
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// extractJSONArray returns the outermost [...] span, tolerating markdown
// fences and prose around the array.
func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// sourceDomain extracts the host from an absolute http(s) URL, or "" when the
// URL is unusable as a citation.
func sourceDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}
