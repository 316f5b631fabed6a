// Package model defines the core domain types of the haunted places directory.
package model

import (
	"strings"
	"time"
)

// PlaceStatus tracks a place's moderation state.
type PlaceStatus string

const (
	StatusPending     PlaceStatus = "pending"
	StatusPendingHigh PlaceStatus = "pending_high"
	StatusApproved    PlaceStatus = "approved"
	StatusRejected    PlaceStatus = "rejected"
)

// Place is the core directory entity.
type Place struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	Category    string `json:"category"`
	Description string `json:"description,omitempty"`

	CountryCode string   `json:"country_code"`
	City        string   `json:"city,omitempty"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`

	WikidataID string `json:"wikidata_id,omitempty"`
	OSMID      string `json:"osm_id,omitempty"`

	EvidenceScore int         `json:"evidence_score"`
	AICollected   int         `json:"ai_collected"`
	HumanApproved int         `json:"human_approved"`
	Status        PlaceStatus `json:"status"`

	VotesUp     int `json:"votes_up"`
	VotesDown   int `json:"votes_down"`
	RatingSum   int `json:"rating_sum"`
	RatingCount int `json:"rating_count"`

	Sources []Source `json:"sources_json"`

	FirstSeenAt  time.Time  `json:"first_seen_at"`
	LastSeenAt   time.Time  `json:"last_seen_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastAIScanAt *time.Time `json:"last_ai_scan_at,omitempty"`
	AIScanCount  int        `json:"ai_scan_count"`
}

// Source is a citation attached to a place.
type Source struct {
	URL       string `json:"url"`
	Domain    string `json:"domain"`
	Type      string `json:"type"` // api | ai | web | website | database
	FirstSeen string `json:"first_seen,omitempty"`
	LastSeen  string `json:"last_seen,omitempty"`
}

// MergeKey is the de-duplication key for source merging: the URL with scheme
// and host lowercased, path untouched. Two citations with the same key are
// the same citation.
func (s Source) MergeKey() string {
	u := s.URL
	if i := strings.Index(u, "://"); i >= 0 {
		scheme := strings.ToLower(u[:i])
		rest := u[i+3:]
		if j := strings.IndexAny(rest, "/?#"); j >= 0 {
			rest = strings.ToLower(rest[:j]) + rest[j:]
		} else {
			rest = strings.ToLower(rest)
		}
		return scheme + "://" + rest
	}
	return strings.ToLower(u)
}

// MergeSources unions newSources into existing, keyed by Source.MergeKey.
// Order is preserved: existing entries first, then novel entries in input
// order. Existing entries are never modified or dropped.
func MergeSources(existing, newSources []Source) []Source {
	seen := make(map[string]bool, len(existing))
	out := make([]Source, 0, len(existing)+len(newSources))
	for _, s := range existing {
		out = append(out, s)
		seen[s.MergeKey()] = true
	}
	for _, s := range newSources {
		key := s.MergeKey()
		if s.URL == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
