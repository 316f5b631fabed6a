// Package dedup classifies incoming candidates as duplicates of existing
// places or as novel entities.
package dedup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/slug"
)

// Similarity thresholds: broad recall for surfacing possible duplicates,
// strict joint bar (similarity AND distance) for automatic merging. Merging
// discards the candidate's non-source fields, so the auto path is deliberately
// conservative.
const (
	RecallThreshold   = 0.75
	AutoMergeScore    = 0.9
	AutoMergeMaxKm    = 1.0
	ReviewThreshold   = 0.7 // admin potential-duplicates report
	maxSimilarResults = 10
)

// Finder is the store capability the checker needs.
type Finder interface {
	GetPlaceByExternalID(ctx context.Context, idType, id string) (*model.Place, error)
	GetPlaceBySlug(ctx context.Context, slug string) (*model.Place, error)
	FindSimilar(ctx context.Context, name string, lat, lon *float64, threshold float64) ([]model.SimilarPlace, error)
}

// Result is the outcome of a duplicate check.
type Result struct {
	IsDuplicate     bool                 `json:"isDuplicate"`
	ExistingPlaceID string               `json:"existingPlaceId,omitempty"`
	Reason          string               `json:"reason,omitempty"`
	SimilarPlaces   []model.SimilarPlace `json:"similarPlaces,omitempty"`
}

// Checker runs the three-stage duplicate decision procedure.
type Checker struct {
	store Finder
}

// NewChecker creates a Checker over the given store.
func NewChecker(store Finder) *Checker {
	return &Checker{store: store}
}

// Check classifies the candidate. Stages run in strict priority order and
// short-circuit: external id, then slug, then fuzzy name+distance. Store
// errors propagate; a failed lookup is never treated as "not a duplicate",
// that would invite unbounded duplication.
func (c *Checker) Check(ctx context.Context, cand model.Candidate) (*Result, error) {
	// 1. External id, the strongest key: globally unique by construction of
	// the source ecosystems.
	if ext := slug.ExtractExternalID(cand.WikidataID, cand.OSMID); ext != nil {
		existing, err := c.store.GetPlaceByExternalID(ctx, ext.Type, ext.ID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &Result{
				IsDuplicate:     true,
				ExistingPlaceID: existing.ID,
				Reason:          fmt.Sprintf("Duplicate %s ID: %s", ext.Type, ext.ID),
			}, nil
		}
	}

	// 2. Slug. An empty slug means no reliable key; skip the lookup.
	if key := slug.Normalize(cand.Name); key != "" {
		existing, err := c.store.GetPlaceBySlug(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &Result{
				IsDuplicate:     true,
				ExistingPlaceID: existing.ID,
				Reason:          fmt.Sprintf("Duplicate slug: %s", key),
			}, nil
		}
	}

	// 3. Fuzzy name + coordinate proximity. Only meaningful with coordinates
	// on the candidate side.
	if cand.HasCoordinates() {
		similar, err := c.store.FindSimilar(ctx, cand.Name, cand.Lat, cand.Lon, RecallThreshold)
		if err != nil {
			return nil, err
		}
		if len(similar) > maxSimilarResults {
			similar = similar[:maxSimilarResults]
		}
		if len(similar) > 0 {
			top := similar[0]
			if top.SimilarityScore > AutoMergeScore && top.DistanceKm != nil && *top.DistanceKm < AutoMergeMaxKm {
				// Auto-merge is silently lossy for the candidate's other
				// fields; log both sides for manual audit.
				zap.L().Info("fuzzy duplicate detected",
					zap.String("candidate_name", cand.Name),
					zap.Float64("candidate_lat", *cand.Lat),
					zap.Float64("candidate_lon", *cand.Lon),
					zap.String("existing_name", top.PlaceName),
					zap.String("existing_id", top.PlaceID),
					zap.Float64("similarity", top.SimilarityScore),
					zap.Float64("distance_km", *top.DistanceKm),
				)
				return &Result{
					IsDuplicate:     true,
					ExistingPlaceID: top.PlaceID,
					Reason: fmt.Sprintf("Similar name (%d%%) and close location (%.2fkm)",
						int(top.SimilarityScore*100+0.5), *top.DistanceKm),
					SimilarPlaces: similar,
				}, nil
			}
			// Possible duplicates: warn the caller, don't block insertion.
			return &Result{IsDuplicate: false, SimilarPlaces: similar}, nil
		}
	}

	return &Result{IsDuplicate: false}, nil
}

// LockKey returns the advisory-lock key guarding this candidate's
// check-then-insert sequence: the external id when present, else the slug.
func LockKey(cand model.Candidate) string {
	if ext := slug.ExtractExternalID(cand.WikidataID, cand.OSMID); ext != nil {
		return ext.Type + ":" + ext.ID
	}
	return "slug:" + slug.Normalize(cand.Name)
}
