package store

import (
	"context"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

// PlaceFilter specifies criteria for listing places.
type PlaceFilter struct {
	Status      model.PlaceStatus `json:"status,omitempty"`
	CountryCode string            `json:"country_code,omitempty"`
	AICollected *int              `json:"ai_collected,omitempty"`
	Limit       int               `json:"limit,omitempty"`
	Offset      int               `json:"offset,omitempty"`
}

// Store defines the persistence interface for the ingestion pipeline.
type Store interface {
	// Place lookups
	GetPlace(ctx context.Context, id string) (*model.Place, error)
	GetPlaceByExternalID(ctx context.Context, idType, id string) (*model.Place, error)
	GetPlaceBySlug(ctx context.Context, slug string) (*model.Place, error)
	FindSimilar(ctx context.Context, name string, lat, lon *float64, threshold float64) ([]model.SimilarPlace, error)
	ListPlaces(ctx context.Context, filter PlaceFilter) ([]model.Place, error)

	// Place mutations
	InsertPlace(ctx context.Context, p *model.Place) error
	MergeSources(ctx context.Context, targetPlaceID string, newSources []model.Source) error
	UpdatePlaceStatus(ctx context.Context, id string, status model.PlaceStatus, humanApproved int) error
	MergePlaces(ctx context.Context, targetID, sourceID string) error

	// WithIngestLock serializes a check-then-insert sequence on a duplicate
	// key (external id when present, else normalized slug) so two overlapping
	// runs cannot both insert the same new place.
	WithIngestLock(ctx context.Context, key string, fn func(context.Context) error) error

	// Scan log
	StartScan(ctx context.Context, searchQuery string) (string, error)
	CompleteScan(ctx context.Context, scanID string, found, added int) error
	FailScan(ctx context.Context, scanID string, errMsg string) error
	ListScanLogs(ctx context.Context, limit int) ([]model.ScanLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
