package model

import "time"

// ScanStatus tracks a scan run's lifecycle.
type ScanStatus string

const (
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// ScanLog is a row in the scan_logs table, one per ingestion run.
type ScanLog struct {
	ID          string     `json:"id"`
	SearchQuery string     `json:"search_query"`
	Status      ScanStatus `json:"status"`
	PlacesFound int        `json:"places_found"`
	PlacesAdded int        `json:"places_added"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"scan_started_at"`
	CompletedAt *time.Time `json:"scan_completed_at,omitempty"`
}

// ScanReport is the caller-facing outcome of one ingestion run.
type ScanReport struct {
	TotalFound   int      `json:"total_found"`
	UniquePlaces int      `json:"unique_places"`
	Added        int      `json:"added"`
	Merged       int      `json:"merged"`
	Flagged      int      `json:"flagged"` // inserted with possible duplicates attached
	Errors       []string `json:"errors,omitempty"`
}

// SimilarPlace is one ranked result from the fuzzy similarity search.
type SimilarPlace struct {
	PlaceID         string   `json:"place_id"`
	PlaceName       string   `json:"place_name"`
	PlaceSlug       string   `json:"place_slug"`
	SimilarityScore float64  `json:"similarity_score"`
	DistanceKm      *float64 `json:"distance_km"`
}
