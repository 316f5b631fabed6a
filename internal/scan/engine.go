package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/dedup"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/slug"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/store"
)

// ErrScanPaused is returned when a run is attempted while scanning is paused
// in configuration.
var ErrScanPaused = eris.New("scan: scanning is paused")

// RunOpts parameterizes one ingestion run.
type RunOpts struct {
	// Label is recorded as the scan log's search query, e.g.
	// "api_scan:haunted_location:TR".
	Label string

	// Query is passed to every selected provider.
	Query Query

	// AICollected marks inserted places as AI-generated (1) or API-sourced (0).
	AICollected int

	// Evidence computes the evidence score for a freshly inserted place.
	Evidence func(model.Candidate) int
}

// Engine runs the shared ingestion pipeline: parallel provider fetch,
// intra-batch dedup, then a strictly sequential check-merge-or-insert tail.
type Engine struct {
	store   store.Store
	checker *dedup.Checker
	paused  bool
	workers int
	now     func() time.Time
}

// NewEngine creates an Engine over the given store.
func NewEngine(st store.Store, paused bool, fetchWorkers int) *Engine {
	if fetchWorkers < 1 {
		fetchWorkers = 1
	}
	return &Engine{
		store:   st,
		checker: dedup.NewChecker(st),
		paused:  paused,
		workers: fetchWorkers,
		now:     time.Now,
	}
}

// Run executes one ingestion run against the selected providers and returns
// a per-run report. Provider failures and per-candidate failures are recorded
// in the report's error list and never abort the run; only a paused engine,
// a scan-log failure, or context cancellation do.
func (e *Engine) Run(ctx context.Context, providers []Provider, opts RunOpts) (*model.ScanReport, error) {
	if e.paused {
		return nil, ErrScanPaused
	}
	if len(providers) == 0 {
		return nil, eris.New("scan: no providers selected")
	}

	scanID, err := e.store.StartScan(ctx, opts.Label)
	if err != nil {
		return nil, eris.Wrap(err, "scan: start scan log")
	}

	report := &model.ScanReport{}

	candidates, fetchErrs := e.fetch(ctx, providers, opts.Query)
	report.Errors = append(report.Errors, fetchErrs...)
	report.TotalFound = len(candidates)

	unique := DedupBatch(candidates)
	report.UniquePlaces = len(unique)

	zap.L().Info("scan fetch complete",
		zap.String("scan_id", scanID),
		zap.String("label", opts.Label),
		zap.Int("total_found", report.TotalFound),
		zap.Int("unique", report.UniquePlaces),
		zap.Int("provider_errors", len(fetchErrs)),
	)

	// The tail is sequential on purpose: each candidate's check-then-write
	// must observe the previous candidate's writes, or a batch containing
	// the same place twice under different keys would insert it twice.
	for _, cand := range unique {
		if ctx.Err() != nil {
			msg := ctx.Err().Error()
			if ferr := e.store.FailScan(context.WithoutCancel(ctx), scanID, msg); ferr != nil {
				zap.L().Error("failed to mark scan failed", zap.String("scan_id", scanID), zap.Error(ferr))
			}
			return report, eris.Wrap(ctx.Err(), "scan: run aborted")
		}

		out, err := e.ingest(ctx, cand, opts)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", cand.Name, err.Error()))
			zap.L().Warn("candidate ingest failed",
				zap.String("scan_id", scanID),
				zap.String("candidate", cand.Name),
				zap.Error(err),
			)
			continue
		}

		switch out {
		case outcomeAdded:
			report.Added++
		case outcomeFlagged:
			report.Added++
			report.Flagged++
		case outcomeMerged:
			report.Merged++
		}
	}

	if err := e.store.CompleteScan(ctx, scanID, report.TotalFound, report.Added); err != nil {
		return report, eris.Wrap(err, "scan: complete scan log")
	}

	zap.L().Info("scan complete",
		zap.String("scan_id", scanID),
		zap.Int("added", report.Added),
		zap.Int("merged", report.Merged),
		zap.Int("flagged", report.Flagged),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// fetch runs every provider concurrently, bounded by the worker limit, and
// collects candidates plus one error string per failed provider.
func (e *Engine) fetch(ctx context.Context, providers []Provider, q Query) ([]model.Candidate, []string) {
	var (
		mu         sync.Mutex
		candidates []model.Candidate
		errs       []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, p := range providers {
		g.Go(func() error {
			got, err := p.Fetch(gctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %s", p.Name(), err.Error()))
				zap.L().Warn("provider fetch failed", zap.String("provider", p.Name()), zap.Error(err))
				return nil // one dead provider must not sink the run
			}
			candidates = append(candidates, got...)
			zap.L().Debug("provider fetch ok", zap.String("provider", p.Name()), zap.Int("count", len(got)))
			return nil
		})
	}
	g.Wait() //nolint:errcheck // goroutines never return errors

	return candidates, errs
}

type outcome int

const (
	outcomeAdded outcome = iota
	outcomeMerged
	outcomeFlagged
)

// ingest runs the duplicate check and the resulting write for one candidate
// under the advisory ingest lock.
func (e *Engine) ingest(ctx context.Context, cand model.Candidate, opts RunOpts) (outcome, error) {
	if cand.Name == "" {
		// Fail closed: a nameless candidate has no usable duplicate key and
		// would collide with every other nameless row.
		return 0, eris.New("scan: candidate has no name")
	}

	var out outcome
	err := e.store.WithIngestLock(ctx, dedup.LockKey(cand), func(ctx context.Context) error {
		result, err := e.checker.Check(ctx, cand)
		if err != nil {
			return eris.Wrap(err, "scan: duplicate check")
		}

		if result.IsDuplicate {
			if err := e.store.MergeSources(ctx, result.ExistingPlaceID, cand.Sources); err != nil {
				return eris.Wrap(err, "scan: merge sources")
			}
			zap.L().Info("merged into existing place",
				zap.String("place_id", result.ExistingPlaceID),
				zap.String("candidate", cand.Name),
				zap.String("reason", result.Reason),
			)
			out = outcomeMerged
			return nil
		}

		place := e.buildPlace(cand, opts)
		if err := e.store.InsertPlace(ctx, place); err != nil {
			return eris.Wrap(err, "scan: insert place")
		}

		if len(result.SimilarPlaces) > 0 {
			zap.L().Warn("inserted with possible duplicates",
				zap.String("place_id", place.ID),
				zap.String("name", place.Name),
				zap.Int("similar_count", len(result.SimilarPlaces)),
				zap.String("closest", result.SimilarPlaces[0].PlaceName),
				zap.Float64("closest_similarity", result.SimilarPlaces[0].SimilarityScore),
			)
			out = outcomeFlagged
			return nil
		}

		out = outcomeAdded
		return nil
	})
	return out, err
}

// buildPlace maps a novel candidate onto a fresh pending place row.
func (e *Engine) buildPlace(cand model.Candidate, opts RunOpts) *model.Place {
	now := e.now().UTC()
	p := &model.Place{
		ID:            uuid.NewString(),
		Name:          cand.Name,
		Slug:          slug.Normalize(cand.Name),
		Category:      cand.Category,
		Description:   cand.Description,
		CountryCode:   cand.CountryCode,
		City:          cand.City,
		Lat:           cand.Lat,
		Lon:           cand.Lon,
		WikidataID:    cand.WikidataID,
		OSMID:         cand.OSMID,
		EvidenceScore: opts.Evidence(cand),
		AICollected:   opts.AICollected,
		Status:        model.StatusPending,
		Sources:       cand.Sources,
		FirstSeenAt:   now,
		LastSeenAt:    now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if opts.AICollected == 1 {
		p.LastAIScanAt = &now
		p.AIScanCount = 1
	}
	return p
}
