package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/db"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS places (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name           TEXT NOT NULL,
	slug           TEXT NOT NULL UNIQUE,
	category       TEXT NOT NULL DEFAULT 'haunted',
	description    TEXT,
	country_code   TEXT NOT NULL DEFAULT 'XX',
	city           TEXT,
	lat            DOUBLE PRECISION,
	lon            DOUBLE PRECISION,
	wikidata_id    TEXT UNIQUE,
	osm_id         TEXT UNIQUE,
	evidence_score INTEGER NOT NULL DEFAULT 0,
	ai_collected   INTEGER NOT NULL DEFAULT 0,
	human_approved INTEGER NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'pending',
	votes_up       INTEGER NOT NULL DEFAULT 0,
	votes_down     INTEGER NOT NULL DEFAULT 0,
	rating_sum     INTEGER NOT NULL DEFAULT 0,
	rating_count   INTEGER NOT NULL DEFAULT 0,
	sources_json   JSONB NOT NULL DEFAULT '[]',
	first_seen_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_seen_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_ai_scan_at TIMESTAMPTZ,
	ai_scan_count  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_places_slug ON places(slug);
CREATE INDEX IF NOT EXISTS idx_places_status ON places(status);
CREATE INDEX IF NOT EXISTS idx_places_country ON places(country_code);
CREATE INDEX IF NOT EXISTS idx_places_name_trgm ON places USING gin (name gin_trgm_ops);

CREATE TABLE IF NOT EXISTS place_sources (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	place_id   TEXT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
	url        TEXT NOT NULL,
	domain     TEXT NOT NULL,
	type       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (place_id, url)
);

CREATE INDEX IF NOT EXISTS idx_place_sources_place ON place_sources(place_id);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	place_id   TEXT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
	nickname   TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_comments_place ON comments(place_id);

CREATE TABLE IF NOT EXISTS scan_logs (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	search_query      TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'running',
	places_found      INTEGER NOT NULL DEFAULT 0,
	places_added      INTEGER NOT NULL DEFAULT 0,
	error             TEXT,
	scan_started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	scan_completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_scan_logs_started ON scan_logs(scan_started_at DESC);
`

const placeColumns = `id, name, slug, category, description, country_code, city, lat, lon,
	wikidata_id, osm_id, evidence_score, ai_collected, human_approved, status,
	votes_up, votes_down, rating_sum, rating_count, sources_json,
	first_seen_at, last_seen_at, created_at, updated_at, last_ai_scan_at, ai_scan_count`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// scanPlace reads one place row in placeColumns order.
func scanPlace(row pgx.Row) (*model.Place, error) {
	var p model.Place
	var description, city, wikidataID, osmID *string
	var sourcesJSON []byte

	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &description, &p.CountryCode,
		&city, &p.Lat, &p.Lon, &wikidataID, &osmID, &p.EvidenceScore,
		&p.AICollected, &p.HumanApproved, &p.Status,
		&p.VotesUp, &p.VotesDown, &p.RatingSum, &p.RatingCount, &sourcesJSON,
		&p.FirstSeenAt, &p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt,
		&p.LastAIScanAt, &p.AIScanCount)
	if err != nil {
		return nil, err
	}

	if description != nil {
		p.Description = *description
	}
	if city != nil {
		p.City = *city
	}
	if wikidataID != nil {
		p.WikidataID = *wikidataID
	}
	if osmID != nil {
		p.OSMID = *osmID
	}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &p.Sources); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal sources")
		}
	}
	return &p, nil
}

func (s *PostgresStore) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+placeColumns+` FROM places WHERE id = $1`, id)
	p, err := scanPlace(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get place %s", id)
	}
	return p, nil
}

func (s *PostgresStore) GetPlaceByExternalID(ctx context.Context, idType, id string) (*model.Place, error) {
	var column string
	switch idType {
	case "wikidata":
		column = "wikidata_id"
	case "osm":
		column = "osm_id"
	default:
		return nil, eris.Errorf("postgres: unknown external id type %q", idType)
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+placeColumns+` FROM places WHERE `+column+` = $1`, id)
	p, err := scanPlace(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get place by %s id", idType)
	}
	return p, nil
}

func (s *PostgresStore) GetPlaceBySlug(ctx context.Context, slugKey string) (*model.Place, error) {
	if slugKey == "" {
		return nil, nil
	}
	row := s.pool.QueryRow(ctx,
		`SELECT `+placeColumns+` FROM places WHERE slug = $1`, slugKey)
	p, err := scanPlace(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get place by slug %s", slugKey)
	}
	return p, nil
}

// findSimilarSQL ranks places by pg_trgm name similarity, with a haversine
// distance when both sides carry coordinates. Ordering: similarity desc,
// distance asc, nulls last.
const findSimilarSQL = `
SELECT id, name, slug,
       similarity(name, $1) AS sim,
       CASE WHEN lat IS NOT NULL AND lon IS NOT NULL
            AND $2::float8 IS NOT NULL AND $3::float8 IS NOT NULL
       THEN 2 * 6371 * asin(sqrt(
              power(sin(radians(lat - $2::float8) / 2), 2) +
              cos(radians($2::float8)) * cos(radians(lat)) *
              power(sin(radians(lon - $3::float8) / 2), 2)))
       END AS distance_km
FROM places
WHERE similarity(name, $1) >= $4
ORDER BY sim DESC, distance_km ASC NULLS LAST
LIMIT 10`

func (s *PostgresStore) FindSimilar(ctx context.Context, name string, lat, lon *float64, threshold float64) ([]model.SimilarPlace, error) {
	rows, err := s.pool.Query(ctx, findSimilarSQL, name, lat, lon, threshold)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find similar")
	}
	defer rows.Close()

	var results []model.SimilarPlace
	for rows.Next() {
		var sp model.SimilarPlace
		if err := rows.Scan(&sp.PlaceID, &sp.PlaceName, &sp.PlaceSlug, &sp.SimilarityScore, &sp.DistanceKm); err != nil {
			return nil, eris.Wrap(err, "postgres: scan similar place")
		}
		results = append(results, sp)
	}
	return results, eris.Wrap(rows.Err(), "postgres: find similar iterate")
}

func (s *PostgresStore) ListPlaces(ctx context.Context, filter PlaceFilter) ([]model.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.CountryCode != "" {
		query += fmt.Sprintf(` AND country_code = $%d`, argIdx)
		args = append(args, filter.CountryCode)
		argIdx++
	}
	if filter.AICollected != nil {
		query += fmt.Sprintf(` AND ai_collected = $%d`, argIdx)
		args = append(args, *filter.AICollected)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list places")
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}
		places = append(places, *p)
	}
	return places, eris.Wrap(rows.Err(), "postgres: list places iterate")
}

func (s *PostgresStore) InsertPlace(ctx context.Context, p *model.Place) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if p.FirstSeenAt.IsZero() {
		p.FirstSeenAt = now
	}
	if p.LastSeenAt.IsZero() {
		p.LastSeenAt = now
	}

	sourcesJSON, err := json.Marshal(p.Sources)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal sources")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO places (id, name, slug, category, description, country_code, city, lat, lon,
		   wikidata_id, osm_id, evidence_score, ai_collected, human_approved, status,
		   sources_json, first_seen_at, last_seen_at, created_at, updated_at, last_ai_scan_at, ai_scan_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		p.ID, p.Name, p.Slug, p.Category, nullable(p.Description), p.CountryCode, nullable(p.City),
		p.Lat, p.Lon, nullable(p.WikidataID), nullable(p.OSMID), p.EvidenceScore,
		p.AICollected, p.HumanApproved, string(p.Status),
		sourcesJSON, p.FirstSeenAt, p.LastSeenAt, p.CreatedAt, p.UpdatedAt,
		p.LastAIScanAt, p.AIScanCount,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert place %s", p.Slug)
	}

	return s.syncPlaceSources(ctx, p.ID, p.Sources)
}

// syncPlaceSources mirrors sources into the relational place_sources table
// used by join queries; sources_json stays the authoritative copy.
func (s *PostgresStore) syncPlaceSources(ctx context.Context, placeID string, sources []model.Source) error {
	for _, src := range sources {
		if src.URL == "" {
			continue
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO place_sources (id, place_id, url, domain, type)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (place_id, url) DO NOTHING`,
			uuid.New().String(), placeID, src.URL, src.Domain, src.Type,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: sync place source %s", src.URL)
		}
	}
	return nil
}

// MergeSources unions newSources into the target's sources_json, keyed by
// case-normalized URL. The target's other fields are left untouched; only
// last_seen_at/updated_at advance.
func (s *PostgresStore) MergeSources(ctx context.Context, targetPlaceID string, newSources []model.Source) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: merge sources begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var sourcesJSON []byte
	err = tx.QueryRow(ctx,
		`SELECT sources_json FROM places WHERE id = $1 FOR UPDATE`,
		targetPlaceID,
	).Scan(&sourcesJSON)
	if err != nil {
		return eris.Wrapf(err, "postgres: merge sources load %s", targetPlaceID)
	}

	var existing []model.Source
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &existing); err != nil {
			return eris.Wrap(err, "postgres: merge sources unmarshal")
		}
	}

	merged := model.MergeSources(existing, newSources)
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return eris.Wrap(err, "postgres: merge sources marshal")
	}

	_, err = tx.Exec(ctx,
		`UPDATE places SET sources_json = $1, last_seen_at = now(), updated_at = now() WHERE id = $2`,
		mergedJSON, targetPlaceID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: merge sources update %s", targetPlaceID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: merge sources commit")
	}

	return s.syncPlaceSources(ctx, targetPlaceID, merged)
}

func (s *PostgresStore) UpdatePlaceStatus(ctx context.Context, id string, status model.PlaceStatus, humanApproved int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE places SET status = $1, human_approved = $2, updated_at = now() WHERE id = $3`,
		string(status), humanApproved, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update place status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("place not found: %s", id)
	}
	return nil
}

// MergePlaces merges sourceID into targetID: sources are unioned, comments
// re-pointed, and the losing row deleted. Admin-only operation.
func (s *PostgresStore) MergePlaces(ctx context.Context, targetID, sourceID string) error {
	source, err := s.GetPlace(ctx, sourceID)
	if err != nil {
		return err
	}
	if source == nil {
		return eris.Errorf("place not found: %s", sourceID)
	}

	if err := s.MergeSources(ctx, targetID, source.Sources); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE comments SET place_id = $1 WHERE place_id = $2`,
		targetID, sourceID,
	); err != nil {
		return eris.Wrapf(err, "postgres: move comments %s", sourceID)
	}

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM places WHERE id = $1`, sourceID,
	); err != nil {
		return eris.Wrapf(err, "postgres: delete merged place %s", sourceID)
	}
	return nil
}

// WithIngestLock runs fn while holding a transaction-scoped advisory lock on
// the given key. The lock lives on the transaction's connection; overlapping
// runs block on the same key until commit or rollback releases it.
func (s *PostgresStore) WithIngestLock(ctx context.Context, key string, fn func(context.Context) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: ingest lock begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
		return eris.Wrapf(err, "postgres: acquire ingest lock %s", key)
	}

	if err := fn(ctx); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: ingest lock commit")
}

func (s *PostgresStore) StartScan(ctx context.Context, searchQuery string) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scan_logs (id, search_query, status, scan_started_at) VALUES ($1, $2, $3, now())`,
		id, searchQuery, string(model.ScanRunning),
	)
	if err != nil {
		return "", eris.Wrap(err, "postgres: start scan")
	}
	return id, nil
}

func (s *PostgresStore) CompleteScan(ctx context.Context, scanID string, found, added int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_logs SET status = $1, places_found = $2, places_added = $3, scan_completed_at = now() WHERE id = $4`,
		string(model.ScanCompleted), found, added, scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete scan %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan log not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) FailScan(ctx context.Context, scanID string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scan_logs SET status = $1, error = $2, scan_completed_at = now() WHERE id = $3`,
		string(model.ScanFailed), errMsg, scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail scan %s", scanID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("scan log not found: %s", scanID)
	}
	return nil
}

func (s *PostgresStore) ListScanLogs(ctx context.Context, limit int) ([]model.ScanLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, search_query, status, places_found, places_added, error, scan_started_at, scan_completed_at
		 FROM scan_logs ORDER BY scan_started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scan logs")
	}
	defer rows.Close()

	var logs []model.ScanLog
	for rows.Next() {
		var l model.ScanLog
		var errStr *string
		if err := rows.Scan(&l.ID, &l.SearchQuery, &l.Status, &l.PlacesFound, &l.PlacesAdded,
			&errStr, &l.StartedAt, &l.CompletedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan log row")
		}
		if errStr != nil {
			l.Error = *errStr
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list scan logs iterate")
}

// nullable maps an empty string to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
