package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/geodist"
	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local development
// and tests. SQLite has no pg_trgm, so name similarity is computed in-process;
// the ingest lock degrades to a process mutex, which is sufficient for the
// single-writer local setup.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection: SQLite is single-writer, and a :memory: DSN would
	// otherwise give every pooled connection its own empty database.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	slug           TEXT NOT NULL UNIQUE,
	category       TEXT NOT NULL DEFAULT 'haunted',
	description    TEXT,
	country_code   TEXT NOT NULL DEFAULT 'XX',
	city           TEXT,
	lat            REAL,
	lon            REAL,
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
	sources_json   TEXT NOT NULL DEFAULT '[]',
	first_seen_at  DATETIME NOT NULL,
	last_seen_at   DATETIME NOT NULL,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL,
	last_ai_scan_at DATETIME,
	ai_scan_count  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_places_slug ON places(slug);
CREATE INDEX IF NOT EXISTS idx_places_status ON places(status);

CREATE TABLE IF NOT EXISTS place_sources (
	id         TEXT PRIMARY KEY,
	place_id   TEXT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
	url        TEXT NOT NULL,
	domain     TEXT NOT NULL,
	type       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (place_id, url)
);

CREATE TABLE IF NOT EXISTS comments (
	id         TEXT PRIMARY KEY,
	place_id   TEXT NOT NULL REFERENCES places(id) ON DELETE CASCADE,
	nickname   TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scan_logs (
	id                TEXT PRIMARY KEY,
	search_query      TEXT NOT NULL DEFAULT '',
	status            TEXT NOT NULL DEFAULT 'running',
	places_found      INTEGER NOT NULL DEFAULT 0,
	places_added      INTEGER NOT NULL DEFAULT 0,
	error             TEXT,
	scan_started_at   DATETIME NOT NULL,
	scan_completed_at DATETIME
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqlitePlaceColumns = `id, name, slug, category, description, country_code, city, lat, lon,
	wikidata_id, osm_id, evidence_score, ai_collected, human_approved, status,
	votes_up, votes_down, rating_sum, rating_count, sources_json,
	first_seen_at, last_seen_at, created_at, updated_at, last_ai_scan_at, ai_scan_count`

type sqliteRowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePlace(row sqliteRowScanner) (*model.Place, error) {
	var p model.Place
	var description, city, wikidataID, osmID, sourcesJSON sql.NullString
	var lastAIScan sql.NullTime

	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Category, &description, &p.CountryCode,
		&city, &p.Lat, &p.Lon, &wikidataID, &osmID, &p.EvidenceScore,
		&p.AICollected, &p.HumanApproved, &p.Status,
		&p.VotesUp, &p.VotesDown, &p.RatingSum, &p.RatingCount, &sourcesJSON,
		&p.FirstSeenAt, &p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt,
		&lastAIScan, &p.AIScanCount)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.City = city.String
	p.WikidataID = wikidataID.String
	p.OSMID = osmID.String
	if lastAIScan.Valid {
		t := lastAIScan.Time
		p.LastAIScanAt = &t
	}
	if sourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &p.Sources); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sources")
		}
	}
	return &p, nil
}

func (s *SQLiteStore) getPlaceWhere(ctx context.Context, where string, arg any) (*model.Place, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqlitePlaceColumns+` FROM places WHERE `+where, arg)
	p, err := scanSQLitePlace(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get place by %s", where)
	}
	return p, nil
}

func (s *SQLiteStore) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	return s.getPlaceWhere(ctx, "id = ?", id)
}

func (s *SQLiteStore) GetPlaceByExternalID(ctx context.Context, idType, id string) (*model.Place, error) {
	switch idType {
	case "wikidata":
		return s.getPlaceWhere(ctx, "wikidata_id = ?", id)
	case "osm":
		return s.getPlaceWhere(ctx, "osm_id = ?", id)
	default:
		return nil, eris.Errorf("sqlite: unknown external id type %q", idType)
	}
}

func (s *SQLiteStore) GetPlaceBySlug(ctx context.Context, slugKey string) (*model.Place, error) {
	if slugKey == "" {
		return nil, nil
	}
	return s.getPlaceWhere(ctx, "slug = ?", slugKey)
}

// FindSimilar loads candidate rows and ranks them in-process with a pg_trgm
// compatible trigram similarity plus haversine distance.
func (s *SQLiteStore) FindSimilar(ctx context.Context, name string, lat, lon *float64, threshold float64) ([]model.SimilarPlace, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, slug, lat, lon FROM places`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find similar")
	}
	defer rows.Close()

	var results []model.SimilarPlace
	for rows.Next() {
		var id, placeName, placeSlug string
		var placeLat, placeLon *float64
		if err := rows.Scan(&id, &placeName, &placeSlug, &placeLat, &placeLon); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan similar candidate")
		}

		sim := trigramSimilarity(name, placeName)
		if sim < threshold {
			continue
		}

		sp := model.SimilarPlace{
			PlaceID:         id,
			PlaceName:       placeName,
			PlaceSlug:       placeSlug,
			SimilarityScore: sim,
		}
		if lat != nil && lon != nil && placeLat != nil && placeLon != nil {
			d := geodist.BetweenKm(*lat, *lon, *placeLat, *placeLon)
			sp.DistanceKm = &d
		}
		results = append(results, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: find similar iterate")
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SimilarityScore != results[j].SimilarityScore {
			return results[i].SimilarityScore > results[j].SimilarityScore
		}
		di, dj := results[i].DistanceKm, results[j].DistanceKm
		switch {
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
	if len(results) > 10 {
		results = results[:10]
	}
	return results, nil
}

func (s *SQLiteStore) ListPlaces(ctx context.Context, filter PlaceFilter) ([]model.Place, error) {
	query := `SELECT ` + sqlitePlaceColumns + ` FROM places WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.CountryCode != "" {
		query += ` AND country_code = ?`
		args = append(args, filter.CountryCode)
	}
	if filter.AICollected != nil {
		query += ` AND ai_collected = ?`
		args = append(args, *filter.AICollected)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list places")
	}
	defer rows.Close()

	var places []model.Place
	for rows.Next() {
		p, err := scanSQLitePlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		places = append(places, *p)
	}
	return places, eris.Wrap(rows.Err(), "sqlite: list places iterate")
}

func (s *SQLiteStore) InsertPlace(ctx context.Context, p *model.Place) error {
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
		return eris.Wrap(err, "sqlite: marshal sources")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO places (id, name, slug, category, description, country_code, city, lat, lon,
		   wikidata_id, osm_id, evidence_score, ai_collected, human_approved, status,
		   sources_json, first_seen_at, last_seen_at, created_at, updated_at, last_ai_scan_at, ai_scan_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Slug, p.Category, sqlNullable(p.Description), p.CountryCode, sqlNullable(p.City),
		p.Lat, p.Lon, sqlNullable(p.WikidataID), sqlNullable(p.OSMID), p.EvidenceScore,
		p.AICollected, p.HumanApproved, string(p.Status),
		string(sourcesJSON), p.FirstSeenAt, p.LastSeenAt, p.CreatedAt, p.UpdatedAt,
		p.LastAIScanAt, p.AIScanCount,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert place %s", p.Slug)
	}

	return s.syncPlaceSources(ctx, p.ID, p.Sources)
}

func (s *SQLiteStore) syncPlaceSources(ctx context.Context, placeID string, sources []model.Source) error {
	for _, src := range sources {
		if src.URL == "" {
			continue
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO place_sources (id, place_id, url, domain, type)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), placeID, src.URL, src.Domain, src.Type,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: sync place source %s", src.URL)
		}
	}
	return nil
}

func (s *SQLiteStore) MergeSources(ctx context.Context, targetPlaceID string, newSources []model.Source) error {
	var sourcesJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT sources_json FROM places WHERE id = ?`, targetPlaceID,
	).Scan(&sourcesJSON)
	if err != nil {
		return eris.Wrapf(err, "sqlite: merge sources load %s", targetPlaceID)
	}

	var existing []model.Source
	if sourcesJSON.String != "" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &existing); err != nil {
			return eris.Wrap(err, "sqlite: merge sources unmarshal")
		}
	}

	merged := model.MergeSources(existing, newSources)
	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return eris.Wrap(err, "sqlite: merge sources marshal")
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE places SET sources_json = ?, last_seen_at = ?, updated_at = ? WHERE id = ?`,
		string(mergedJSON), time.Now().UTC(), time.Now().UTC(), targetPlaceID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: merge sources update %s", targetPlaceID)
	}

	return s.syncPlaceSources(ctx, targetPlaceID, merged)
}

func (s *SQLiteStore) UpdatePlaceStatus(ctx context.Context, id string, status model.PlaceStatus, humanApproved int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE places SET status = ?, human_approved = ?, updated_at = ? WHERE id = ?`,
		string(status), humanApproved, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update place status %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("place not found: %s", id)
	}
	return nil
}

func (s *SQLiteStore) MergePlaces(ctx context.Context, targetID, sourceID string) error {
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
	if _, err := s.db.ExecContext(ctx,
		`UPDATE comments SET place_id = ? WHERE place_id = ?`, targetID, sourceID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: move comments %s", sourceID)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM places WHERE id = ?`, sourceID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: delete merged place %s", sourceID)
	}
	return nil
}

func (s *SQLiteStore) WithIngestLock(ctx context.Context, key string, fn func(context.Context) error) error {
	_ = key // single-process store, one mutex covers all keys
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx)
}

func (s *SQLiteStore) StartScan(ctx context.Context, searchQuery string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_logs (id, search_query, status, scan_started_at) VALUES (?, ?, ?, ?)`,
		id, searchQuery, string(model.ScanRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: start scan")
	}
	return id, nil
}

func (s *SQLiteStore) CompleteScan(ctx context.Context, scanID string, found, added int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_logs SET status = ?, places_found = ?, places_added = ?, scan_completed_at = ? WHERE id = ?`,
		string(model.ScanCompleted), found, added, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete scan %s", scanID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("scan log not found: %s", scanID)
	}
	return nil
}

func (s *SQLiteStore) FailScan(ctx context.Context, scanID string, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_logs SET status = ?, error = ?, scan_completed_at = ? WHERE id = ?`,
		string(model.ScanFailed), errMsg, time.Now().UTC(), scanID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail scan %s", scanID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Errorf("scan log not found: %s", scanID)
	}
	return nil
}

func (s *SQLiteStore) ListScanLogs(ctx context.Context, limit int) ([]model.ScanLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, search_query, status, places_found, places_added, error, scan_started_at, scan_completed_at
		 FROM scan_logs ORDER BY scan_started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scan logs")
	}
	defer rows.Close()

	var logs []model.ScanLog
	for rows.Next() {
		var l model.ScanLog
		var errStr sql.NullString
		var completed sql.NullTime
		if err := rows.Scan(&l.ID, &l.SearchQuery, &l.Status, &l.PlacesFound, &l.PlacesAdded,
			&errStr, &l.StartedAt, &completed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan log row")
		}
		l.Error = errStr.String
		if completed.Valid {
			t := completed.Time
			l.CompletedAt = &t
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list scan logs iterate")
}

// sqlNullable maps an empty string to NULL.
func sqlNullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Store = (*SQLiteStore)(nil)
var _ Store = (*PostgresStore)(nil)
