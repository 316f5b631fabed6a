package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetPlaceBySlug_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM places WHERE slug = \$1`).
		WithArgs("no-such-slug").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetPlaceBySlug(context.Background(), "no-such-slug")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPlaceBySlug_EmptySlugSkipsQuery(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	p, err := s.GetPlaceBySlug(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetPlaceByExternalID_UnknownType(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	_, err := s.GetPlaceByExternalID(context.Background(), "dbpedia", "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown external id type")
}

func TestPostgresStore_GetPlaceByExternalID_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM places WHERE wikidata_id = \$1`).
		WithArgs("Q999").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetPlaceByExternalID(context.Background(), "wikidata", "Q999")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindSimilar(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	dist := 0.42
	rows := pgxmock.NewRows([]string{"id", "name", "slug", "sim", "distance_km"}).
		AddRow("p1", "Orumcek Kosku", "orumcek-kosku", 0.93, &dist).
		AddRow("p2", "Orumcek Evi", "orumcek-evi", 0.78, (*float64)(nil))

	lat, lon := 41.01, 28.98
	mock.ExpectQuery(`SELECT id, name, slug,`).
		WithArgs("Orumcek Mansion", &lat, &lon, 0.75).
		WillReturnRows(rows)

	got, err := s.FindSimilar(context.Background(), "Orumcek Mansion", &lat, &lon, 0.75)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].PlaceID)
	require.NotNil(t, got[0].DistanceKm)
	assert.InDelta(t, 0.42, *got[0].DistanceKm, 1e-9)
	assert.Nil(t, got[1].DistanceKm)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindSimilar_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, name, slug,`).
		WillReturnError(assert.AnError)

	_, err := s.FindSimilar(context.Background(), "x", nil, nil, 0.75)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find similar")
}

func TestPostgresStore_MergeSources_UnionsByURL(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	existing := `[{"url":"https://wikidata.org/wiki/Q1","domain":"wikidata.org","type":"api"}]`

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT sources_json FROM places WHERE id = \$1 FOR UPDATE`).
		WithArgs("target-1").
		WillReturnRows(pgxmock.NewRows([]string{"sources_json"}).AddRow([]byte(existing)))
	mock.ExpectExec(`UPDATE places SET sources_json = \$1, last_seen_at = now\(\), updated_at = now\(\) WHERE id = \$2`).
		WithArgs(pgxmock.AnyArg(), "target-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()
	// Relational mirror rows.
	mock.ExpectExec(`INSERT INTO place_sources`).
		WithArgs(pgxmock.AnyArg(), "target-1", "https://wikidata.org/wiki/Q1", "wikidata.org", "api").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO place_sources`).
		WithArgs(pgxmock.AnyArg(), "target-1", "https://geonames.org/42", "geonames.org", "database").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.MergeSources(context.Background(), "target-1", []model.Source{
		{URL: "https://WIKIDATA.org/wiki/Q1", Domain: "wikidata.org", Type: "api"}, // dup of existing
		{URL: "https://geonames.org/42", Domain: "geonames.org", Type: "database"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MergeSources_TargetMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT sources_json FROM places WHERE id = \$1 FOR UPDATE`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	err := s.MergeSources(context.Background(), "ghost", []model.Source{{URL: "https://a.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "merge sources load")
}

func TestPostgresStore_WithIngestLock(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
		WithArgs("slug:orumcek-kosku").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectCommit()

	called := false
	err := s.WithIngestLock(context.Background(), "slug:orumcek-kosku", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithIngestLock_FnErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).
		WithArgs("wikidata:Q1").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectRollback()

	err := s.WithIngestLock(context.Background(), "wikidata:Q1", func(ctx context.Context) error {
		return assert.AnError
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ScanLogLifecycle(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO scan_logs`).
		WithArgs(pgxmock.AnyArg(), "API: Wikidata + Wikipedia", "running").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.StartScan(context.Background(), "API: Wikidata + Wikipedia")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	mock.ExpectExec(`UPDATE scan_logs SET status = \$1, places_found = \$2, places_added = \$3`).
		WithArgs("completed", 12, 5, id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteScan(context.Background(), id, 12, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailScan_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE scan_logs SET status = \$1, error = \$2`).
		WithArgs("failed", "provider exploded", "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FailScan(context.Background(), "missing", "provider exploded")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan log not found")
}

func TestPostgresStore_UpdatePlaceStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE places SET status = \$1, human_approved = \$2`).
		WithArgs("approved", 1, "nope").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdatePlaceStatus(context.Background(), "nope", model.StatusApproved, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "place not found")
}
