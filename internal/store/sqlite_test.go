package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamara-h/housingML/internal/bucket"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_SaveAndLoadAxisCatalogs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	lat := bucket.Bucketize([]float64{37.41, 37.8, 38.2})
	long := bucket.Bucketize([]float64{-122.05, -122.0, -121.99})
	id, err := st.Save(ctx, &Snapshot{
		Run:  Run{Source: "housing.csv", Command: "bucket", Rows: 3},
		Lat:  lat,
		Long: long,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := st.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, snap.Run.ID)
	assert.Equal(t, "bucket", snap.Run.Command)
	assert.Equal(t, 3, snap.Run.Rows)
	require.NotNil(t, snap.Lat)
	require.NotNil(t, snap.Long)
	assert.Equal(t, lat.Buckets, snap.Lat.Buckets)
	assert.Equal(t, long.Buckets, snap.Long.Buckets)
	assert.Nil(t, snap.Pairs)

	// the rebuilt catalog answers lookups
	i, ok := snap.Lat.Index(38.4)
	require.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestSQLite_SaveAndLoadPairs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	pairs, err := bucket.BucketizePairs(
		[]float64{37.88, 34.05, 37.86},
		[]float64{-122.23, -118.24, -122.22},
		bucket.CountRepeats,
	)
	require.NoError(t, err)

	id, err := st.Save(ctx, &Snapshot{Run: Run{Source: "h.csv", Command: "plot", Rows: 3}, Pairs: pairs})
	require.NoError(t, err)

	snap, err := st.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "repeats", snap.Run.PairMode)
	require.NotNil(t, snap.Pairs)
	assert.Equal(t, bucket.CountRepeats, snap.Pairs.Mode)
	assert.Equal(t, pairs.Buckets, snap.Pairs.Buckets)
	assert.Nil(t, snap.Lat)
}

func TestSQLite_ListRunsNewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, src := range []string{"a.csv", "b.csv", "c.csv"} {
		_, err := st.Save(ctx, &Snapshot{Run: Run{Source: src, Command: "bucket", CreatedAt: base.Add(time.Duration(i) * time.Hour)}})
		require.NoError(t, err)
	}

	runs, err := st.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c.csv", runs[0].Source)
	assert.Equal(t, "b.csv", runs[1].Source)
}

func TestSQLite_LoadMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.Load(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_Delete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.Save(ctx, &Snapshot{Run: Run{Source: "a.csv", Command: "bucket"}, Lat: bucket.Bucketize([]float64{1})})
	require.NoError(t, err)
	require.NoError(t, st.Delete(ctx, id))

	_, err = st.Load(ctx, id)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.True(t, eris.Is(st.Delete(ctx, id), ErrNotFound))
}

func TestSQLite_EmptyCatalogsSurviveReload(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.Save(ctx, &Snapshot{
		Run:  Run{Source: "empty.csv", Command: "bucket"},
		Lat:  bucket.Bucketize(nil),
		Long: bucket.Bucketize(nil),
	})
	require.NoError(t, err)

	snap, err := st.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []Axis{AxisLat, AxisLong}, snap.Run.Axes)
	require.NotNil(t, snap.Lat)
	require.NotNil(t, snap.Long)
	assert.Empty(t, snap.Lat.Buckets)
	assert.Empty(t, snap.Long.Buckets)
	assert.Nil(t, snap.Pairs)

	runs, err := st.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, []Axis{AxisLat, AxisLong}, runs[0].Axes)
}

func TestSQLite_MigrateAddsAxesColumn(t *testing.T) {
	ctx := context.Background()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "old.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	// runs as created before the axes column existed
	_, err = st.db.ExecContext(ctx, `CREATE TABLE runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	command    TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	pair_mode  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
)`)
	require.NoError(t, err)
	_, err = st.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, command, row_count, created_at) VALUES ('old', 'a.csv', 'bucket', 1, ?)`,
		time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, st.Migrate(ctx))
	// idempotent once the column is there
	require.NoError(t, st.Migrate(ctx))

	_, err = st.db.ExecContext(ctx,
		`INSERT INTO buckets (run_id, axis, position, bucket, count) VALUES ('old', 'lat', 0, 37.4, 1)`)
	require.NoError(t, err)

	snap, err := st.Load(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, []Axis{AxisLat}, snap.Run.Axes)
	require.NotNil(t, snap.Lat)
	assert.Len(t, snap.Lat.Buckets, 1)
	assert.Nil(t, snap.Long)
}
