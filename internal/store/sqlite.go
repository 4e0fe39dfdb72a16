// Package store persists bucket catalogs so runs can be compared and replayed.
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/tamara-h/housingML/internal/bucket"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = eris.New("catalog run not found")

// Axis names a one-dimensional catalog.
type Axis string

const (
	AxisLat  Axis = "lat"
	AxisLong Axis = "long"
)

// Run describes one stored bucketing pass.
type Run struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Command  string `json:"command"`
	Rows     int    `json:"rows"`
	PairMode string `json:"pair_mode,omitempty"`
	// Axes lists the per-axis catalogs the run produced, even empty ones.
	Axes      []Axis    `json:"axes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Snapshot is a run with the catalogs it produced. Any catalog may be nil.
type Snapshot struct {
	Run   Run                 `json:"run"`
	Lat   *bucket.Catalog     `json:"-"`
	Long  *bucket.Catalog     `json:"-"`
	Pairs *bucket.PairCatalog `json:"-"`
}

// SQLiteStore keeps catalogs in a SQLite database via modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// batch workers share one writer
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
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	command    TEXT NOT NULL,
	row_count  INTEGER NOT NULL,
	pair_mode  TEXT NOT NULL DEFAULT '',
	axes       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS buckets (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	axis     TEXT NOT NULL,
	position INTEGER NOT NULL,
	bucket   REAL NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, axis, position)
);

CREATE TABLE IF NOT EXISTS pair_buckets (
	run_id   TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	lat      REAL NOT NULL,
	long     REAL NOT NULL,
	count    INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema if needed and adds columns missing from
// databases written by earlier versions.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = 'axes'`,
	).Scan(&n); err != nil {
		return eris.Wrap(err, "sqlite: inspect runs")
	}
	if n == 0 {
		if _, err := s.db.ExecContext(ctx, `ALTER TABLE runs ADD COLUMN axes TEXT NOT NULL DEFAULT ''`); err != nil {
			return eris.Wrap(err, "sqlite: add runs.axes")
		}
	}
	return nil
}

func joinAxes(axes []Axis) string {
	parts := make([]string, len(axes))
	for i, a := range axes {
		parts[i] = string(a)
	}
	return strings.Join(parts, ",")
}

func splitAxes(s string) []Axis {
	if s == "" {
		return nil
	}
	var out []Axis
	for _, p := range strings.Split(s, ",") {
		out = append(out, Axis(p))
	}
	return out
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores a snapshot in one transaction and returns the new run id.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) (string, error) {
	if snap == nil {
		return "", eris.New("sqlite: nil snapshot")
	}
	run := snap.Run
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if snap.Pairs != nil && run.PairMode == "" {
		run.PairMode = snap.Pairs.Mode.String()
	}
	run.Axes = nil
	if snap.Lat != nil {
		run.Axes = append(run.Axes, AxisLat)
	}
	if snap.Long != nil {
		run.Axes = append(run.Axes, AxisLong)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source, command, row_count, pair_mode, axes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Command, run.Rows, run.PairMode, joinAxes(run.Axes), run.CreatedAt,
	); err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}

	for axis, cat := range map[Axis]*bucket.Catalog{AxisLat: snap.Lat, AxisLong: snap.Long} {
		if cat == nil {
			continue
		}
		for i, b := range cat.Buckets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO buckets (run_id, axis, position, bucket, count) VALUES (?, ?, ?, ?, ?)`,
				run.ID, string(axis), i, b.Key, b.Count,
			); err != nil {
				return "", eris.Wrapf(err, "sqlite: insert %s bucket", axis)
			}
		}
	}
	if snap.Pairs != nil {
		for i, b := range snap.Pairs.Buckets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO pair_buckets (run_id, position, lat, long, count) VALUES (?, ?, ?, ?, ?)`,
				run.ID, i, b.Lat, b.Long, b.Count,
			); err != nil {
				return "", eris.Wrap(err, "sqlite: insert pair bucket")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit")
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, command, row_count, pair_mode, axes, created_at FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var axes string
		if err := rows.Scan(&r.ID, &r.Source, &r.Command, &r.Rows, &r.PairMode, &axes, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Axes = splitAxes(axes)
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// Load returns a stored snapshot. Catalogs the run did not produce are nil.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	snap := &Snapshot{}
	var axes string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, command, row_count, pair_mode, axes, created_at FROM runs WHERE id = ?`, id,
	).Scan(&snap.Run.ID, &snap.Run.Source, &snap.Run.Command, &snap.Run.Rows, &snap.Run.PairMode, &axes, &snap.Run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}

	byAxis, err := s.loadBuckets(ctx, id)
	if err != nil {
		return nil, err
	}
	snap.Run.Axes = splitAxes(axes)
	if snap.Run.Axes == nil {
		// rows written before runs.axes existed
		for _, a := range []Axis{AxisLat, AxisLong} {
			if _, ok := byAxis[a]; ok {
				snap.Run.Axes = append(snap.Run.Axes, a)
			}
		}
	}
	for _, a := range snap.Run.Axes {
		switch a {
		case AxisLat:
			snap.Lat = bucket.FromBuckets(byAxis[a])
		case AxisLong:
			snap.Long = bucket.FromBuckets(byAxis[a])
		}
	}

	pairs, err := s.loadPairs(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(pairs) > 0 || snap.Run.PairMode != "" {
		mode, err := bucket.ParseCountMode(snap.Run.PairMode)
		if err != nil {
			return nil, err
		}
		snap.Pairs = bucket.FromPairBuckets(pairs, mode)
	}
	return snap, nil
}

func (s *SQLiteStore) loadBuckets(ctx context.Context, id string) (map[Axis][]bucket.Bucket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT axis, bucket, count FROM buckets WHERE run_id = ? ORDER BY axis, position`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load buckets")
	}
	defer rows.Close()

	out := map[Axis][]bucket.Bucket{}
	for rows.Next() {
		var axis string
		var b bucket.Bucket
		if err := rows.Scan(&axis, &b.Key, &b.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan bucket")
		}
		out[Axis(axis)] = append(out[Axis(axis)], b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load buckets iterate")
}

func (s *SQLiteStore) loadPairs(ctx context.Context, id string) ([]bucket.PairBucket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT lat, long, count FROM pair_buckets WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load pair buckets")
	}
	defer rows.Close()

	var out []bucket.PairBucket
	for rows.Next() {
		var b bucket.PairBucket
		if err := rows.Scan(&b.Lat, &b.Long, &b.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan pair bucket")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: load pair buckets iterate")
}

// Delete removes a run and its catalogs.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, q := range []string{
		`DELETE FROM buckets WHERE run_id = ?`,
		`DELETE FROM pair_buckets WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return eris.Wrap(err, "sqlite: delete catalogs")
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete run")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: delete run rows")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}
