package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tamara-h/housingML/internal/bucket"
	"github.com/tamara-h/housingML/internal/dataset"
	"github.com/tamara-h/housingML/internal/onehot"
	"github.com/tamara-h/housingML/internal/store"
	"github.com/tamara-h/housingML/internal/utils"
)

const (
	modeAxis = "axis"
	modePair = "pair"
)

// ensureConfig fills cfg with defaults when loading was skipped.
func ensureConfig() {
	if cfg == nil {
		cfg = defaultConfig()
	}
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case ",":
		return ',', nil
	case "\t", "tab":
		return '\t', nil
	case ";":
		return ';', nil
	default:
		return 0, fmt.Errorf("unsupported --delimiter: %s", s)
	}
}

// inputPath returns the first positional argument or the configured input.
func inputPath(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.InputPath
}

// expandInputs resolves globs and literal paths, dropping duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

func expandOptions(dropLongitude bool) onehot.Options {
	return onehot.Options{
		LatColumn:     cfg.LatColumn,
		LongColumn:    cfg.LongColumn,
		DropLongitude: dropLongitude,
	}
}

// pairCountMode resolves the configured mode; legacy forces CountRepeats.
func pairCountMode(legacy bool) (bucket.CountMode, error) {
	if legacy {
		return bucket.CountRepeats, nil
	}
	return bucket.ParseCountMode(cfg.PairCountMode)
}

// coordinates loads the latitude and longitude columns of ds as floats.
func coordinates(ds *dataset.Dataset) (lats, longs []float64, err error) {
	lats, err = ds.Floats(cfg.LatColumn)
	if err != nil {
		return nil, nil, err
	}
	longs, err = ds.Floats(cfg.LongColumn)
	if err != nil {
		return nil, nil, err
	}
	return lats, longs, nil
}

// openStore opens the catalog database, or returns nil when none is configured.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	if cfg.CatalogDB == "" {
		return nil, nil
	}
	path, err := utils.ExpandHome(cfg.CatalogDB)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return nil, eris.Wrap(err, "catalog db dir")
		}
	}
	s, err := store.NewSQLite(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// oneHotJob describes one input file to expand.
type oneHotJob struct {
	Input  string
	Output string
	Mode   string
	Load   dataset.Options
	Expand onehot.Options
	Pairs  bucket.CountMode
	// Reuse, when set, supplies the catalogs instead of building them from the input.
	Reuse *store.Snapshot
}

// oneHotOutcome is what a job produced.
type oneHotOutcome struct {
	Rows   int
	Result *onehot.Result
	Snap   *store.Snapshot
}

// runOneHot loads the input, builds (or reuses) catalogs, expands them and
// writes the tab-separated output.
func runOneHot(job oneHotJob) (*oneHotOutcome, error) {
	ds, err := dataset.LoadFile(job.Input, job.Load)
	if err != nil {
		return nil, err
	}
	lats, longs, err := coordinates(ds)
	if err != nil {
		return nil, err
	}

	snap := &store.Snapshot{Run: store.Run{Source: job.Input, Command: "onehot", Rows: ds.Len()}}
	var res *onehot.Result
	switch job.Mode {
	case modePair:
		pairs := job.reusePairs()
		if pairs == nil {
			if pairs, err = bucket.BucketizePairs(lats, longs, job.Pairs); err != nil {
				return nil, err
			}
		}
		snap.Pairs = pairs
		snap.Run.PairMode = pairs.Mode.String()
		if res, err = onehot.ExpandPairs(ds, pairs, job.Expand); err != nil {
			return nil, err
		}
	case modeAxis, "":
		lat, long := job.reuseAxes()
		if lat == nil {
			lat = bucket.Bucketize(lats)
		}
		if long == nil {
			long = bucket.Bucketize(longs)
		}
		snap.Lat, snap.Long = lat, long
		if res, err = onehot.Expand(ds, lat, long, job.Expand); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported --mode: %s (use axis|pair)", job.Mode)
	}

	if err := dataset.Save(job.Output, ds, dataset.DefaultWriteOptions()); err != nil {
		return nil, err
	}
	zap.L().Info("one-hot written",
		zap.String("input", job.Input),
		zap.String("output", job.Output),
		zap.String("mode", job.Mode),
		zap.Int("rows", ds.Len()),
		zap.Int("added", len(res.Added)),
		zap.Strings("dropped", res.Dropped),
	)
	return &oneHotOutcome{Rows: ds.Len(), Result: res, Snap: snap}, nil
}

func (j oneHotJob) reusePairs() *bucket.PairCatalog {
	if j.Reuse == nil {
		return nil
	}
	return j.Reuse.Pairs
}

func (j oneHotJob) reuseAxes() (lat, long *bucket.Catalog) {
	if j.Reuse == nil {
		return nil, nil
	}
	return j.Reuse.Lat, j.Reuse.Long
}

// loadReuse fetches a stored run and checks it carries the catalogs mode needs.
func loadReuse(ctx context.Context, s *store.SQLiteStore, id, mode string) (*store.Snapshot, error) {
	if id == "" {
		return nil, nil
	}
	if s == nil {
		return nil, fmt.Errorf("--from-run needs a catalog database (--catalog-db or catalog_db)")
	}
	snap, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch mode {
	case modePair:
		if snap.Pairs == nil {
			return nil, fmt.Errorf("run %s has no pair catalog", id)
		}
	default:
		if snap.Lat == nil || snap.Long == nil {
			return nil, fmt.Errorf("run %s has no latitude/longitude catalogs", id)
		}
	}
	return snap, nil
}

// recordRun saves snap when a store is open and returns the run id ("" otherwise).
func recordRun(ctx context.Context, s *store.SQLiteStore, snap *store.Snapshot) (string, error) {
	if s == nil {
		return "", nil
	}
	id, err := s.Save(ctx, snap)
	if err != nil {
		return "", err
	}
	zap.L().Debug("catalog recorded", zap.String("run", id), zap.String("source", snap.Run.Source))
	return id, nil
}

// outputFor names the batch output for input inside dir, avoiding collisions
// with names already handed out.
func outputFor(dir, input string, taken map[string]struct{}) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	out := filepath.Join(dir, stem+".onehot.tsv")
	for idx := 2; ; idx++ {
		if _, ok := taken[out]; !ok {
			break
		}
		out = filepath.Join(dir, fmt.Sprintf("%s__%d.onehot.tsv", stem, idx))
	}
	taken[out] = struct{}{}
	return out
}
