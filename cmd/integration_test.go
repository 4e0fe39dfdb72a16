package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamara-h/housingML/internal/dataset"
	"github.com/tamara-h/housingML/internal/store"
)

const housingCSV = "longitude,latitude,median_house_value\n" +
	"-122.23,37.88,452600\n" +
	"-122.22,37.86,358500\n" +
	"-118.24,34.05,341300\n"

// resetFlags restores every flag in the tree to its default. Cobra keeps
// values and Changed state between Execute calls on the same command.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execCmd runs the root command with args and returns what it printed to stdout.
func execCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// isolate points HOME at a temp dir so no user config leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCLI_BucketPrintsCatalogs(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "tiny.csv"),
		"latitude,longitude\n37.41,-122.05\n37.8,-122.0\n38.2,-121.99\n")

	out := runCmd(t, "bucket", in)
	assert.Contains(t, out, "latitude buckets:\n  37.0\t1\n  38.0\t2\nlatitude: 2 buckets, 3 values\n")
	assert.Contains(t, out, "longitude buckets:\n  -122.0\t3\nlongitude: 1 buckets, 3 values\n")
}

func TestCLI_BucketMarkdownToFile(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	md := filepath.Join(home, "out", "summary.md")

	out := runCmd(t, "bucket", in, "-o", md)
	assert.Contains(t, out, "✓ Wrote bucket summary to "+md)
	body, err := os.ReadFile(md)
	require.NoError(t, err)
	assert.Contains(t, string(body), "[BUCKET SUMMARY]\nFile: housing.csv\nRows: 3\n")
	assert.Contains(t, string(body), "- lat 38.0: 2 → lat_38.0\n")
}

func TestCLI_OneHotAxisMode(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	outPath := filepath.Join(home, "new_housing.tsv")

	out := runCmd(t, "onehot", in, "-o", outPath)
	assert.Contains(t, out, "✓ Wrote "+outPath+" (3 rows, 4 indicator columns")

	ds, err := dataset.LoadFile(outPath, dataset.Options{IndexColumn: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"longitude", "median_house_value",
		"long_-122.0", "long_-118.0",
		"lat_38.0", "lat_34.0",
	}, ds.Columns())
	assert.Equal(t, []string{"-122.23", "452600", "1", "0", "1", "0"}, ds.Row(0))
	assert.Equal(t, []string{"-118.24", "341300", "0", "1", "0", "1"}, ds.Row(2))
}

func TestCLI_OneHotDropLongitude(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	outPath := filepath.Join(home, "new_housing.tsv")

	runCmd(t, "onehot", in, "-o", outPath, "--drop-longitude")
	ds, err := dataset.LoadFile(outPath, dataset.Options{IndexColumn: true})
	require.NoError(t, err)
	assert.False(t, ds.Has("longitude"))
	assert.False(t, ds.Has("latitude"))
}

func TestCLI_OneHotPairMode(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	outPath := filepath.Join(home, "pairs.tsv")

	runCmd(t, "onehot", in, "-o", outPath, "--mode", "pair", "--legacy-pair-counts")
	ds, err := dataset.LoadFile(outPath, dataset.Options{IndexColumn: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"median_house_value", "lat_long_38.0_-122.0", "lat_long_34.0_-118.0"}, ds.Columns())
	assert.Equal(t, []string{"358500", "1", "0"}, ds.Row(1))
}

func TestCLI_OneHotMissingColumnLeavesNoOutput(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "bad.csv"), "lat,long\n37.8,-122.2\n")
	outPath := filepath.Join(home, "new_housing.tsv")

	_, err := execCmd(t, "onehot", in, "-o", outPath)
	require.Error(t, err)
	assert.True(t, eris.Is(err, dataset.ErrColumnNotFound))
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCLI_OneHotCustomColumns(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "renamed.csv"), "lat,lon\n37.8,-122.2\n")
	outPath := filepath.Join(home, "renamed.tsv")

	runCmd(t, "onehot", in, "-o", outPath, "--lat-column", "lat", "--long-column", "lon")
	ds, err := dataset.LoadFile(outPath, dataset.Options{IndexColumn: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"lon", "long_-122.0", "lat_38.0"}, ds.Columns())
}

func TestCLI_OneHotUnknownMode(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	_, err := execCmd(t, "onehot", in, "-o", filepath.Join(home, "x.tsv"), "--mode", "grid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported --mode")
}

func TestCLI_OneHotFromRunReusesCatalogs(t *testing.T) {
	home := isolate(t)
	db := filepath.Join(home, "catalog.db")
	train := writeFile(t, filepath.Join(home, "train.csv"), housingCSV)
	test := writeFile(t, filepath.Join(home, "test.csv"), "longitude,latitude\n-120.1,36.2\n-122.4,37.7\n")

	runCmd(t, "bucket", train, "--catalog-db", db)
	runID := latestRun(t, db)

	outPath := filepath.Join(home, "test.tsv")
	runCmd(t, "onehot", test, "-o", outPath, "--catalog-db", db, "--from-run", runID)

	ds, err := dataset.LoadFile(outPath, dataset.Options{IndexColumn: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"longitude", "long_-122.0", "long_-118.0", "lat_38.0", "lat_34.0"}, ds.Columns())
	// Buckets unseen in the stored run leave every indicator at 0.
	assert.Equal(t, []string{"-120.1", "0", "0", "0", "0"}, ds.Row(0))
	assert.Equal(t, []string{"-122.4", "1", "0", "1", "0"}, ds.Row(1))
}

func TestCLI_OneHotFromEmptyRun(t *testing.T) {
	home := isolate(t)
	db := filepath.Join(home, "catalog.db")
	empty := writeFile(t, filepath.Join(home, "empty.csv"), "longitude,latitude\n")
	test := writeFile(t, filepath.Join(home, "test.csv"), "longitude,latitude\n-120.1,36.2\n")

	runCmd(t, "bucket", empty, "--catalog-db", db)
	runID := latestRun(t, db)

	outPath := filepath.Join(home, "test.tsv")
	runCmd(t, "onehot", test, "-o", outPath, "--catalog-db", db, "--from-run", runID)

	ds, err := dataset.LoadFile(outPath, dataset.Options{IndexColumn: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"longitude"}, ds.Columns())
	assert.Equal(t, []string{"-120.1"}, ds.Row(0))
}

func TestCLI_FromRunRequiresCatalogDB(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	_, err := execCmd(t, "onehot", in, "-o", filepath.Join(home, "x.tsv"), "--from-run", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from-run needs a catalog database")
}

func TestCLI_PlotWritesImageAndGeoJSON(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	img := filepath.Join(home, "lat_long.png")
	gj := filepath.Join(home, "pairs.geojson")

	out := runCmd(t, "plot", in, "-o", img, "--geojson", gj, "--scale-by-count")
	assert.Contains(t, out, "lat/long pairs: 2 (counting total)\n  38.0\t-122.0\t2\n  34.0\t-118.0\t1\n")

	info, err := os.Stat(img)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	b, err := os.ReadFile(gj)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &fc))
	assert.Len(t, fc.Features, 2)
}

func TestCLI_CatalogListShowDelete(t *testing.T) {
	home := isolate(t)
	db := filepath.Join(home, "catalog.db")
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)

	runCmd(t, "plot", in, "-o", filepath.Join(home, "p.png"), "--catalog-db", db, "--quiet")
	runID := latestRun(t, db)

	out := runCmd(t, "catalog", "list", "--catalog-db", db)
	assert.Contains(t, out, runID)
	assert.Contains(t, out, "plot")

	out = runCmd(t, "catalog", "show", runID, "--catalog-db", db, "--json")
	assert.Contains(t, out, `"column": "lat_long_38.0_-122.0"`)
	assert.Contains(t, out, `"pair_mode": "total"`)

	out = runCmd(t, "catalog", "show", runID, "--catalog-db", db)
	assert.Contains(t, out, "[LAT/LONG PAIRS]")

	runCmd(t, "catalog", "delete", runID, "--catalog-db", db)
	_, err := execCmd(t, "catalog", "show", runID, "--catalog-db", db)
	require.Error(t, err)
	assert.True(t, eris.Is(err, store.ErrNotFound))
}

func TestCLI_CatalogWithoutDB(t *testing.T) {
	isolate(t)
	_, err := execCmd(t, "catalog", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no catalog database configured")
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	home := isolate(t)

	runCmd(t, "config", "set", "pair_count_mode", "legacy")
	runCmd(t, "config", "set", "drop_longitude", "true")

	b, err := os.ReadFile(filepath.Join(home, ".housing", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "pair_count_mode: repeats")

	out := runCmd(t, "config", "show")
	assert.Contains(t, out, "pair_count_mode: repeats\n")
	assert.Contains(t, out, "drop_longitude: true\n")
	assert.True(t, strings.Contains(out, "lat_column: latitude\n"))

	_, err = execCmd(t, "config", "set", "nope", "1")
	assert.Error(t, err)
	_, err = execCmd(t, "config", "set", "batch_concurrency", "0")
	assert.Error(t, err)
}

func TestCLI_ConfigDrivesPairCounting(t *testing.T) {
	home := isolate(t)
	in := writeFile(t, filepath.Join(home, "housing.csv"), housingCSV)
	runCmd(t, "config", "set", "pair_count_mode", "repeats")

	out := runCmd(t, "plot", in, "-o", filepath.Join(home, "p.png"))
	assert.Contains(t, out, "lat/long pairs: 2 (counting repeats)\n  38.0\t-122.0\t1\n  34.0\t-118.0\t0\n")
}

func latestRun(t *testing.T, db string) string {
	t.Helper()
	s, err := store.NewSQLite(db)
	require.NoError(t, err)
	defer s.Close()
	runs, err := s.ListRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return runs[0].ID
}
