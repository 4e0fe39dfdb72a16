// Package onehot expands coordinate bucket catalogs into binary indicator columns.
package onehot

import (
	"github.com/rotisserie/eris"

	"github.com/tamara-h/housingML/internal/bucket"
	"github.com/tamara-h/housingML/internal/dataset"
)

const (
	on  = "1"
	off = "0"
)

// Options names the coordinate columns and controls which ones are dropped.
type Options struct {
	LatColumn  string
	LongColumn string
	// DropLongitude also drops the longitude column in per-axis mode.
	// Left false, the output keeps longitude next to its indicator columns,
	// which is what existing new_housing.csv consumers read.
	DropLongitude bool
}

// DefaultOptions uses the housing dataset's column names.
func DefaultOptions() Options {
	return Options{LatColumn: "latitude", LongColumn: "longitude"}
}

func (o Options) withDefaults() Options {
	if o.LatColumn == "" {
		o.LatColumn = "latitude"
	}
	if o.LongColumn == "" {
		o.LongColumn = "longitude"
	}
	return o
}

// Result lists the columns an expansion added and dropped.
type Result struct {
	Added   []string
	Dropped []string
}

// LongColumn names the indicator column for a longitude bucket.
func LongColumn(k float64) string { return "long_" + bucket.FormatKey(k) }

// LatColumn names the indicator column for a latitude bucket.
func LatColumn(k float64) string { return "lat_" + bucket.FormatKey(k) }

// PairColumn names the indicator column for a lat/long pair bucket.
func PairColumn(k bucket.PairKey) string {
	return "lat_long_" + bucket.FormatKey(k.Lat) + "_" + bucket.FormatKey(k.Long)
}

// Expand adds one long_<k> column per longitude bucket, then one lat_<k>
// column per latitude bucket, then drops the latitude column.
func Expand(ds *dataset.Dataset, lat, long *bucket.Catalog, opt Options) (*Result, error) {
	opt = opt.withDefaults()
	lats, err := ds.Floats(opt.LatColumn)
	if err != nil {
		return nil, eris.Wrap(err, "onehot: latitude")
	}
	longs, err := ds.Floats(opt.LongColumn)
	if err != nil {
		return nil, eris.Wrap(err, "onehot: longitude")
	}

	res := &Result{}
	for _, b := range long.Buckets {
		res.Added = append(res.Added, LongColumn(b.Key))
	}
	for _, b := range lat.Buckets {
		res.Added = append(res.Added, LatColumn(b.Key))
	}
	cols := append(
		indicators(long.Len(), len(longs), func(i int) (int, bool) { return long.Index(longs[i]) }),
		indicators(lat.Len(), len(lats), func(i int) (int, bool) { return lat.Index(lats[i]) })...,
	)
	if err := ds.SetColumns(res.Added, cols); err != nil {
		return nil, eris.Wrap(err, "onehot: add indicator columns")
	}

	drop := []string{opt.LatColumn}
	if opt.DropLongitude {
		drop = append(drop, opt.LongColumn)
	}
	if err := ds.Drop(drop...); err != nil {
		return nil, eris.Wrap(err, "onehot: drop source columns")
	}
	res.Dropped = drop
	return res, nil
}

// ExpandPairs adds one lat_long_<lat>_<long> column per pair bucket and drops
// both coordinate columns.
func ExpandPairs(ds *dataset.Dataset, pairs *bucket.PairCatalog, opt Options) (*Result, error) {
	opt = opt.withDefaults()
	lats, err := ds.Floats(opt.LatColumn)
	if err != nil {
		return nil, eris.Wrap(err, "onehot: latitude")
	}
	longs, err := ds.Floats(opt.LongColumn)
	if err != nil {
		return nil, eris.Wrap(err, "onehot: longitude")
	}

	res := &Result{}
	for _, b := range pairs.Buckets {
		res.Added = append(res.Added, PairColumn(b.PairKey))
	}
	cols := indicators(pairs.Len(), len(lats), func(i int) (int, bool) { return pairs.Index(lats[i], longs[i]) })
	if err := ds.SetColumns(res.Added, cols); err != nil {
		return nil, eris.Wrap(err, "onehot: add indicator columns")
	}

	drop := []string{opt.LongColumn, opt.LatColumn}
	if err := ds.Drop(drop...); err != nil {
		return nil, eris.Wrap(err, "onehot: drop source columns")
	}
	res.Dropped = drop
	return res, nil
}

// indicators builds width columns of rows cells in one pass over the rows:
// every cell starts at 0 and the column match(row) reports is set to 1.
func indicators(width, rows int, match func(row int) (int, bool)) [][]string {
	cols := make([][]string, width)
	for j := range cols {
		c := make([]string, rows)
		for i := range c {
			c[i] = off
		}
		cols[j] = c
	}
	for i := 0; i < rows; i++ {
		if j, ok := match(i); ok {
			cols[j][i] = on
		}
	}
	return cols
}
