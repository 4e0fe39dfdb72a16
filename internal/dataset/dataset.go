// Package dataset holds tabular housing data as ordered columns of raw cells.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
)

// bom is the UTF-8 byte-order mark spreadsheet exports put before the header.
const bom = "\ufeff"

var (
	// ErrColumnNotFound is returned when a named column is absent.
	ErrColumnNotFound = eris.New("column not found")
	// ErrNotNumeric is returned when a cell cannot be parsed as a number.
	ErrNotNumeric = eris.New("value is not numeric")
	// ErrRowCount is returned when a column does not match the dataset length.
	ErrRowCount = eris.New("row count mismatch")
)

// missing lists the cell markers read as NaN, mirroring common CSV NA tokens.
var missing = map[string]struct{}{
	"":     {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"-nan": {},
	"null": {},
	"none": {},
	"#n/a": {},
	"<na>": {},
}

// Dataset is an ordered set of equally long columns held in a gota
// DataFrame. Every column is a string series, so cells keep their source text
// and passthrough columns are written back unchanged.
type Dataset struct {
	Name string
	df   dataframe.DataFrame
	// rows survives a frame with no columns left, which gota cannot represent.
	rows int
}

// New builds a dataset from a header and row-major records. Short records are
// padded with empty cells; records wider than the header are rejected.
// Header names are cleaned the way pandas reads them: a leading byte-order
// mark is stripped, blank names become "Unnamed: <i>" and repeats are
// suffixed a, a.1, a.2.
func New(name string, header []string, records [][]string) (*Dataset, error) {
	for i, rec := range records {
		if len(rec) > len(header) {
			return nil, eris.Errorf("row %d: expected %d fields, saw %d", i+1, len(header), len(rec))
		}
	}
	ds := &Dataset{Name: name, rows: len(records)}
	if len(header) == 0 {
		return ds, nil
	}

	cols := make([]series.Series, len(header))
	for j, n := range columnNames(header) {
		cells := make([]string, len(records))
		for i, rec := range records {
			if j < len(rec) {
				cells[i] = rec[j]
			}
		}
		cols[j] = series.New(cells, series.String, n)
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return nil, eris.Wrap(df.Err, "build frame")
	}
	ds.df = df
	return ds, nil
}

func columnNames(header []string) []string {
	names := make([]string, len(header))
	taken := make(map[string]struct{}, len(header))
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		n := h
		if _, ok := taken[n]; ok {
			// same suffixing scheme as pandas: a, a.1, a.2
			k := max(seen[h], 1)
			for {
				n = fmt.Sprintf("%s.%d", h, k)
				k++
				if _, ok := taken[n]; !ok {
					break
				}
			}
			seen[h] = k
		}
		taken[n] = struct{}{}
		names[i] = n
	}
	return names
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.rows }

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	if d.df.Ncol() == 0 {
		return []string{}
	}
	return d.df.Names()
}

// Has reports whether the named column exists.
func (d *Dataset) Has(name string) bool {
	return d.colIndex(name) >= 0
}

func (d *Dataset) colIndex(name string) int {
	for i, n := range d.Columns() {
		if n == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the raw cells of a column.
func (d *Dataset) Column(name string) ([]string, error) {
	if !d.Has(name) {
		return nil, eris.Wrapf(ErrColumnNotFound, "%q", name)
	}
	return d.df.Col(name).Records(), nil
}

// Floats parses a column as numbers. Missing markers become NaN.
func (d *Dataset) Floats(name string) ([]float64, error) {
	cells, err := d.Column(name)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(cells))
	for i, s := range cells {
		v, ok := ParseFloat(s)
		if !ok {
			return nil, eris.Wrapf(ErrNotNumeric, "column %q row %d: %q", name, i, s)
		}
		out[i] = v
	}
	return out, nil
}

// ParseFloat parses a single cell. Missing markers parse as NaN.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if _, ok := missing[strings.ToLower(s)]; ok {
		return math.NaN(), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Set adds a column at the end, or replaces the cells of an existing one in place.
func (d *Dataset) Set(name string, cells []string) error {
	return d.SetColumns([]string{name}, [][]string{cells})
}

// SetColumns is Set for many columns. Existing names are replaced in place;
// new ones are appended in the given order with a single frame rebuild.
func (d *Dataset) SetColumns(names []string, cells [][]string) error {
	if len(names) != len(cells) {
		return eris.Errorf("set columns: %d names for %d columns", len(names), len(cells))
	}
	for i, n := range names {
		if len(cells[i]) != d.rows {
			return eris.Wrapf(ErrRowCount, "column %q has %d cells, dataset has %d rows", n, len(cells[i]), d.rows)
		}
	}

	df := d.df
	var added []series.Series
	pending := make(map[string]int, len(names))
	for i, n := range names {
		s := series.New(cells[i], series.String, n)
		switch {
		case d.Has(n):
			df = df.Mutate(s)
			if df.Err != nil {
				return eris.Wrapf(df.Err, "replace %q", n)
			}
		default:
			if j, ok := pending[n]; ok {
				added[j] = s
				continue
			}
			pending[n] = len(added)
			added = append(added, s)
		}
	}
	if len(added) > 0 {
		if df.Ncol() == 0 {
			df = dataframe.New(added...)
		} else {
			df = df.CBind(dataframe.New(added...))
		}
		if df.Err != nil {
			return eris.Wrap(df.Err, "append columns")
		}
	}
	d.df = df
	return nil
}

// Drop removes the named columns. All names must exist; nothing is removed otherwise.
func (d *Dataset) Drop(names ...string) error {
	rm := make(map[string]struct{}, len(names))
	for _, n := range names {
		if !d.Has(n) {
			return eris.Wrapf(ErrColumnNotFound, "drop %q", n)
		}
		rm[n] = struct{}{}
	}
	if len(rm) == 0 {
		return nil
	}
	if len(rm) == d.df.Ncol() {
		d.df = dataframe.DataFrame{}
		return nil
	}
	drop := make([]string, 0, len(rm))
	for n := range rm {
		drop = append(drop, n)
	}
	df := d.df.Drop(drop)
	if df.Err != nil {
		return eris.Wrap(df.Err, "drop columns")
	}
	d.df = df
	return nil
}

// Row returns the cells of row i in column order.
func (d *Dataset) Row(i int) []string {
	out := make([]string, d.df.Ncol())
	for j := range out {
		out[j] = d.df.Elem(i, j).String()
	}
	return out
}

// records returns every column's cells, column-major, for serialization.
func (d *Dataset) records() [][]string {
	out := make([][]string, d.df.Ncol())
	for j, n := range d.Columns() {
		out[j] = d.df.Col(n).Records()
	}
	return out
}
