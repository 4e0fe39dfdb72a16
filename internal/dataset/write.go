package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/tamara-h/housingML/internal/utils"
)

// WriteOptions controls serialization.
type WriteOptions struct {
	// Delimiter defaults to tab.
	Delimiter rune
	// Index prepends an unnamed 0-based row-index column.
	Index bool
}

// DefaultWriteOptions matches the layout downstream consumers of
// new_housing.csv expect: tab separated with a leading index column.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{Delimiter: '\t', Index: true}
}

// Write serializes the dataset with a header row.
func Write(w io.Writer, d *Dataset, opt WriteOptions) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if opt.Delimiter != 0 {
		cw.Comma = opt.Delimiter
	}
	cols := d.records()
	width := len(cols)
	if opt.Index {
		width++
	}
	rec := make([]string, width)

	off := 0
	if opt.Index {
		rec[0] = ""
		off = 1
	}
	copy(rec[off:], d.Columns())
	if err := cw.Write(rec); err != nil {
		return eris.Wrap(err, "write header")
	}
	for i := 0; i < d.rows; i++ {
		if opt.Index {
			rec[0] = strconv.Itoa(i)
		}
		for j, c := range cols {
			rec[off+j] = c[i]
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrapf(err, "write row %d", i)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "flush")
}

// Save writes the dataset to path atomically.
func Save(path string, d *Dataset, opt WriteOptions) error {
	var buf bytes.Buffer
	if err := Write(&buf, d, opt); err != nil {
		return err
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
