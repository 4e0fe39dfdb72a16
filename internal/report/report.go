// Package report renders bucket catalogs as text, logs, plots and GeoJSON.
package report

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/tamara-h/housingML/internal/bucket"
	"github.com/tamara-h/housingML/internal/onehot"
)

// Summary gathers the catalogs produced for one dataset. Nil catalogs are omitted.
type Summary struct {
	Name  string
	Rows  int
	Lat   *bucket.Catalog
	Long  *bucket.Catalog
	Pairs *bucket.PairCatalog
}

// WriteText prints one "key<TAB>count" line per bucket followed by the bucket total.
func WriteText(w io.Writer, title string, c *bucket.Catalog) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s buckets:\n", title)
	for _, bk := range c.Buckets {
		fmt.Fprintf(&b, "  %s\t%d\n", bucket.FormatKey(bk.Key), bk.Count)
	}
	fmt.Fprintf(&b, "%s: %d buckets, %d values\n", title, c.Len(), c.Total())
	_, err := io.WriteString(w, b.String())
	return err
}

// WritePairsText prints the pair count followed by one "lat<TAB>long<TAB>count" line per pair.
func WritePairsText(w io.Writer, c *bucket.PairCatalog) error {
	var b strings.Builder
	fmt.Fprintf(&b, "lat/long pairs: %d (counting %s)\n", c.Len(), c.Mode)
	for _, p := range c.Buckets {
		fmt.Fprintf(&b, "  %s\t%s\t%d\n", bucket.FormatKey(p.Lat), bucket.FormatKey(p.Long), p.Count)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// LogCatalog logs a one-line summary of c, with every bucket at debug level.
func LogCatalog(log *zap.Logger, axis string, c *bucket.Catalog) {
	log.Info("bucket catalog",
		zap.String("axis", axis),
		zap.Int("buckets", c.Len()),
		zap.Int("values", c.Total()),
	)
	if log.Core().Enabled(zap.DebugLevel) {
		for _, b := range c.Buckets {
			log.Debug("bucket", zap.String("axis", axis), zap.Float64("key", b.Key), zap.Int("count", b.Count))
		}
	}
}

// LogPairs logs a one-line summary of a pair catalog.
func LogPairs(log *zap.Logger, c *bucket.PairCatalog) {
	log.Info("pair catalog",
		zap.Int("pairs", c.Len()),
		zap.Int("count_total", c.Total()),
		zap.Stringer("count_mode", c.Mode),
	)
}

// Markdown renders the summary in the sectioned layout used by dataset summaries.
func Markdown(s Summary) string {
	var b strings.Builder
	b.WriteString("[BUCKET SUMMARY]\n")
	if s.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", s.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", s.Rows))

	section := func(title, prefix string, c *bucket.Catalog, column func(float64) string) {
		if c == nil {
			return
		}
		b.WriteString(fmt.Sprintf("\n[%s]\n", title))
		b.WriteString(fmt.Sprintf("Buckets: %d (values %d)\n", c.Len(), c.Total()))
		for _, bk := range c.Buckets {
			b.WriteString(fmt.Sprintf("- %s %s: %d → %s\n", prefix, bucket.FormatKey(bk.Key), bk.Count, column(bk.Key)))
		}
	}
	section("LONGITUDE", "long", s.Long, onehot.LongColumn)
	section("LATITUDE", "lat", s.Lat, onehot.LatColumn)

	if s.Pairs != nil {
		b.WriteString("\n[LAT/LONG PAIRS]\n")
		b.WriteString(fmt.Sprintf("Pairs: %d (counting %s)\n", s.Pairs.Len(), s.Pairs.Mode))
		if s.Pairs.Len() > 0 {
			b.WriteString("| lat | long | count | column |\n")
			b.WriteString("| --- | --- | --- | --- |\n")
			for _, p := range s.Pairs.Buckets {
				b.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n",
					bucket.FormatKey(p.Lat), bucket.FormatKey(p.Long), p.Count, onehot.PairColumn(p.PairKey)))
			}
		}
	}
	return b.String()
}
