package bucket

import (
	"math"

	"github.com/rotisserie/eris"
)

// CountMode selects how pair occurrences are counted.
type CountMode int

const (
	// CountTotal counts every row, the first sighting included.
	CountTotal CountMode = iota
	// CountRepeats starts each pair at 0 and counts only later sightings.
	// This reproduces counts produced by the legacy lat/long scripts.
	CountRepeats
)

// ParseCountMode maps a config value to a CountMode.
func ParseCountMode(s string) (CountMode, error) {
	switch s {
	case "", "total":
		return CountTotal, nil
	case "repeats", "legacy":
		return CountRepeats, nil
	default:
		return 0, eris.Errorf("unknown pair count mode %q (use total|repeats)", s)
	}
}

func (m CountMode) String() string {
	if m == CountRepeats {
		return "repeats"
	}
	return "total"
}

// PairKey identifies a rounded (latitude, longitude) cell.
type PairKey struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

// PairBucket is a rounded coordinate pair with its occurrence count.
type PairBucket struct {
	PairKey
	Count int `json:"count"`
}

// PairCatalog is the set of distinct rounded pairs in first-appearance order.
type PairCatalog struct {
	Buckets []PairBucket
	Mode    CountMode
	pos     map[PairKey]int
}

// NewPairCatalog returns an empty catalog counting with mode.
func NewPairCatalog(mode CountMode) *PairCatalog {
	return &PairCatalog{Mode: mode, pos: make(map[PairKey]int)}
}

// BucketizePairs buckets rows of (lat, long). Rows with a NaN coordinate are skipped.
func BucketizePairs(lats, longs []float64, mode CountMode) (*PairCatalog, error) {
	if len(lats) != len(longs) {
		return nil, eris.Errorf("pair bucketing: %d latitudes but %d longitudes", len(lats), len(longs))
	}
	c := NewPairCatalog(mode)
	for i := range lats {
		c.Add(lats[i], longs[i])
	}
	return c, nil
}

// Key rounds a coordinate pair. It reports false when either value is NaN.
func Key(lat, long float64) (PairKey, bool) {
	if math.IsNaN(lat) || math.IsNaN(long) {
		return PairKey{}, false
	}
	return PairKey{Lat: Round(lat), Long: Round(long)}, true
}

// Add counts one row. It reports false when the row was skipped.
func (c *PairCatalog) Add(lat, long float64) bool {
	k, ok := Key(lat, long)
	if !ok {
		return false
	}
	if i, seen := c.pos[k]; seen {
		c.Buckets[i].Count++
		return true
	}
	first := 1
	if c.Mode == CountRepeats {
		first = 0
	}
	c.pos[k] = len(c.Buckets)
	c.Buckets = append(c.Buckets, PairBucket{PairKey: k, Count: first})
	return true
}

// Len returns the number of distinct pairs.
func (c *PairCatalog) Len() int { return len(c.Buckets) }

// Total returns the sum of pair counts. Under CountRepeats this is the number
// of rows minus the number of distinct pairs.
func (c *PairCatalog) Total() int {
	n := 0
	for _, b := range c.Buckets {
		n += b.Count
	}
	return n
}

// Index returns the position of the pair that (lat, long) rounds into.
func (c *PairCatalog) Index(lat, long float64) (int, bool) {
	k, ok := Key(lat, long)
	if !ok {
		return 0, false
	}
	i, ok := c.pos[k]
	return i, ok
}

// FromPairBuckets rebuilds a pair catalog from stored buckets.
func FromPairBuckets(bs []PairBucket, mode CountMode) *PairCatalog {
	c := NewPairCatalog(mode)
	for _, b := range bs {
		if _, ok := c.pos[b.PairKey]; ok {
			continue
		}
		c.pos[b.PairKey] = len(c.Buckets)
		c.Buckets = append(c.Buckets, b)
	}
	return c
}
