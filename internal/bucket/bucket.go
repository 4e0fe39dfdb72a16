// Package bucket groups coordinates into whole-degree bins.
//
// Values are rounded half-to-even at zero decimals, so 37.5 and 38.5 both
// land in 38.0. Catalogs keep buckets in order of first appearance and index
// them by key, so lookups during bucketing and one-hot expansion are O(1).
package bucket

import (
	"math"
	"strconv"
)

// Round rounds x to the nearest whole number, ties to even.
// Negative zero is folded into zero so it shares bucket 0.0.
func Round(x float64) float64 {
	r := math.RoundToEven(x)
	if r == 0 {
		return 0
	}
	return r
}

// FormatKey renders a bucket key with one decimal place ("37.0", "-122.0").
func FormatKey(k float64) string {
	return strconv.FormatFloat(k, 'f', 1, 64)
}

// Bucket is a rounded coordinate with the number of values that fell into it.
type Bucket struct {
	Key   float64 `json:"key"`
	Count int     `json:"count"`
}

// Catalog is the set of distinct buckets discovered over a sequence of values.
type Catalog struct {
	Buckets []Bucket
	pos     map[float64]int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{pos: make(map[float64]int)}
}

// Bucketize rounds every value and counts occurrences per rounded key.
// NaN values are gaps and are not counted.
func Bucketize(values []float64) *Catalog {
	c := NewCatalog()
	for _, v := range values {
		c.Add(v)
	}
	return c
}

// Add rounds v and counts it. It reports false for NaN, which is skipped.
func (c *Catalog) Add(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	k := Round(v)
	if i, ok := c.pos[k]; ok {
		c.Buckets[i].Count++
		return true
	}
	c.pos[k] = len(c.Buckets)
	c.Buckets = append(c.Buckets, Bucket{Key: k, Count: 1})
	return true
}

// Len returns the number of distinct buckets.
func (c *Catalog) Len() int { return len(c.Buckets) }

// Total returns the sum of all bucket counts.
func (c *Catalog) Total() int {
	n := 0
	for _, b := range c.Buckets {
		n += b.Count
	}
	return n
}

// Index returns the position of the bucket that v rounds into.
func (c *Catalog) Index(v float64) (int, bool) {
	if math.IsNaN(v) {
		return 0, false
	}
	i, ok := c.pos[Round(v)]
	return i, ok
}

// Keys returns the bucket keys in first-appearance order.
func (c *Catalog) Keys() []float64 {
	out := make([]float64, len(c.Buckets))
	for i, b := range c.Buckets {
		out[i] = b.Key
	}
	return out
}

// FromBuckets rebuilds a catalog from stored buckets, keeping their order.
func FromBuckets(bs []Bucket) *Catalog {
	c := NewCatalog()
	for _, b := range bs {
		if _, ok := c.pos[b.Key]; ok {
			continue
		}
		c.pos[b.Key] = len(c.Buckets)
		c.Buckets = append(c.Buckets, b)
	}
	return c
}
