package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/tamara-h/housingML/internal/bucket"
	"github.com/tamara-h/housingML/internal/onehot"
)

// FeatureCollection converts pair buckets into GeoJSON point features.
// Coordinates follow GeoJSON order: longitude, then latitude.
func FeatureCollection(pairs *bucket.PairCatalog) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, pairs.Len())}
	for _, b := range pairs.Buckets {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       onehot.PairColumn(b.PairKey),
			Geometry: geom.NewPointFlat(geom.XY, []float64{b.Long, b.Lat}),
			Properties: map[string]interface{}{
				"lat":   b.Lat,
				"long":  b.Long,
				"count": b.Count,
			},
		})
	}
	return fc
}

// GeoJSON writes the pair buckets as an indented FeatureCollection.
func GeoJSON(w io.Writer, pairs *bucket.PairCatalog) error {
	b, err := json.MarshalIndent(FeatureCollection(pairs), "", "  ")
	if err != nil {
		return eris.Wrap(err, "geojson: marshal")
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return eris.Wrap(err, "geojson: write")
	}
	return nil
}
