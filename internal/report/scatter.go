package report

import (
	"image/color"
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/tamara-h/housingML/internal/bucket"
)

// ScatterOptions controls the bucket-center plot.
type ScatterOptions struct {
	Title string
	// Size is the width and height of the square image; 0 means 6in.
	Size vg.Length
	// ScaleByCount grows each glyph with the square root of its pair count.
	ScaleByCount bool
	// LatOnX puts latitude on X and longitude on Y, which draws the map
	// rotated and mirrored.
	LatOnX bool
}

// Scatter draws one point per pair bucket and saves the image to path. The
// format follows the extension (.png, .svg, .pdf).
//
// Longitude is on X and latitude on Y by default so the points fall where
// they would on a map; set LatOnX for the transposed layout.
func Scatter(pairs *bucket.PairCatalog, path string, opt ScatterOptions) error {
	p, err := newScatterPlot(pairs, opt)
	if err != nil {
		return err
	}
	size := opt.Size
	if size == 0 {
		size = 6 * vg.Inch
	}
	if err := p.Save(size, size, path); err != nil {
		return eris.Wrapf(err, "scatter: save %s", path)
	}
	return nil
}

func newScatterPlot(pairs *bucket.PairCatalog, opt ScatterOptions) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = opt.Title
	if p.Title.Text == "" {
		p.Title.Text = "lat/long buckets"
	}
	p.X.Label.Text, p.Y.Label.Text = "longitude", "latitude"
	if opt.LatOnX {
		p.X.Label.Text, p.Y.Label.Text = p.Y.Label.Text, p.X.Label.Text
	}
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, pairs.Len())
	maxCount := 1
	for i, b := range pairs.Buckets {
		xys[i].X, xys[i].Y = b.Long, b.Lat
		if opt.LatOnX {
			xys[i].X, xys[i].Y = b.Lat, b.Long
		}
		if b.Count > maxCount {
			maxCount = b.Count
		}
	}
	if len(xys) > 0 {
		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, eris.Wrap(err, "scatter: build points")
		}
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
		s.GlyphStyle.Radius = vg.Points(3)
		if opt.ScaleByCount {
			s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
				g := s.GlyphStyle
				frac := math.Sqrt(float64(pairs.Buckets[i].Count) / float64(maxCount))
				g.Radius = vg.Points(2 + 10*frac)
				return g
			}
		}
		p.Add(s)
	}
	return p, nil
}
