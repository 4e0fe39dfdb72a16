package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamara-h/housingML/internal/bucket"
	"github.com/tamara-h/housingML/internal/dataset"
	"github.com/tamara-h/housingML/internal/report"
	"github.com/tamara-h/housingML/internal/store"
	"github.com/tamara-h/housingML/internal/utils"
)

var (
	plOutputPath  string
	plGeoJSONPath string
	plTitle       string
	plScale       bool
	plLegacyPairs bool
	plDelimiter   string
	plQuiet       bool
	plLatOnX      bool
)

var plotCmd = &cobra.Command{
	Use:   "plot [file]",
	Short: "List lat/long pair buckets and scatter-plot their centers",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureConfig()
		delim, err := parseDelimiter(plDelimiter)
		if err != nil {
			return err
		}
		mode, err := pairCountMode(plLegacyPairs)
		if err != nil {
			return err
		}
		path := inputPath(args)
		ds, err := dataset.LoadFile(path, dataset.Options{Delimiter: delim})
		if err != nil {
			return err
		}
		lats, longs, err := coordinates(ds)
		if err != nil {
			return err
		}
		pairs, err := bucket.BucketizePairs(lats, longs, mode)
		if err != nil {
			return err
		}
		report.LogPairs(zap.L(), pairs)

		out := cmd.OutOrStdout()
		if !plQuiet {
			if err := report.WritePairsText(out, pairs); err != nil {
				return err
			}
		}

		image := plOutputPath
		if image == "" {
			image = cfg.PlotPath
		}
		if err := report.Scatter(pairs, image, report.ScatterOptions{Title: plTitle, ScaleByCount: plScale, LatOnX: plLatOnX}); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote plot to %s\n", image)

		if plGeoJSONPath != "" {
			var buf bytes.Buffer
			if err := report.GeoJSON(&buf, pairs); err != nil {
				return err
			}
			if err := utils.SafeWriteFile(plGeoJSONPath, buf.Bytes()); err != nil {
				return fmt.Errorf("write geojson: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote GeoJSON to %s\n", plGeoJSONPath)
		}

		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		if s == nil {
			return nil
		}
		defer s.Close()
		id, err := recordRun(ctx, s, &store.Snapshot{
			Run:   store.Run{Source: path, Command: "plot", Rows: ds.Len()},
			Pairs: pairs,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Recorded catalog run %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(plotCmd)
	plotCmd.Flags().StringVarP(&plOutputPath, "output", "o", "", "image path; .png, .svg or .pdf (default from config: lat_long.png)")
	plotCmd.Flags().StringVar(&plGeoJSONPath, "geojson", "", "also write the pair buckets as a GeoJSON FeatureCollection")
	plotCmd.Flags().StringVar(&plTitle, "title", "", "plot title")
	plotCmd.Flags().BoolVar(&plScale, "scale-by-count", false, "size each point by its pair count")
	plotCmd.Flags().BoolVar(&plLegacyPairs, "legacy-pair-counts", false, "start each pair count at zero")
	plotCmd.Flags().StringVar(&plDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	plotCmd.Flags().BoolVar(&plQuiet, "quiet", false, "do not print the pair listing")
	plotCmd.Flags().BoolVar(&plLatOnX, "lat-on-x", false, "put latitude on the X axis instead of longitude")
}
