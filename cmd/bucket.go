package cmd

import (
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
	bkOutputPath string
	bkMarkdown   bool
	bkDelimiter  string
	bkMaxRows    int
	bkSheetName  string
	bkSheetIndex int
)

var bucketCmd = &cobra.Command{
	Use:   "bucket [file]",
	Short: "Round latitude and longitude to whole degrees and list bucket counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureConfig()
		delim, err := parseDelimiter(bkDelimiter)
		if err != nil {
			return err
		}
		path := inputPath(args)
		ds, err := dataset.LoadFile(path, dataset.Options{
			Delimiter:  delim,
			MaxRows:    bkMaxRows,
			SheetName:  bkSheetName,
			SheetIndex: bkSheetIndex,
		})
		if err != nil {
			return err
		}
		lats, longs, err := coordinates(ds)
		if err != nil {
			return err
		}

		lat := bucket.Bucketize(lats)
		long := bucket.Bucketize(longs)
		report.LogCatalog(zap.L(), cfg.LatColumn, lat)
		report.LogCatalog(zap.L(), cfg.LongColumn, long)

		summary := report.Summary{Name: ds.Name, Rows: ds.Len(), Lat: lat, Long: long}
		out := cmd.OutOrStdout()
		switch {
		case bkOutputPath != "":
			if err := utils.SafeWriteFile(bkOutputPath, []byte(report.Markdown(summary))); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote bucket summary to %s\n", bkOutputPath)
		case bkMarkdown:
			fmt.Fprintln(out, report.Markdown(summary))
		default:
			if err := report.WriteText(out, cfg.LatColumn, lat); err != nil {
				return err
			}
			if err := report.WriteText(out, cfg.LongColumn, long); err != nil {
				return err
			}
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
			Run:  store.Run{Source: path, Command: "bucket", Rows: ds.Len()},
			Lat:  lat,
			Long: long,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Recorded catalog run %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bucketCmd)
	bucketCmd.Flags().StringVarP(&bkOutputPath, "output", "o", "", "optional path to write the bucket summary (Markdown)")
	bucketCmd.Flags().BoolVar(&bkMarkdown, "markdown", false, "print the Markdown summary instead of plain listings")
	bucketCmd.Flags().StringVar(&bkDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	bucketCmd.Flags().IntVar(&bkMaxRows, "max-rows", 0, "maximum rows to read (0 = unlimited)")
	bucketCmd.Flags().StringVar(&bkSheetName, "sheet-name", "", "XLSX: sheet name to read")
	bucketCmd.Flags().IntVar(&bkSheetIndex, "sheet-index", 0, "XLSX: 0-based sheet index (used if --sheet-name not provided)")
}
