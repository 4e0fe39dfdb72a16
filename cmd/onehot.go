package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tamara-h/housingML/internal/dataset"
)

var (
	ohOutputPath    string
	ohMode          string
	ohDropLongitude bool
	ohLegacyPairs   bool
	ohDelimiter     string
	ohIndexColumn   bool
	ohSheetName     string
	ohSheetIndex    int
	ohFromRun       string
)

var onehotCmd = &cobra.Command{
	Use:   "onehot [file]",
	Short: "Write a copy of the dataset with one indicator column per coordinate bucket",
	Long: `onehot buckets the latitude and longitude columns and writes the dataset as
tab-separated text with a leading row index.

  --mode axis  adds long_<k> and lat_<k> columns and drops latitude
  --mode pair  adds lat_long_<lat>_<long> columns and drops both coordinates

With --from-run the catalogs of a stored run are reused, so a second file gets
exactly the same indicator columns as the first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureConfig()
		delim, err := parseDelimiter(ohDelimiter)
		if err != nil {
			return err
		}
		mode, err := pairCountMode(ohLegacyPairs)
		if err != nil {
			return err
		}
		drop := cfg.DropLongitude
		if cmd.Flags().Changed("drop-longitude") {
			drop = ohDropLongitude
		}
		output := ohOutputPath
		if output == "" {
			output = cfg.OutputPath
		}

		ctx := cmd.Context()
		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		if s != nil {
			defer s.Close()
		}
		reuse, err := loadReuse(ctx, s, ohFromRun, ohMode)
		if err != nil {
			return err
		}

		outcome, err := runOneHot(oneHotJob{
			Input:  inputPath(args),
			Output: output,
			Mode:   ohMode,
			Load: dataset.Options{
				Delimiter:   delim,
				IndexColumn: ohIndexColumn,
				SheetName:   ohSheetName,
				SheetIndex:  ohSheetIndex,
			},
			Expand: expandOptions(drop),
			Pairs:  mode,
			Reuse:  reuse,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Wrote %s (%d rows, %d indicator columns, dropped %v)\n",
			output, outcome.Rows, len(outcome.Result.Added), outcome.Result.Dropped)
		if reuse == nil {
			id, err := recordRun(ctx, s, outcome.Snap)
			if err != nil {
				return err
			}
			if id != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "✓ Recorded catalog run %s\n", id)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(onehotCmd)
	onehotCmd.Flags().StringVarP(&ohOutputPath, "output", "o", "", "output path (default from config: new_housing.csv)")
	onehotCmd.Flags().StringVar(&ohMode, "mode", modeAxis, "expansion mode: axis|pair")
	onehotCmd.Flags().BoolVar(&ohDropLongitude, "drop-longitude", false, "axis mode: also drop the longitude column")
	onehotCmd.Flags().BoolVar(&ohLegacyPairs, "legacy-pair-counts", false, "pair mode: start each pair count at zero")
	onehotCmd.Flags().StringVar(&ohDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	onehotCmd.Flags().BoolVar(&ohIndexColumn, "index-column", false, "input has a leading row-index column (as written by onehot)")
	onehotCmd.Flags().StringVar(&ohSheetName, "sheet-name", "", "XLSX: sheet name to read")
	onehotCmd.Flags().IntVar(&ohSheetIndex, "sheet-index", 0, "XLSX: 0-based sheet index (used if --sheet-name not provided)")
	onehotCmd.Flags().StringVar(&ohFromRun, "from-run", "", "reuse the catalogs of a stored run instead of building them")
}
