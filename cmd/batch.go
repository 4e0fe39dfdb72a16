package cmd

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamara-h/housingML/internal/dataset"
	"github.com/tamara-h/housingML/internal/utils"
)

var (
	btOutDir        string
	btMode          string
	btDropLongitude bool
	btLegacyPairs   bool
	btDelimiter     string
	btConcurrency   int
	btFailFast      bool
	btQuiet         bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <files...>",
	Short: "One-hot encode many CSV/TSV/XLSX files concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureConfig()
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		delim, err := parseDelimiter(btDelimiter)
		if err != nil {
			return err
		}
		mode, err := pairCountMode(btLegacyPairs)
		if err != nil {
			return err
		}
		drop := cfg.DropLongitude
		if cmd.Flags().Changed("drop-longitude") {
			drop = btDropLongitude
		}
		limit := cfg.BatchConcurrency
		if btConcurrency > 0 {
			limit = btConcurrency
		}
		if err := utils.EnsureDir(btOutDir); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		s, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		if s != nil {
			defer s.Close()
		}

		// Output names are assigned up front so workers never race on them.
		taken := map[string]struct{}{}
		jobs := make([]oneHotJob, len(files))
		for i, f := range files {
			jobs[i] = oneHotJob{
				Input:  f,
				Output: outputFor(btOutDir, f, taken),
				Mode:   btMode,
				Load:   dataset.Options{Delimiter: delim},
				Expand: expandOptions(drop),
				Pairs:  mode,
			}
		}

		out := cmd.OutOrStdout()
		total := len(jobs)
		var done, succeeded, failed atomic.Int64
		var outMu sync.Mutex
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(limit)
		for _, job := range jobs {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				outcome, err := runOneHot(job)
				if err == nil {
					_, err = recordRun(ctx, s, outcome.Snap)
				}
				n := done.Add(1)
				if err != nil {
					failed.Add(1)
					zap.L().Error("batch file failed", zap.String("input", job.Input), zap.Error(err))
					if btFailFast {
						return fmt.Errorf("%s: %w", filepath.Base(job.Input), err)
					}
					return nil
				}
				succeeded.Add(1)
				if !btQuiet {
					outMu.Lock()
					defer outMu.Unlock()
					fmt.Fprintf(out, "[%d/%d] %s → %s (%d rows)\n", n, total, filepath.Base(job.Input), job.Output, outcome.Rows)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		zap.L().Info("batch complete",
			zap.Int("files", total),
			zap.Int64("succeeded", succeeded.Load()),
			zap.Int64("failed", failed.Load()),
		)
		fmt.Fprintf(out, "✓ %d/%d files written to %s\n", succeeded.Load(), total, btOutDir)
		if n := failed.Load(); n > 0 {
			return fmt.Errorf("%d of %d files failed", n, total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVar(&btOutDir, "out-dir", "onehot", "directory for <name>.onehot.tsv outputs")
	batchCmd.Flags().StringVar(&btMode, "mode", modeAxis, "expansion mode: axis|pair")
	batchCmd.Flags().BoolVar(&btDropLongitude, "drop-longitude", false, "axis mode: also drop the longitude column")
	batchCmd.Flags().BoolVar(&btLegacyPairs, "legacy-pair-counts", false, "pair mode: start each pair count at zero")
	batchCmd.Flags().StringVar(&btDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	batchCmd.Flags().IntVar(&btConcurrency, "concurrency", 0, "files processed at once (default from config: batch_concurrency)")
	batchCmd.Flags().BoolVar(&btFailFast, "fail-fast", false, "stop at the first failing file")
	batchCmd.Flags().BoolVar(&btQuiet, "quiet", false, "suppress per-file progress")
}
