package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tamara-h/housingML/internal/bucket"
	cfgpkg "github.com/tamara-h/housingML/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set housing configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "input_path: %s\n", cfg.InputPath)
		fmt.Fprintf(out, "output_path: %s\n", cfg.OutputPath)
		fmt.Fprintf(out, "plot_path: %s\n", cfg.PlotPath)
		fmt.Fprintf(out, "lat_column: %s\n", cfg.LatColumn)
		fmt.Fprintf(out, "long_column: %s\n", cfg.LongColumn)
		fmt.Fprintf(out, "pair_count_mode: %s\n", cfg.PairCountMode)
		fmt.Fprintf(out, "drop_longitude: %t\n", cfg.DropLongitude)
		if cfg.CatalogDB != "" {
			fmt.Fprintf(out, "catalog_db: %s\n", cfg.CatalogDB)
		}
		fmt.Fprintf(out, "batch_concurrency: %d\n", cfg.BatchConcurrency)
		fmt.Fprintf(out, "log.level: %s\n", cfg.Log.Level)
		fmt.Fprintf(out, "log.format: %s\n", cfg.Log.Format)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		// Reload so flag overrides of this invocation are not persisted.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		switch key {
		case "input_path":
			c.InputPath = val
		case "output_path":
			c.OutputPath = val
		case "plot_path":
			c.PlotPath = val
		case "lat_column":
			c.LatColumn = val
		case "long_column":
			c.LongColumn = val
		case "pair_count_mode":
			m, err := bucket.ParseCountMode(val)
			if err != nil {
				return fmt.Errorf("invalid pair_count_mode: %s (use total or repeats)", val)
			}
			c.PairCountMode = m.String()
		case "drop_longitude":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for drop_longitude: %w", err)
			}
			c.DropLongitude = b
		case "catalog_db":
			c.CatalogDB = val
		case "batch_concurrency":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid int for batch_concurrency: %v", val)
			}
			c.BatchConcurrency = i
		case "log.level":
			switch val {
			case "debug", "info", "warn", "error":
				c.Log.Level = val
			default:
				return fmt.Errorf("invalid log.level: %s (use debug, info, warn or error)", val)
			}
		case "log.format":
			switch val {
			case "console", "json":
				c.Log.Format = val
			default:
				return fmt.Errorf("invalid log.format: %s (use console or json)", val)
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
