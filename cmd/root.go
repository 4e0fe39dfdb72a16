package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/tamara-h/housingML/internal/config"
)

var (
	// Global flags (override config when set)
	cfgFile        string
	debug          bool
	flagLogFormat  string
	flagCatalogDB  string
	flagLatColumn  string
	flagLongColumn string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "housing",
	Short: "Bucket housing coordinates into whole-degree bins and one-hot encode them",
	Long: `housing rounds latitude/longitude columns of the California housing dataset
to whole degrees, reports bucket frequencies, plots bucket centers and writes
a tab-separated copy of the dataset with one indicator column per bucket.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.housing/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console|json (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagCatalogDB, "catalog-db", "", "SQLite file to record bucket catalogs in (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLatColumn, "lat-column", "", "latitude column name (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLongColumn, "long-column", "", "longitude column name (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if f.Changed("catalog-db") {
		cfg.CatalogDB = flagCatalogDB
	}
	if f.Changed("lat-column") && flagLatColumn != "" {
		cfg.LatColumn = flagLatColumn
	}
	if f.Changed("long-column") && flagLongColumn != "" {
		cfg.LongColumn = flagLongColumn
	}

	if err := cfgpkg.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v\n", err)
	}
}

func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		InputPath:        "./data/housing.csv",
		OutputPath:       "new_housing.csv",
		PlotPath:         "lat_long.png",
		LatColumn:        "latitude",
		LongColumn:       "longitude",
		PairCountMode:    "total",
		BatchConcurrency: 4,
		Log:              cfgpkg.LogConfig{Level: "info", Format: "console"},
	}
}
