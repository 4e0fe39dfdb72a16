package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	InputPath  string `mapstructure:"input_path" yaml:"input_path"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	PlotPath   string `mapstructure:"plot_path" yaml:"plot_path"`
	LatColumn  string `mapstructure:"lat_column" yaml:"lat_column"`
	LongColumn string `mapstructure:"long_column" yaml:"long_column"`
	// Pair counting: "total" counts every row, "repeats" reproduces the
	// legacy counts that start each pair at zero.
	PairCountMode string `mapstructure:"pair_count_mode" yaml:"pair_count_mode"`
	DropLongitude bool   `mapstructure:"drop_longitude" yaml:"drop_longitude"`

	// Catalog persistence; empty disables it.
	CatalogDB string `mapstructure:"catalog_db" yaml:"catalog_db"`

	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`

	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultDir returns ~/.housing.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", eris.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".housing"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.housing/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := DefaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrap(err, "mkdir config dir")
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return eris.Wrap(err, "marshal yaml")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return eris.Wrap(err, "write config")
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("HOUSING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input_path", "./data/housing.csv")
	v.SetDefault("output_path", "new_housing.csv")
	v.SetDefault("plot_path", "lat_long.png")
	v.SetDefault("lat_column", "latitude")
	v.SetDefault("long_column", "longitude")
	v.SetDefault("pair_count_mode", "total")
	v.SetDefault("drop_longitude", false)
	v.SetDefault("catalog_db", "")
	v.SetDefault("batch_concurrency", 4)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, eris.Wrap(err, "unmarshal config")
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 1
	}
	return &c, nil
}

// InitLogger builds the global zap logger. Format "json" selects the
// production encoder; anything else the console one.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.DisableStacktrace = true
	}

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(lvl)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)
	return nil
}
