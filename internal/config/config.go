// Package config loads arbor settings from a YAML file and ARBOR_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFile is read from the working directory when no file is named.
const DefaultFile = ".arbor.yaml"

// EnvPrefix prefixes every environment override: index.parallel is read
// from ARBOR_INDEX_PARALLEL.
const EnvPrefix = "ARBOR"

// Config represents the application configuration.
type Config struct {
	Database string       `mapstructure:"database"`  // snapshot database; empty keeps the index in memory
	LogLevel string       `mapstructure:"log_level"` // debug, info, warn or error
	Index    IndexConfig  `mapstructure:"index"`
	Watch    WatchConfig  `mapstructure:"watch"`
	Export   ExportConfig `mapstructure:"export"`
}

// IndexConfig holds bulk indexing settings.
type IndexConfig struct {
	Parallel    bool     `mapstructure:"parallel"`
	ExcludeDirs []string `mapstructure:"exclude_dirs"` // directory names skipped when walking
	Encodings   []string `mapstructure:"encodings"`    // fallbacks for sources that are not UTF-8
	Progress    bool     `mapstructure:"progress"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// ExportConfig holds report export settings.
type ExportConfig struct {
	Format string `mapstructure:"format"` // yaml or xlsx; empty infers it from Output
	Output string `mapstructure:"output"`
}

// Load reads the configuration from path. With an empty path DefaultFile is
// tried and silently skipped when absent; a named file must exist.
// Environment variables override both.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: defaults: %v", err))
	}
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database", ".arbor.db")
	v.SetDefault("log_level", "info")

	v.SetDefault("index.parallel", true)
	v.SetDefault("index.exclude_dirs", []string{})
	v.SetDefault("index.encodings", []string{})
	v.SetDefault("index.progress", true)

	v.SetDefault("watch.debounce", 250*time.Millisecond)

	v.SetDefault("export.format", "")
	v.SetDefault("export.output", "arbor-report.yaml")
}

// Validate checks value ranges that decoding cannot.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("config: watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	switch strings.ToLower(c.Export.Format) {
	case "", "yaml", "yml", "xlsx", "excel":
	default:
		return fmt.Errorf("config: export.format %q is not yaml or xlsx", c.Export.Format)
	}
	return nil
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
