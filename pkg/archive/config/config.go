package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/jamesainslie/stripvault/pkg/archive/backfill"
	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" json:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" json:"daily" yaml:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" json:"level" yaml:"level"`
	Path       string            `mapstructure:"path" json:"path" yaml:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation" json:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" json:"components" yaml:"components"`
}

// ArchiveConfig locates the archive and the comic registry.
type ArchiveConfig struct {
	Root      string `mapstructure:"root" json:"root" yaml:"root"`
	Registry  string `mapstructure:"registry" json:"registry" yaml:"registry"`
	MinWidth  int    `mapstructure:"min_width" json:"min_width" yaml:"min_width"`
	MinHeight int    `mapstructure:"min_height" json:"min_height" yaml:"min_height"`
}

// HashesConfig configures duplicate detection.
type HashesConfig struct {
	DBPath             string `mapstructure:"db_path" json:"db_path" yaml:"db_path"`
	Algorithm          string `mapstructure:"algorithm" json:"algorithm" yaml:"algorithm"`
	DuplicateDetection bool   `mapstructure:"duplicate_detection" json:"duplicate_detection" yaml:"duplicate_detection"`
}

// SourceConfig overrides backfill settings for one source. Unset fields
// inherit the backfill defaults.
type SourceConfig struct {
	Enabled     *bool `mapstructure:"enabled" json:"enabled,omitempty" yaml:"enabled,omitempty"`
	MaxPerDay   *int  `mapstructure:"max_per_day" json:"max_per_day,omitempty" yaml:"max_per_day,omitempty"`
	MaxDaysBack *int  `mapstructure:"max_days_back" json:"max_days_back,omitempty" yaml:"max_days_back,omitempty"`
}

// BackfillConfig configures gap discovery and filling.
type BackfillConfig struct {
	TargetYear             int                     `mapstructure:"target_year" json:"target_year" yaml:"target_year"`
	MaxConsecutiveFailures int                     `mapstructure:"max_consecutive_failures" json:"max_consecutive_failures" yaml:"max_consecutive_failures"`
	DefaultMaxPerDay       int                     `mapstructure:"default_max_per_day" json:"default_max_per_day" yaml:"default_max_per_day"`
	DefaultMaxDaysBack     int                     `mapstructure:"default_max_days_back" json:"default_max_days_back" yaml:"default_max_days_back"`
	Workers                int                     `mapstructure:"workers" json:"workers" yaml:"workers"`
	ChunkSize              int                     `mapstructure:"chunk_size" json:"chunk_size" yaml:"chunk_size"`
	Sources                map[string]SourceConfig `mapstructure:"sources" json:"sources,omitempty" yaml:"sources,omitempty"`
}

// HistoryConfig configures the operation journal.
type HistoryConfig struct {
	Path          string `mapstructure:"path" json:"path" yaml:"path"`
	RetentionDays int    `mapstructure:"retention_days" json:"retention_days" yaml:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Archive  ArchiveConfig  `mapstructure:"archive" json:"archive" yaml:"archive"`
	Hashes   HashesConfig   `mapstructure:"hashes" json:"hashes" yaml:"hashes"`
	Backfill BackfillConfig `mapstructure:"backfill" json:"backfill" yaml:"backfill"`
	History  HistoryConfig  `mapstructure:"history" json:"history" yaml:"history"`
	Logging  LoggingConfig  `mapstructure:"logging" json:"logging" yaml:"logging"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" json:"-" yaml:"-"`
}

// Load loads configuration from file and environment variables.
// An explicit path wins; otherwise the config file is searched in:
//   - $XDG_CONFIG_HOME/stripvault/config.yaml
//   - $HOME/.config/stripvault/config.yaml
//
// Environment variables are prefixed with STRIPVAULT_
// (e.g., STRIPVAULT_ARCHIVE_ROOT).
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("STRIPVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := setDefaults(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Archive.Root, &cfg.Archive.Registry, &cfg.Hashes.DBPath, &cfg.History.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) error {
	configDir, err := ConfigDir()
	if err != nil {
		return err
	}

	v.SetDefault("archive.root", DefaultArchiveRoot())
	v.SetDefault("archive.registry", filepath.Join(configDir, "comics.yaml"))
	v.SetDefault("archive.min_width", DefaultMinWidth)
	v.SetDefault("archive.min_height", DefaultMinHeight)

	v.SetDefault("hashes.db_path", DefaultDBPath())
	v.SetDefault("hashes.algorithm", DefaultAlgorithm)
	v.SetDefault("hashes.duplicate_detection", true)

	v.SetDefault("backfill.target_year", 0)
	v.SetDefault("backfill.max_consecutive_failures", DefaultMaxConsecutiveFailures)
	v.SetDefault("backfill.default_max_per_day", DefaultMaxPerDay)
	v.SetDefault("backfill.default_max_days_back", DefaultMaxDaysBack)
	v.SetDefault("backfill.workers", DefaultWorkers)
	v.SetDefault("backfill.chunk_size", DefaultChunkSize)

	v.SetDefault("history.path", DefaultHistoryDir())
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponentLevels)
	return nil
}

// Algorithm parses the configured hash algorithm.
func (c *Config) Algorithm() (types.HashAlgorithm, error) {
	return types.ParseHashAlgorithm(c.Hashes.Algorithm)
}

// BackfillSource resolves the settings of one source, applying its overrides
// on top of the backfill defaults.
func (c *Config) BackfillSource(name string) backfill.SourceSettings {
	s := backfill.SourceSettings{
		Enabled:     true,
		MaxPerDay:   c.Backfill.DefaultMaxPerDay,
		MaxDaysBack: c.Backfill.DefaultMaxDaysBack,
	}

	o, ok := c.Backfill.Sources[strings.ToLower(name)]
	if !ok {
		return s
	}
	if o.Enabled != nil {
		s.Enabled = *o.Enabled
	}
	if o.MaxPerDay != nil {
		s.MaxPerDay = *o.MaxPerDay
	}
	if o.MaxDaysBack != nil {
		s.MaxDaysBack = *o.MaxDaysBack
	}
	return s
}

// BackfillSources returns the per-source settings used by the scanner and runner.
func (c *Config) BackfillSources() backfill.Sources {
	sources := backfill.Sources{
		Default:   c.BackfillSource(""),
		Overrides: make(map[string]backfill.SourceSettings, len(c.Backfill.Sources)),
	}
	for name := range c.Backfill.Sources {
		sources.Overrides[name] = c.BackfillSource(name)
	}
	return sources
}

// ScanOptions returns the backfill scanner options.
func (c *Config) ScanOptions() backfill.ScanOptions {
	return backfill.ScanOptions{
		TargetYear:             c.Backfill.TargetYear,
		MaxConsecutiveFailures: c.Backfill.MaxConsecutiveFailures,
		Sources:                c.BackfillSources(),
		Workers:                c.Backfill.Workers,
	}
}

// RunOptions returns the backfill runner options.
func (c *Config) RunOptions() backfill.RunOptions {
	return backfill.RunOptions{
		Workers:   c.Backfill.Workers,
		ChunkSize: c.Backfill.ChunkSize,
		Sources:   c.BackfillSources(),
	}
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if c.Logging.Rotation.MaxSize != "" {
		size, err := logging.ParseMaxSize(c.Logging.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("logging.rotation.max_size: %w", err)
		}
		rotation.MaxSize = size
	}
	rotation.MaxAge = c.Logging.Rotation.MaxAge
	rotation.MaxBackups = c.Logging.Rotation.MaxBackups
	rotation.Daily = c.Logging.Rotation.Daily

	return logging.Config{
		Level:      c.Logging.Level,
		Path:       c.Logging.Path,
		Rotation:   rotation,
		Components: c.Logging.Components,
	}, nil
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "stripvault"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "stripvault"), nil
}

// ConfigPath returns the path of the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left alone.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# stripvault configuration

archive:
  # Root directory holding <comic>/<yyyy>/<yyyy-MM-dd>.<ext>
  root: %s
  # Comic registry file
  registry: %s
  # Smallest strip accepted on save
  min_width: %d
  min_height: %d

hashes:
  # Hash cache database directory
  db_path: %s
  # md5, sha256, average_hash, difference_hash
  algorithm: %s
  duplicate_detection: true

backfill:
  # 0 means the current year
  target_year: 0
  max_consecutive_failures: %d
  default_max_per_day: %d
  default_max_days_back: %d
  workers: %d
  chunk_size: %d
  # Per-source overrides
  sources:
    gocomics:
      enabled: true

history:
  # Journal of imports and deletions
  path: %s
  retention_days: %d

logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/stripvault/stripvault.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    dedup: info
    backfill: info
    watcher: warn
    hasher: warn
`, DefaultArchiveRoot(), filepath.Join(filepath.Dir(configPath), "comics.yaml"),
		DefaultMinWidth, DefaultMinHeight, DefaultDBPath(), DefaultAlgorithm,
		DefaultMaxConsecutiveFailures, DefaultMaxPerDay, DefaultMaxDaysBack, DefaultWorkers, DefaultChunkSize,
		DefaultHistoryDir(), DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/stripvault/ for the archive and hash database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "stripvault")
}

// DefaultArchiveRoot returns the default archive root.
func DefaultArchiveRoot() string {
	return filepath.Join(DataDir(), "archive")
}

// DefaultDBPath returns the default hash database path.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "hashes.db")
}

// DefaultHistoryDir returns the default operation journal directory.
func DefaultHistoryDir() string {
	return filepath.Join(DataDir(), "history")
}
