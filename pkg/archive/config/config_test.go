package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

func isolate(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return tempDir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Archive.Root != DefaultArchiveRoot() {
		t.Errorf("Archive.Root = %q, want %q", cfg.Archive.Root, DefaultArchiveRoot())
	}
	if cfg.Hashes.DBPath != DefaultDBPath() {
		t.Errorf("Hashes.DBPath = %q, want %q", cfg.Hashes.DBPath, DefaultDBPath())
	}
	if !cfg.Hashes.DuplicateDetection {
		t.Error("Hashes.DuplicateDetection = false, want true")
	}
	if cfg.Backfill.MaxConsecutiveFailures != DefaultMaxConsecutiveFailures {
		t.Errorf("MaxConsecutiveFailures = %d, want %d", cfg.Backfill.MaxConsecutiveFailures, DefaultMaxConsecutiveFailures)
	}
	if cfg.Backfill.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", cfg.Backfill.Workers, DefaultWorkers)
	}
	if cfg.History.Path != DefaultHistoryDir() || cfg.History.RetentionDays != DefaultRetentionDays {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Archive.MinWidth != DefaultMinWidth || cfg.Archive.MinHeight != DefaultMinHeight {
		t.Errorf("min dimensions = %dx%d", cfg.Archive.MinWidth, cfg.Archive.MinHeight)
	}

	alg, err := cfg.Algorithm()
	if err != nil {
		t.Fatalf("Algorithm() error = %v", err)
	}
	if alg != types.AlgorithmMD5 {
		t.Errorf("Algorithm() = %v, want MD5", alg)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want empty without a config file", cfg.File)
	}
}

func TestLoad_FromFile(t *testing.T) {
	home := isolate(t)
	configDir := filepath.Join(home, ".config", "stripvault")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configContent := `
archive:
  root: ~/comics
hashes:
  algorithm: dhash
  duplicate_detection: false
backfill:
  target_year: 2024
  default_max_per_day: 20
  sources:
    comicskingdom:
      enabled: false
    gocomics:
      max_days_back: 7
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configContent), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := filepath.Join(home, "comics"); cfg.Archive.Root != want {
		t.Errorf("Archive.Root = %q, want %q", cfg.Archive.Root, want)
	}
	if cfg.Hashes.DuplicateDetection {
		t.Error("Hashes.DuplicateDetection = true, want false")
	}
	alg, err := cfg.Algorithm()
	if err != nil || alg != types.AlgorithmDifferenceHash {
		t.Errorf("Algorithm() = %v, %v", alg, err)
	}

	opts := cfg.ScanOptions()
	if opts.TargetYear != 2024 {
		t.Errorf("TargetYear = %d, want 2024", opts.TargetYear)
	}

	if s := opts.Sources.For("comicskingdom"); s.Enabled {
		t.Error("comicskingdom should be disabled")
	}
	gocomics := opts.Sources.For("GoComics")
	if !gocomics.Enabled || gocomics.MaxDaysBack != 7 || gocomics.MaxPerDay != 20 {
		t.Errorf("gocomics = %+v", gocomics)
	}
	other := opts.Sources.For("other")
	if !other.Enabled || other.MaxDaysBack != DefaultMaxDaysBack || other.MaxPerDay != 20 {
		t.Errorf("default source = %+v", other)
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "custom.yaml")
	if err := os.WriteFile(path, []byte("backfill:\n  workers: 9\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backfill.Workers != 9 {
		t.Errorf("Workers = %d, want 9", cfg.Backfill.Workers)
	}
	if cfg.RunOptions().Workers != 9 {
		t.Errorf("RunOptions().Workers = %d, want 9", cfg.RunOptions().Workers)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("STRIPVAULT_ARCHIVE_ROOT", "/srv/comics")
	t.Setenv("STRIPVAULT_HASHES_ALGORITHM", "sha256")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Archive.Root != "/srv/comics" {
		t.Errorf("Archive.Root = %q, want /srv/comics", cfg.Archive.Root)
	}
	if cfg.Hashes.Algorithm != "sha256" {
		t.Errorf("Hashes.Algorithm = %q, want sha256", cfg.Hashes.Algorithm)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "broken.yaml")
	if err := os.WriteFile(path, []byte("archive: [unclosed"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestLoggingConfig(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	lc, err := cfg.LoggingConfig()
	if err != nil {
		t.Fatalf("LoggingConfig() error = %v", err)
	}
	if lc.Level != "info" {
		t.Errorf("Level = %q, want info", lc.Level)
	}
	if lc.Rotation.MaxSize != 10*1000*1000 {
		t.Errorf("Rotation.MaxSize = %d, want 10MB", lc.Rotation.MaxSize)
	}
	if lc.Components["watcher"] != "warn" {
		t.Errorf("Components[watcher] = %q, want warn", lc.Components["watcher"])
	}

	cfg.Logging.Rotation.MaxSize = "lots"
	if _, err := cfg.LoggingConfig(); err == nil {
		t.Error("LoggingConfig() should reject an invalid max size")
	}
}

func TestWriteDefault(t *testing.T) {
	home := isolate(t)

	path, err := WriteDefault()
	if err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	if want := filepath.Join(home, ".config", "stripvault", "config.yaml"); path != want {
		t.Errorf("WriteDefault() path = %q, want %q", path, want)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() after WriteDefault error = %v", err)
	}
	if cfg.Archive.Root != DefaultArchiveRoot() {
		t.Errorf("Archive.Root = %q, want %q", cfg.Archive.Root, DefaultArchiveRoot())
	}

	if err := os.WriteFile(path, []byte("# mine\n"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, err := WriteDefault(); err != nil {
		t.Fatalf("second WriteDefault() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "# mine\n" {
		t.Error("WriteDefault() overwrote an existing config")
	}
}

func TestConfigDir_XDG(t *testing.T) {
	xdgDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdgDir)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if want := filepath.Join(xdgDir, "stripvault"); dir != want {
		t.Errorf("ConfigDir() = %q, want %q", dir, want)
	}
}
