package backfill

import (
	"runtime"
	"strings"
)

// Defaults applied by Validate.
const (
	DefaultMaxConsecutiveFailures = 3
	DefaultMaxPerDay              = 50
	DefaultMaxDaysBack            = 365
	DefaultChunkSize              = 25
)

// SourceSettings controls backfill for one upstream source.
type SourceSettings struct {
	Enabled bool `json:"enabled"`

	// MaxPerDay caps the tasks attempted per run. Zero or less is unlimited.
	MaxPerDay int `json:"max_per_day"`

	// MaxDaysBack limits how far before today the scanner looks.
	// Zero or less means no limit beyond the target year.
	MaxDaysBack int `json:"max_days_back"`
}

// Sources resolves per-source settings, falling back to Default.
type Sources struct {
	Default   SourceSettings
	Overrides map[string]SourceSettings
}

// DefaultSources enables every source with the default limits.
func DefaultSources() Sources {
	return Sources{
		Default: SourceSettings{
			Enabled:     true,
			MaxPerDay:   DefaultMaxPerDay,
			MaxDaysBack: DefaultMaxDaysBack,
		},
	}
}

// For returns the settings of a source. Source names match case-insensitively.
func (s Sources) For(source string) SourceSettings {
	if o, ok := s.Overrides[source]; ok {
		return o
	}
	if o, ok := s.Overrides[strings.ToLower(source)]; ok {
		return o
	}
	return s.Default
}

// ScanOptions configures a Scanner.
type ScanOptions struct {
	// TargetYear bounds the scan to one calendar year. Zero means the
	// current year.
	TargetYear int

	// MaxConsecutiveFailures stops a comic's scan after this many missing
	// publication days in a row.
	MaxConsecutiveFailures int

	Sources Sources

	// Workers is the number of comics scanned concurrently.
	Workers int
}

// Validate fills in defaults for zero values.
func (o *ScanOptions) Validate() {
	if o.MaxConsecutiveFailures <= 0 {
		o.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Sources.Default == (SourceSettings{}) && o.Sources.Overrides == nil {
		o.Sources = DefaultSources()
	}
}

// RunOptions configures a Runner.
type RunOptions struct {
	// Workers bounds concurrent fetch-and-save calls within a chunk.
	Workers int

	// ChunkSize is the number of tasks scheduled together.
	ChunkSize int

	Sources Sources
}

// Validate fills in defaults for zero values.
func (o *RunOptions) Validate() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Sources.Default == (SourceSettings{}) && o.Sources.Overrides == nil {
		o.Sources = DefaultSources()
	}
}
