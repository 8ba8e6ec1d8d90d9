// Package config provides configuration management for stripvault.
package config

import "github.com/jamesainslie/stripvault/pkg/archive/backfill"

// Default configuration values for stripvault.
const (
	// DefaultAlgorithm is the hash algorithm used for duplicate detection.
	DefaultAlgorithm = "md5"

	// DefaultMaxConsecutiveFailures stops a comic's backfill scan after this
	// many missing days in a row.
	DefaultMaxConsecutiveFailures = backfill.DefaultMaxConsecutiveFailures

	// DefaultMaxPerDay caps backfill tasks per source per run.
	DefaultMaxPerDay = backfill.DefaultMaxPerDay

	// DefaultMaxDaysBack bounds how far back backfill looks.
	DefaultMaxDaysBack = backfill.DefaultMaxDaysBack

	// DefaultWorkers is the number of concurrent backfill workers.
	DefaultWorkers = 4

	// DefaultChunkSize is the number of backfill tasks scheduled together.
	DefaultChunkSize = backfill.DefaultChunkSize

	// DefaultMinWidth and DefaultMinHeight bound accepted strips.
	DefaultMinWidth  = 100
	DefaultMinHeight = 50

	// DefaultRetentionDays is how long history entries are kept.
	DefaultRetentionDays = 90
)

// DefaultComponentLevels are the per-component log levels written by default.
var DefaultComponentLevels = map[string]string{
	"dedup":    "info",
	"backfill": "info",
	"watcher":  "warn",
	"hasher":   "warn",
}
