package dedup

import (
	"context"
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/hasher"
	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// Hash values reported when no real hash was computed.
const (
	HashDisabled = "disabled"
	HashFailed   = "hash-failed"
)

// Result is the outcome of a duplicate check.
type Result struct {
	IsDuplicate bool   `json:"is_duplicate"`
	Hash        string `json:"hash"`

	// DuplicateDate and DuplicateFilePath identify the archived image the
	// candidate matches. Both are set only when IsDuplicate is true.
	DuplicateDate     *time.Time `json:"duplicate_date,omitempty"`
	DuplicateFilePath string     `json:"duplicate_file_path,omitempty"`
}

// Unique returns a non-duplicate result.
func Unique(hash string) Result {
	return Result{Hash: hash}
}

// Duplicate returns a result pointing at the archived image with the same hash.
func Duplicate(hash string, date time.Time, filePath string) Result {
	d := types.Day(date)
	return Result{
		IsDuplicate:       true,
		Hash:              hash,
		DuplicateDate:     &d,
		DuplicateFilePath: filePath,
	}
}

// HashLookup finds an archived image by hash.
type HashLookup interface {
	FindByHash(ctx context.Context, comicID int, comicName string, year int, hash string) (types.HashRecord, bool, error)
}

// Validator decides whether candidate bytes duplicate an image archived
// under a different date in the same comic and year.
type Validator struct {
	lookup  HashLookup
	hasher  hasher.Hasher
	enabled bool
}

// NewValidator returns a Validator. When enabled is false every candidate
// is unique and nothing is hashed.
func NewValidator(lookup HashLookup, h hasher.Hasher, enabled bool) *Validator {
	return &Validator{lookup: lookup, hasher: h, enabled: enabled}
}

// Enabled reports whether duplicate detection is on.
func (v *Validator) Enabled() bool {
	return v.enabled
}

// ValidateNoDuplicate checks data, the candidate strip of comicID for date.
// Re-saving the same image for its own date is not a duplicate.
func (v *Validator) ValidateNoDuplicate(ctx context.Context, comicID int, comicName string, date time.Time, data []byte) (Result, error) {
	if !v.enabled {
		return Unique(HashDisabled), nil
	}

	hash, ok := v.hasher.Calculate(data)
	if !ok {
		logging.Get("dedup").Warn("could not hash candidate, treating as unique",
			"comic", comicName, "date", types.FormatDate(date))
		return Unique(HashFailed), nil
	}

	existing, found, err := v.lookup.FindByHash(ctx, comicID, comicName, date.Year(), hash)
	if err != nil {
		return Result{}, err
	}
	if !found {
		return Unique(hash), nil
	}

	if types.Day(existing.Date).Equal(types.Day(date)) {
		return Unique(hash), nil
	}

	logging.Get("dedup").Info("duplicate image detected",
		"comic", comicName,
		"date", types.FormatDate(date),
		"matches", types.FormatDate(existing.Date),
		"path", existing.FilePath)
	return Duplicate(hash, existing.Date, existing.FilePath), nil
}
