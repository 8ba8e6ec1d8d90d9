// Package types provides the shared data model for the stripvault archive.
package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// DateLayout is the layout of archived file names and CLI date arguments.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a string cannot be parsed as a civil date.
var ErrInvalidDate = errors.New("invalid date")

// ImageExtensions lists the file extensions recognized as archived images.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// IsImageExt reports whether ext (with leading dot, any case) is an image extension.
func IsImageExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range ImageExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Date returns the civil date y-m-d as midnight UTC.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its civil date in t's own location, returned as midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a yyyy-MM-dd string into a civil date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate formats a civil date as yyyy-MM-dd.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Comic describes one comic strip tracked by the archive.
type Comic struct {
	// ID is the stable numeric identifier.
	ID int `json:"id" yaml:"id"`

	// Name is the display name. It also determines the archive directory.
	Name string `json:"name" yaml:"name"`

	// Source names the upstream provider (e.g. "gocomics").
	Source string `json:"source,omitempty" yaml:"source,omitempty"`

	// SourceIdentifier is the comic's slug at the source.
	SourceIdentifier string `json:"source_identifier,omitempty" yaml:"source_identifier,omitempty"`

	// PublicationDays lists the weekdays the comic publishes on.
	// Empty means it publishes daily.
	PublicationDays []time.Weekday `json:"publication_days,omitempty" yaml:"publication_days,omitempty"`

	// Active is nil when unspecified, which counts as active.
	Active *bool `json:"active,omitempty" yaml:"active,omitempty"`

	// Oldest is the first publication date, zero when unknown.
	Oldest time.Time `json:"oldest,omitempty" yaml:"oldest,omitempty"`
}

// IsActive reports whether the comic should be backfilled.
func (c Comic) IsActive() bool {
	return c.Active == nil || *c.Active
}

// PublishesOn reports whether the comic publishes on the weekday of date.
func (c Comic) PublishesOn(date time.Time) bool {
	if len(c.PublicationDays) == 0 {
		return true
	}
	wd := date.Weekday()
	for _, d := range c.PublicationDays {
		if d == wd {
			return true
		}
	}
	return false
}

// DirName returns the archive directory name for the comic.
func (c Comic) DirName() string {
	return ComicDirName(c.ID, c.Name)
}

// ComicDirName returns the directory name used for a comic: its name with
// spaces removed, or comic_<id> when the name is blank.
func ComicDirName(id int, name string) string {
	dir := strings.ReplaceAll(strings.TrimSpace(name), " ", "")
	if dir == "" {
		return "comic_" + strconv.Itoa(id)
	}
	return dir
}

// HashRecord is one entry of a (comic, year) hash cache.
type HashRecord struct {
	// Hash is the hex digest of the image bytes.
	Hash string `json:"hash" yaml:"hash"`

	// Date is the publication date of the image.
	Date time.Time `json:"date" yaml:"date"`

	// FilePath is the absolute path of the archived image.
	FilePath string `json:"file_path" yaml:"file_path"`

	// Algorithm is the algorithm that produced Hash.
	// AlgorithmUnknown marks legacy records.
	Algorithm HashAlgorithm `json:"algorithm" yaml:"algorithm"`
}

// BackfillTask is a request to fetch the strip of Comic for Date.
type BackfillTask struct {
	Comic Comic     `json:"comic"`
	Date  time.Time `json:"date"`
}

// Image is an archived strip as returned by the archive store.
type Image struct {
	ComicID int       `json:"comic_id"`
	Date    time.Time `json:"date"`
	Path    string    `json:"path"`
	Format  string    `json:"format,omitempty"`
	Width   int       `json:"width,omitempty"`
	Height  int       `json:"height,omitempty"`
	Size    int64     `json:"size"`
	Data    []byte    `json:"-"`
}

// FormatSize formats bytes as a human-readable string using binary units.
// Examples: 1024 -> "1.0 KiB", 1048576 -> "1.0 MiB"
func FormatSize(bytes int64) string {
	if bytes < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(bytes))
}
