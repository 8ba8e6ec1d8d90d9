// Package backfill finds dates missing from the archive and fills them.
//
// Scanner walks each comic backward from the newest candidate date and
// emits a task per missing publication day, stopping once too many days in
// a row are missing. Runner feeds those tasks through a Fetcher into the
// archive.
package backfill

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// ComicSource lists the comics to consider.
type ComicSource interface {
	All() []types.Comic
}

// ArchiveIndex reports which strips are already archived.
type ArchiveIndex interface {
	StripExists(comicID int, comicName string, date time.Time) (bool, error)
}

// Scanner finds missing strips.
type Scanner struct {
	comics  ComicSource
	archive ArchiveIndex
	opts    ScanOptions
	log     *logging.Logger

	// Now returns the current time. Tests replace it.
	Now func() time.Time

	checked atomic.Int64
}

// NewScanner returns a Scanner over comics and archive.
func NewScanner(comics ComicSource, archive ArchiveIndex, opts ScanOptions) *Scanner {
	opts.Validate()
	return &Scanner{
		comics:  comics,
		archive: archive,
		opts:    opts,
		log:     logging.Get("backfill"),
		Now:     time.Now,
	}
}

// DatesChecked returns the number of archive lookups made so far.
func (s *Scanner) DatesChecked() int64 {
	return s.checked.Load()
}

// Window is the inclusive date range scanned for one comic.
type Window struct {
	Start    time.Time
	Earliest time.Time
}

// Empty reports whether the window holds no dates.
func (w Window) Empty() bool {
	return w.Start.Before(w.Earliest)
}

// WindowFor computes the scan range of comic: from min(today, Dec 31 of the
// target year) back to the latest of Jan 1 of the target year, the comic's
// first publication, and the source's look-back limit.
func (s *Scanner) WindowFor(comic types.Comic) Window {
	today := types.Day(s.Now())
	year := s.opts.TargetYear
	if year == 0 {
		year = today.Year()
	}

	start := types.Date(year, time.December, 31)
	if today.Before(start) {
		start = today
	}

	earliest := types.Date(year, time.January, 1)
	if !comic.Oldest.IsZero() && types.Day(comic.Oldest).After(earliest) {
		earliest = types.Day(comic.Oldest)
	}
	if days := s.opts.Sources.For(comic.Source).MaxDaysBack; days > 0 {
		if horizon := today.AddDate(0, 0, -days); horizon.After(earliest) {
			earliest = horizon
		}
	}

	return Window{Start: start, Earliest: earliest}
}

// eligible reports whether comic should be scanned at all, and why not.
func (s *Scanner) eligible(comic types.Comic) (bool, string) {
	switch {
	case !comic.IsActive():
		return false, "inactive"
	case comic.Source == "":
		return false, "no source"
	case !s.opts.Sources.For(comic.Source).Enabled:
		return false, "source disabled"
	default:
		return true, ""
	}
}

// FindMissingStrips scans every eligible comic. Comics are scanned
// concurrently; the result lists tasks grouped by comic in registry order,
// newest date first within a comic.
func (s *Scanner) FindMissingStrips(ctx context.Context) ([]types.BackfillTask, error) {
	comics := s.comics.All()
	perComic := make([][]types.BackfillTask, len(comics))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	for i, comic := range comics {
		if ok, reason := s.eligible(comic); !ok {
			s.log.Debug("skipping comic", "comic", comic.Name, "reason", reason)
			continue
		}

		g.Go(func() error {
			tasks, err := s.ScanComic(gctx, comic)
			perComic[i] = tasks
			if err != nil && gctx.Err() != nil {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tasks []types.BackfillTask
	for _, t := range perComic {
		tasks = append(tasks, t...)
	}

	s.log.Info("backfill scan complete", "comics", len(comics), "tasks", len(tasks), "checked", s.DatesChecked())
	return tasks, nil
}

// ScanComic walks one comic's window. An archive error ends the walk; the
// tasks found before it are returned along with the error.
func (s *Scanner) ScanComic(ctx context.Context, comic types.Comic) ([]types.BackfillTask, error) {
	window := s.WindowFor(comic)
	if window.Empty() {
		return nil, nil
	}

	var tasks []types.BackfillTask
	missing := 0

	for date := window.Start; !date.Before(window.Earliest); date = date.AddDate(0, 0, -1) {
		if err := ctx.Err(); err != nil {
			return tasks, err
		}
		if !comic.PublishesOn(date) {
			continue
		}

		exists, err := s.archive.StripExists(comic.ID, comic.Name, date)
		s.checked.Add(1)
		if err != nil {
			s.log.Error("archive lookup failed", "comic", comic.Name, "date", types.FormatDate(date), "error", err)
			return tasks, err
		}

		if exists {
			missing = 0
			continue
		}

		tasks = append(tasks, types.BackfillTask{Comic: comic, Date: date})
		missing++
		if missing >= s.opts.MaxConsecutiveFailures {
			s.log.Debug("stopping scan after consecutive gaps",
				"comic", comic.Name,
				"date", types.FormatDate(date),
				"gaps", missing)
			break
		}
	}

	return tasks, nil
}
