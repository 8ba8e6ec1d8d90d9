// Package navigation answers first, last, next and previous queries over a
// comic's archived dates.
package navigation

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/logging"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// ComicLookup resolves comic IDs.
type ComicLookup interface {
	Get(id int) (types.Comic, bool)
}

// DateIndex is the read side of the archive.
type DateIndex interface {
	OldestDate(comicID int, comicName string) (time.Time, bool, error)
	NewestDate(comicID int, comicName string) (time.Time, bool, error)
	NextDate(comicID int, comicName string, from time.Time) (time.Time, bool, error)
	PreviousDate(comicID int, comicName string, from time.Time) (time.Time, bool, error)
	GetStrip(ctx context.Context, comicID int, comicName string, date time.Time) (*types.Image, error)
}

// Resolver navigates the archive.
type Resolver struct {
	comics  ComicLookup
	archive DateIndex
	log     *logging.Logger
}

// NewResolver returns a Resolver.
func NewResolver(comics ComicLookup, archive DateIndex) *Resolver {
	return &Resolver{comics: comics, archive: archive, log: logging.Get("navigation")}
}

// First returns the oldest strip of a comic.
func (r *Resolver) First(ctx context.Context, comicID int) (Result, error) {
	comic, ok := r.comics.Get(comicID)
	if !ok {
		return NotFound{Reason: NoComicsAvailable}, nil
	}

	date, ok, err := r.archive.OldestDate(comic.ID, comic.Name)
	if err != nil {
		return nil, fmt.Errorf("finding oldest strip of %s: %w", comic.Name, err)
	}
	if !ok {
		return NotFound{Reason: NoComicsAvailable}, nil
	}
	return r.found(ctx, comic, date)
}

// Last returns the newest strip of a comic.
func (r *Resolver) Last(ctx context.Context, comicID int) (Result, error) {
	comic, ok := r.comics.Get(comicID)
	if !ok {
		return NotFound{Reason: NoComicsAvailable}, nil
	}

	date, ok, err := r.archive.NewestDate(comic.ID, comic.Name)
	if err != nil {
		return nil, fmt.Errorf("finding newest strip of %s: %w", comic.Name, err)
	}
	if !ok {
		return NotFound{Reason: NoComicsAvailable}, nil
	}
	return r.found(ctx, comic, date)
}

// Next returns the first strip strictly after from.
func (r *Resolver) Next(ctx context.Context, comicID int, from time.Time) (Result, error) {
	from = types.Day(from)
	comic, ok := r.comics.Get(comicID)
	if !ok {
		return NotFound{Reason: NoComicsAvailable, CurrentDate: &from}, nil
	}

	date, ok, err := r.archive.NextDate(comic.ID, comic.Name, from)
	if err != nil {
		return nil, fmt.Errorf("finding strip after %s: %w", types.FormatDate(from), err)
	}
	if ok {
		return r.found(ctx, comic, date)
	}

	prev, ok, err := r.archive.PreviousDate(comic.ID, comic.Name, from)
	if err != nil {
		return nil, fmt.Errorf("finding strip before %s: %w", types.FormatDate(from), err)
	}
	r.log.Debug("navigation reached end", "comic", comic.Name, "from", types.FormatDate(from))
	return NotFound{Reason: AtEnd, CurrentDate: &from, NearestPrevious: datePtr(prev, ok)}, nil
}

// Previous returns the last strip strictly before from.
func (r *Resolver) Previous(ctx context.Context, comicID int, from time.Time) (Result, error) {
	from = types.Day(from)
	comic, ok := r.comics.Get(comicID)
	if !ok {
		return NotFound{Reason: NoComicsAvailable, CurrentDate: &from}, nil
	}

	date, ok, err := r.archive.PreviousDate(comic.ID, comic.Name, from)
	if err != nil {
		return nil, fmt.Errorf("finding strip before %s: %w", types.FormatDate(from), err)
	}
	if ok {
		return r.found(ctx, comic, date)
	}

	next, ok, err := r.archive.NextDate(comic.ID, comic.Name, from)
	if err != nil {
		return nil, fmt.Errorf("finding strip after %s: %w", types.FormatDate(from), err)
	}
	r.log.Debug("navigation reached beginning", "comic", comic.Name, "from", types.FormatDate(from))
	return NotFound{Reason: AtBeginning, CurrentDate: &from, NearestNext: datePtr(next, ok)}, nil
}

// found loads the strip at date along with its neighbours. An indexed date
// whose image cannot be read is an error, not a boundary.
func (r *Resolver) found(ctx context.Context, comic types.Comic, date time.Time) (Result, error) {
	img, err := r.archive.GetStrip(ctx, comic.ID, comic.Name, date)
	if err != nil {
		return nil, fmt.Errorf("loading strip %s: %w", types.FormatDate(date), err)
	}

	prev, hasPrev, err := r.archive.PreviousDate(comic.ID, comic.Name, date)
	if err != nil {
		return nil, err
	}
	next, hasNext, err := r.archive.NextDate(comic.ID, comic.Name, date)
	if err != nil {
		return nil, err
	}

	return Found{
		Image:           img,
		NearestPrevious: datePtr(prev, hasPrev),
		NearestNext:     datePtr(next, hasNext),
	}, nil
}
