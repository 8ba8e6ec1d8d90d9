package backfill

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// ErrNotStaged is returned by DirFetcher when no file exists for a strip.
var ErrNotStaged = errors.New("strip not staged")

// DirFetcher serves strips from a staging directory laid out like the
// archive: <dir>/<comic dir>/<yyyy-MM-dd>.<ext>, with or without a year
// level. It lets downloads made by other tools be imported.
type DirFetcher struct {
	Dir string
}

// Fetch returns the staged bytes for comic on date.
func (f DirFetcher) Fetch(ctx context.Context, comic types.Comic, date time.Time) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := types.FormatDate(date)
	comicDir := filepath.Join(f.Dir, comic.DirName())
	candidates := []string{comicDir, filepath.Join(comicDir, fmt.Sprint(date.Year()))}

	for _, dir := range candidates {
		for _, ext := range types.ImageExtensions {
			data, err := os.ReadFile(filepath.Join(dir, base+ext))
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNotStaged, comic.Name, base)
}
