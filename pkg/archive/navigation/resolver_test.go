package navigation_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/stripvault/pkg/archive/navigation"
	"github.com/jamesainslie/stripvault/pkg/archive/registry"
	"github.com/jamesainslie/stripvault/pkg/archive/storage"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

var (
	garfield = types.Comic{ID: 1, Name: "Garfield"}
	empty    = types.Comic{ID: 2, Name: "Empty Comic"}
)

func setup(t *testing.T, dates ...string) (*navigation.Resolver, *storage.Store) {
	t.Helper()

	store, err := storage.New(storage.Options{Root: t.TempDir()})
	require.NoError(t, err)
	for _, d := range dates {
		date, err := types.ParseDate(d)
		require.NoError(t, err)
		dir := store.YearDirectory(garfield.ID, garfield.Name, date.Year())
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, d+".png"), []byte(d), 0o644))
	}

	reg, err := registry.New(garfield, empty)
	require.NoError(t, err)
	return navigation.NewResolver(reg, store), store
}

func day(s string) time.Time {
	d, err := types.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func formatted(p *time.Time) string {
	if p == nil {
		return ""
	}
	return types.FormatDate(*p)
}

func requireFound(t *testing.T, res navigation.Result) navigation.Found {
	t.Helper()
	found, ok := res.(navigation.Found)
	require.True(t, ok, "expected Found, got %#v", res)
	return found
}

func requireNotFound(t *testing.T, res navigation.Result) navigation.NotFound {
	t.Helper()
	nf, ok := res.(navigation.NotFound)
	require.True(t, ok, "expected NotFound, got %#v", res)
	return nf
}

func TestFirstAndLast(t *testing.T) {
	r, _ := setup(t, "2023-01-02", "2023-01-05", "2023-01-09")
	ctx := context.Background()

	res, err := r.First(ctx, garfield.ID)
	require.NoError(t, err)
	first := requireFound(t, res)
	assert.Equal(t, "2023-01-02", types.FormatDate(first.Image.Date))
	assert.Equal(t, []byte("2023-01-02"), first.Image.Data)
	assert.Nil(t, first.NearestPrevious)
	assert.Equal(t, "2023-01-05", formatted(first.NearestNext))

	res, err = r.Last(ctx, garfield.ID)
	require.NoError(t, err)
	last := requireFound(t, res)
	assert.Equal(t, "2023-01-09", types.FormatDate(last.Image.Date))
	assert.Equal(t, "2023-01-05", formatted(last.NearestPrevious))
	assert.Nil(t, last.NearestNext)
}

func TestEmptyArchive(t *testing.T) {
	r, _ := setup(t)
	ctx := context.Background()

	for name, call := range map[string]func() (navigation.Result, error){
		"first":   func() (navigation.Result, error) { return r.First(ctx, empty.ID) },
		"last":    func() (navigation.Result, error) { return r.Last(ctx, empty.ID) },
		"unknown": func() (navigation.Result, error) { return r.First(ctx, 99) },
	} {
		t.Run(name, func(t *testing.T) {
			res, err := call()
			require.NoError(t, err)
			assert.Equal(t, navigation.NoComicsAvailable, requireNotFound(t, res).Reason)
		})
	}
}

func TestNext(t *testing.T) {
	r, _ := setup(t, "2023-01-02", "2023-01-05", "2023-01-09")
	ctx := context.Background()

	res, err := r.Next(ctx, garfield.ID, day("2023-01-03"))
	require.NoError(t, err)
	found := requireFound(t, res)
	assert.Equal(t, "2023-01-05", types.FormatDate(found.Image.Date))
	assert.Equal(t, "2023-01-02", formatted(found.NearestPrevious))
	assert.Equal(t, "2023-01-09", formatted(found.NearestNext))

	res, err = r.Next(ctx, garfield.ID, day("2023-01-09"))
	require.NoError(t, err)
	nf := requireNotFound(t, res)
	assert.Equal(t, navigation.AtEnd, nf.Reason)
	assert.Equal(t, "AT_END", nf.Reason.String())
	assert.Equal(t, "2023-01-09", formatted(nf.CurrentDate))
	assert.Equal(t, "2023-01-05", formatted(nf.NearestPrevious))
	assert.Nil(t, nf.NearestNext)
}

func TestPrevious(t *testing.T) {
	r, _ := setup(t, "2023-01-02", "2023-01-05", "2023-01-09")
	ctx := context.Background()

	res, err := r.Previous(ctx, garfield.ID, day("2023-01-09"))
	require.NoError(t, err)
	found := requireFound(t, res)
	assert.Equal(t, "2023-01-05", types.FormatDate(found.Image.Date))

	res, err = r.Previous(ctx, garfield.ID, day("2023-01-02"))
	require.NoError(t, err)
	nf := requireNotFound(t, res)
	assert.Equal(t, navigation.AtBeginning, nf.Reason)
	assert.Equal(t, "2023-01-02", formatted(nf.CurrentDate))
	assert.Equal(t, "2023-01-05", formatted(nf.NearestNext))
	assert.Nil(t, nf.NearestPrevious)
}

type brokenIndex struct {
	navigation.DateIndex
}

func (brokenIndex) OldestDate(int, string) (time.Time, bool, error) {
	return day("2023-01-02"), true, nil
}

func (brokenIndex) GetStrip(context.Context, int, string, time.Time) (*types.Image, error) {
	return nil, errors.New("disk on fire")
}

func TestUnreadableStripIsAnError(t *testing.T) {
	reg, err := registry.New(garfield)
	require.NoError(t, err)

	r := navigation.NewResolver(reg, brokenIndex{})
	_, err = r.First(context.Background(), garfield.ID)
	assert.ErrorContains(t, err, "disk on fire")
}
