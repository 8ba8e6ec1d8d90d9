package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/jamesainslie/stripvault/pkg/archive/dedup"
	"github.com/jamesainslie/stripvault/pkg/archive/hasher"
	"github.com/jamesainslie/stripvault/pkg/archive/hashstore"
	"github.com/jamesainslie/stripvault/pkg/archive/navigation"
	"github.com/jamesainslie/stripvault/pkg/archive/registry"
	"github.com/jamesainslie/stripvault/pkg/archive/storage"
	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// app holds the wired engine for one command invocation.
type app struct {
	registry  *registry.Registry
	archive   *storage.Store
	hashes    *hashstore.Store
	cache     *dedup.CacheService
	validator *dedup.Validator
	hasher    hasher.Hasher
}

// openApp wires the archive. The hash database is opened only when
// withHashes is set, since badger holds an exclusive lock on it.
func openApp(withHashes bool) (*app, error) {
	reg, err := registry.Load(cfg.Archive.Registry)
	if err != nil {
		return nil, err
	}
	a := &app{registry: reg}

	opts := storage.Options{
		Root:      cfg.Archive.Root,
		MinWidth:  cfg.Archive.MinWidth,
		MinHeight: cfg.Archive.MinHeight,
	}

	if withHashes {
		store, cache, h, err := openHashes()
		if err != nil {
			return nil, err
		}

		a.hasher = h
		a.hashes = store
		a.cache = cache
		a.validator = dedup.NewValidator(a.cache, h, cfg.Hashes.DuplicateDetection)
		opts.Duplicates = a.validator
		opts.Hashes = a.cache
	}

	a.archive, err = storage.New(opts)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	printVerbose("archive %s, %d comics", a.archive.Root(), reg.Len())
	return a, nil
}

// openHashes opens the hash database and a cache service over it. The
// caller must close the store to release badger's directory lock.
func openHashes() (*hashstore.Store, *dedup.CacheService, hasher.Hasher, error) {
	h, err := hasher.FromConfig(cfg.Hashes.Algorithm)
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := hashstore.Open(hashstore.Options{Path: cfg.Hashes.DBPath, ArchiveRoot: cfg.Archive.Root})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening hash database: %w", err)
	}
	return store, dedup.NewCacheService(store, h), h, nil
}

func (a *app) Close() error {
	if a.hashes != nil {
		return a.hashes.Close()
	}
	return nil
}

func (a *app) resolver() *navigation.Resolver {
	return navigation.NewResolver(a.registry, a.archive)
}

// comic resolves a comic argument against the registry.
func (a *app) comic(ref string) (types.Comic, error) {
	c, err := a.registry.Find(ref)
	if errors.Is(err, registry.ErrComicNotFound) && a.registry.Len() == 0 {
		return c, fmt.Errorf("%w (registry %s is empty)", err, cfg.Archive.Registry)
	}
	return c, err
}

// comics resolves an optional comic argument; none means every comic.
func (a *app) comics(args []string) ([]types.Comic, error) {
	if len(args) == 0 {
		return a.registry.All(), nil
	}
	c, err := a.comic(args[0])
	if err != nil {
		return nil, err
	}
	return []types.Comic{c}, nil
}

// parseDate parses a yyyy-MM-dd argument; "today" is accepted.
func parseDate(s string) (time.Time, error) {
	if s == "today" {
		return types.Day(time.Now()), nil
	}
	return types.ParseDate(s)
}
