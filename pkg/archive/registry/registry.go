// Package registry loads the list of archived comics from a YAML file.
//
// Example file:
//
//	comics:
//	  - id: 1
//	    name: Adam At Home
//	    source: gocomics
//	    source_identifier: adamathome
//	    publication_days: [monday, tuesday, wednesday, thursday, friday, saturday]
//	    oldest: 2017-01-02
//	  - id: 2
//	    name: Retired Strip
//	    active: false
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/stripvault/pkg/archive/types"
)

// ErrComicNotFound is returned when no comic matches an ID or name.
var ErrComicNotFound = errors.New("comic not found")

type fileComic struct {
	ID               int      `yaml:"id"`
	Name             string   `yaml:"name"`
	Source           string   `yaml:"source"`
	SourceIdentifier string   `yaml:"source_identifier"`
	PublicationDays  []string `yaml:"publication_days"`
	Active           *bool    `yaml:"active"`
	Oldest           string   `yaml:"oldest"`
}

type file struct {
	Comics []fileComic `yaml:"comics"`
}

// Registry is an immutable, ID-ordered set of comics.
type Registry struct {
	comics []types.Comic
	byID   map[int]int
}

// New builds a registry from comics. IDs must be unique.
func New(comics ...types.Comic) (*Registry, error) {
	r := &Registry{byID: make(map[int]int, len(comics))}
	sorted := append([]types.Comic(nil), comics...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for i, c := range sorted {
		if _, dup := r.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate comic id %d", c.ID)
		}
		r.byID[c.ID] = i
	}
	r.comics = sorted
	return r, nil
}

// Load reads a registry file. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New()
	}
	if err != nil {
		return nil, fmt.Errorf("reading comic registry: %w", err)
	}
	return Parse(data)
}

// Parse decodes registry YAML.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing comic registry: %w", err)
	}

	comics := make([]types.Comic, 0, len(f.Comics))
	for i, fc := range f.Comics {
		c, err := fc.toComic()
		if err != nil {
			return nil, fmt.Errorf("comic #%d (%s): %w", i+1, fc.Name, err)
		}
		comics = append(comics, c)
	}
	return New(comics...)
}

func (fc fileComic) toComic() (types.Comic, error) {
	if fc.ID <= 0 {
		return types.Comic{}, errors.New("id must be positive")
	}

	c := types.Comic{
		ID:               fc.ID,
		Name:             fc.Name,
		Source:           fc.Source,
		SourceIdentifier: fc.SourceIdentifier,
		Active:           fc.Active,
	}

	for _, d := range fc.PublicationDays {
		wd, err := ParseWeekday(d)
		if err != nil {
			return types.Comic{}, err
		}
		c.PublicationDays = append(c.PublicationDays, wd)
	}

	if fc.Oldest != "" {
		oldest, err := types.ParseDate(fc.Oldest)
		if err != nil {
			return types.Comic{}, err
		}
		c.Oldest = oldest
	}
	return c, nil
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday parses a weekday name or three-letter abbreviation.
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", s)
	}
	return wd, nil
}

// All returns every comic ordered by ID.
func (r *Registry) All() []types.Comic {
	return append([]types.Comic(nil), r.comics...)
}

// Len returns the number of comics.
func (r *Registry) Len() int {
	return len(r.comics)
}

// Get returns the comic with id.
func (r *Registry) Get(id int) (types.Comic, bool) {
	i, ok := r.byID[id]
	if !ok {
		return types.Comic{}, false
	}
	return r.comics[i], true
}

// Find resolves a CLI argument: a numeric ID, a name (case-insensitive),
// or an archive directory name.
func (r *Registry) Find(ref string) (types.Comic, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		if c, ok := r.Get(id); ok {
			return c, nil
		}
	}
	for _, c := range r.comics {
		if strings.EqualFold(c.Name, ref) || strings.EqualFold(c.DirName(), ref) {
			return c, nil
		}
	}
	return types.Comic{}, fmt.Errorf("%w: %s", ErrComicNotFound, ref)
}

// ByDirName returns the comic archived under dir.
func (r *Registry) ByDirName(dir string) (types.Comic, bool) {
	for _, c := range r.comics {
		if c.DirName() == dir {
			return c, true
		}
	}
	return types.Comic{}, false
}
