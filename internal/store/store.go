// Package store implements the page store: a lazy, write-once, in-memory
// cache from page name to rendered page.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Bitlatte/pageserve/internal/markdown"
	"github.com/Bitlatte/pageserve/internal/model"
)

// DefaultFallback is the page served in place of pages that do not exist.
const DefaultFallback = "not_found"

// ErrNotFound is returned by Render when a page has no readable source.
var ErrNotFound = errors.New("page not found")

// Converter turns markdown source into an HTML document.
type Converter interface {
	Convert(src []byte) (markdown.Document, error)
}

// Store caches rendered pages read from a directory of <name>.md files.
//
// Once a name is present it is never re-read or re-rendered. Concurrent
// first requests for the same name share a single render.
type Store struct {
	pages    fs.FS
	conv     Converter
	fallback string
	logger   *slog.Logger

	mu    sync.RWMutex
	cache map[string]model.Page
	group singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithFallback sets the page used for missing pages. Defaults to "not_found".
func WithFallback(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.fallback = name
		}
	}
}

// WithLogger sets the logger used to report render failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty Store reading markdown sources from pages.
func New(pages fs.FS, conv Converter, opts ...Option) *Store {
	s := &Store{
		pages:    pages,
		conv:     conv,
		fallback: DefaultFallback,
		logger:   slog.New(slog.DiscardHandler),
		cache:    make(map[string]model.Page),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists reports whether name is already cached.
func (s *Store) Exists(name string) bool {
	_, ok := s.lookup(name)
	return ok
}

// Render reads, converts and caches the page called name. If the page was
// cached in the meantime the cached page is returned unchanged.
func (s *Store) Render(name string) (model.Page, error) {
	if !ValidName(name) {
		return model.Page{}, fmt.Errorf("%w: invalid page name %q", ErrNotFound, name)
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		if p, ok := s.lookup(name); ok {
			return p, nil
		}

		src, err := fs.ReadFile(s.pages, name+".md")
		if err != nil {
			return model.Page{}, fmt.Errorf("%w: %s: %v", ErrNotFound, name, err)
		}

		doc, err := s.conv.Convert(src)
		if err != nil {
			return model.Page{}, fmt.Errorf("failed to convert page %s: %w", name, err)
		}

		title := doc.Title
		if title == "" {
			title = name
		}

		return s.insert(model.Page{Name: name, Title: title, Body: doc.HTML}), nil
	})
	if err != nil {
		return model.Page{}, err
	}
	return v.(model.Page), nil
}

// Get returns the page called name, rendering it on first access. Missing
// pages resolve to the fallback page, and to model.MissingPage when the
// fallback cannot be rendered either.
func (s *Store) Get(name string) model.Page {
	p, _ := s.Resolve(name)
	return p
}

// Resolve is Get, and additionally reports whether name itself was found.
func (s *Store) Resolve(name string) (model.Page, bool) {
	if p, ok := s.lookup(name); ok {
		return p, true
	}

	p, err := s.Render(name)
	if err == nil {
		return p, true
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn("page render failed", "page", name, "error", err)
	}

	if name != s.fallback {
		if p, ok := s.lookup(s.fallback); ok {
			return p, false
		}
		p, ferr := s.Render(s.fallback)
		if ferr == nil {
			return p, false
		}
		err = ferr
	}

	s.logger.Error("fallback page unavailable", "page", name, "fallback", s.fallback, "error", err)
	return model.MissingPage(s.fallback), false
}

// Len returns the number of cached pages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Names returns the cached page names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.cache))
	for name := range s.cache {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

func (s *Store) lookup(name string) (model.Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.cache[name]
	return p, ok
}

// insert stores p unless its name is already present, and returns whichever
// page ends up cached.
func (s *Store) insert(p model.Page) model.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[p.Name]; ok {
		return existing
	}
	s.cache[p.Name] = p
	return p
}

// ValidName reports whether name can identify a page: a single non-empty
// path segment without the characters the router excludes.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, ":/?#\\\x00")
}
