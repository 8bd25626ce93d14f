package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Bitlatte/pageserve/internal/model"
)

type fakeCache struct {
	mu       sync.Mutex
	pages    map[string]model.Page
	rendered []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{pages: make(map[string]model.Page)}
}

func (c *fakeCache) Exists(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pages[name]
	return ok
}

func (c *fakeCache) Render(name string) (model.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := model.Page{Name: name, Title: name}
	c.pages[name] = p
	c.rendered = append(c.rendered, name)
	return p, nil
}

func (c *fakeCache) renders() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rendered...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPageName(t *testing.T) {
	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{path: "/res/pages/home.md", want: "home", wantOK: true},
		{path: "/res/pages/not_found.md", want: "not_found", wantOK: true},
		{path: "/res/pages/notes.txt"},
		{path: "/res/pages/.home.md.swp"},
		{path: "/res/pages/.md"},
	}

	for _, tt := range tests {
		got, ok := pageName(tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("pageName(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestHandleDebouncesAndSkipsCached(t *testing.T) {
	cache := newFakeCache()
	w := New("/res/pages", cache, nil)
	w.debounce = 20 * time.Millisecond

	w.handle(fsnotify.Event{Name: "/res/pages/new.md", Op: fsnotify.Create})
	w.handle(fsnotify.Event{Name: "/res/pages/new.md", Op: fsnotify.Write})
	w.handle(fsnotify.Event{Name: "/res/pages/new.md", Op: fsnotify.Chmod})
	w.handle(fsnotify.Event{Name: "/res/pages/readme.txt", Op: fsnotify.Create})

	waitFor(t, func() bool { return cache.Exists("new") })
	time.Sleep(50 * time.Millisecond)

	w.handle(fsnotify.Event{Name: "/res/pages/new.md", Op: fsnotify.Write})
	time.Sleep(100 * time.Millisecond)

	if got := cache.renders(); len(got) != 1 || got[0] != "new" {
		t.Errorf("renders = %v, want [new]", got)
	}
}

func TestRunPreRendersNewPages(t *testing.T) {
	dir := t.TempDir()
	cache := newFakeCache()
	w := New(dir, cache, nil)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before creating files.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "fresh.md"), []byte("# Fresh"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return cache.Exists("fresh") })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunMissingDir(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "nope"), newFakeCache(), nil)
	if err := w.Run(context.Background()); err == nil {
		t.Error("Run() error = nil for missing directory")
	}
}
