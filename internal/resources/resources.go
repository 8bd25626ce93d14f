// Package resources describes the layout of a resources directory:
//
//	<root>/template.html   site template
//	<root>/pages/<name>.md  markdown page sources
//	<root>/public/          static assets served under /public
package resources

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	TemplateFile = "template.html"
	PagesDir     = "pages"
	PublicDir    = "public"
)

// ErrInvalid is returned when a resources directory does not have the
// expected layout.
var ErrInvalid = errors.New("invalid resources directory")

// Dir is a validated resources directory.
type Dir struct {
	root string
	fsys fs.FS
}

// Open validates the resources directory at root.
func Open(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalid, root)
	}
	return New(root, os.DirFS(root))
}

// New validates fsys as a resources directory. root is only used to build
// on-disk paths and may be empty for in-memory file systems.
func New(root string, fsys fs.FS) (*Dir, error) {
	d := &Dir{root: root, fsys: fsys}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dir) validate() error {
	info, err := fs.Stat(d.fsys, TemplateFile)
	if err != nil {
		return fmt.Errorf("%w: template: %v", ErrInvalid, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalid, TemplateFile)
	}

	info, err = fs.Stat(d.fsys, PublicDir)
	if err != nil {
		return fmt.Errorf("%w: failed to mount static files: %v", ErrInvalid, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: failed to mount static files: %s is not a directory", ErrInvalid, PublicDir)
	}
	return nil
}

// FS returns the whole resources directory.
func (d *Dir) FS() fs.FS {
	return d.fsys
}

// Pages returns the page source directory. A missing pages directory yields
// a file system in which every page is absent.
func (d *Dir) Pages() fs.FS {
	return d.sub(PagesDir)
}

// Public returns the static asset directory.
func (d *Dir) Public() fs.FS {
	return d.sub(PublicDir)
}

// Path joins elem onto the on-disk root.
func (d *Dir) Path(elem ...string) string {
	return filepath.Join(append([]string{d.root}, elem...)...)
}

func (d *Dir) sub(dir string) fs.FS {
	sub, err := fs.Sub(d.fsys, dir)
	if err != nil {
		// Only reachable for invalid dir names, which are constants here.
		panic(err)
	}
	return sub
}
