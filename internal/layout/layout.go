// Package layout loads the site template and substitutes rendered pages
// into it.
package layout

import (
	"errors"
	"fmt"
	"html"
	"io/fs"
	"strings"

	"github.com/Bitlatte/pageserve/internal/model"
)

const (
	TitleMarker   = "%{TITLE}%"
	ContentMarker = "%{CONTENT}%"
)

// ErrMissingMarker is returned when a template lacks one of the markers.
var ErrMissingMarker = errors.New("template marker missing")

// Template is a parsed site template. Only the first occurrence of each
// marker in the template text is substituted; marker literals produced by
// the substituted values are left alone.
type Template struct {
	parts      [3]string
	titleFirst bool
}

// Parse splits src around its title and content markers.
func Parse(src string) (*Template, error) {
	ti := strings.Index(src, TitleMarker)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingMarker, TitleMarker)
	}
	head, tail := src[:ti], src[ti+len(TitleMarker):]

	// The content marker is searched for in what remains of the template
	// once the title marker is consumed, earliest position first.
	if ci := strings.Index(head, ContentMarker); ci >= 0 {
		return &Template{
			parts: [3]string{head[:ci], head[ci+len(ContentMarker):], tail},
		}, nil
	}
	if ci := strings.Index(tail, ContentMarker); ci >= 0 {
		return &Template{
			parts:      [3]string{head, tail[:ci], tail[ci+len(ContentMarker):]},
			titleFirst: true,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingMarker, ContentMarker)
}

// Load reads and parses the template file name from fsys.
func Load(fsys fs.FS, name string) (*Template, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	t, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", name, err)
	}
	return t, nil
}

// Execute returns the template with p's title and body substituted.
func (t *Template) Execute(p model.Page) string {
	title := html.EscapeString(p.Title)

	var b strings.Builder
	b.Grow(len(t.parts[0]) + len(t.parts[1]) + len(t.parts[2]) + len(title) + len(p.Body))
	b.WriteString(t.parts[0])
	if t.titleFirst {
		b.WriteString(title)
		b.WriteString(t.parts[1])
		b.WriteString(p.Body)
	} else {
		b.WriteString(p.Body)
		b.WriteString(t.parts[1])
		b.WriteString(title)
	}
	b.WriteString(t.parts[2])
	return b.String()
}

// PageSource resolves page names to pages.
type PageSource interface {
	Resolve(name string) (model.Page, bool)
}

// Renderer builds complete HTML documents for named pages.
type Renderer struct {
	tmpl  *Template
	pages PageSource
}

// NewRenderer returns a Renderer filling tmpl with pages from src.
func NewRenderer(tmpl *Template, src PageSource) *Renderer {
	return &Renderer{tmpl: tmpl, pages: src}
}

// Build returns the HTML document for the page called name.
func (r *Renderer) Build(name string) string {
	doc, _ := r.BuildPage(name)
	return doc
}

// BuildPage is Build, and additionally reports whether the page was found
// or the fallback page was used in its place.
func (r *Renderer) BuildPage(name string) (string, bool) {
	p, found := r.pages.Resolve(name)
	return r.tmpl.Execute(p), found
}
