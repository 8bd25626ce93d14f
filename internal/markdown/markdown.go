// Package markdown converts markdown page sources into HTML fragments and
// infers a document title along the way.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
	"gopkg.in/yaml.v2"
)

// Document is the result of converting one markdown source.
type Document struct {
	// Title is empty when no title could be inferred.
	Title string
	HTML  string
}

// frontMatter holds the keys we read from a YAML front matter block.
type frontMatter struct {
	Title string `yaml:"title"`
}

var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// Converter renders markdown with goldmark.
type Converter struct {
	md goldmark.Markdown
}

// New returns a Converter configured with GitHub flavoured markdown, heading
// IDs and hard wraps. Raw HTML in the source is passed through.
func New() *Converter {
	return &Converter{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithUnsafe(),
			),
		),
	}
}

// Convert renders src to HTML. The title is looked up, in order, in a YAML
// front matter "title" key, a pandoc style "% title" header, and the first
// level one heading.
func (c *Converter) Convert(src []byte) (Document, error) {
	var fm frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(src), &fm, yamlFormat)
	if err != nil {
		// Not valid front matter; render the whole thing as markdown.
		body = src
		fm = frontMatter{}
	}

	title := strings.TrimSpace(fm.Title)
	pandoc, body := pandocHeader(body)
	if title == "" {
		title = pandoc
	}

	doc := c.md.Parser().Parse(text.NewReader(body))
	if title == "" {
		title = firstHeading(doc, body)
	}

	var buf bytes.Buffer
	if err := c.md.Renderer().Render(&buf, body, doc); err != nil {
		return Document{}, fmt.Errorf("failed to render markdown: %w", err)
	}

	return Document{Title: title, HTML: buf.String()}, nil
}

// pandocHeader strips up to three leading lines starting with '%' (title,
// author, date) and returns the title line.
func pandocHeader(src []byte) (string, []byte) {
	if !bytes.HasPrefix(src, []byte("%")) {
		return "", src
	}

	var title string
	rest := src
	for i := 0; i < 3 && bytes.HasPrefix(rest, []byte("%")); i++ {
		line := rest
		if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
			line, rest = rest[:idx], rest[idx+1:]
		} else {
			rest = nil
		}
		if i == 0 {
			title = strings.TrimSpace(string(bytes.TrimPrefix(line, []byte("%"))))
		}
	}
	return title, rest
}

func firstHeading(doc ast.Node, src []byte) string {
	var title string
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if h, ok := n.(*ast.Heading); ok && h.Level == 1 {
			title = plainText(h, src)
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			value := t.Segment.Value(src)
			if t.Parent() == nil || t.Parent().Kind() != ast.KindCodeSpan {
				value = resolveText(value)
			}
			b.Write(value)
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.AutoLink:
			b.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// resolveText applies the backslash escapes and character references that
// the HTML renderer would resolve for the same text.
func resolveText(value []byte) []byte {
	value = util.UnescapePunctuations(value)
	value = util.ResolveNumericReferences(value)
	return util.ResolveEntityNames(value)
}
