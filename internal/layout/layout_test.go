package layout

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bitlatte/pageserve/internal/markdown"
	"github.com/Bitlatte/pageserve/internal/model"
	"github.com/Bitlatte/pageserve/internal/store"
)

const testTemplate = `<!doctype html>
<html><head><title>%{TITLE}%</title></head>
<body><main>%{CONTENT}%</main></body></html>
`

func TestParseMissingMarker(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{name: "empty", src: ""},
		{name: "no title", src: "<main>%{CONTENT}%</main>"},
		{name: "no content", src: "<title>%{TITLE}%</title>"},
		{name: "content only inside title marker", src: "%{TITLE}%{CONTENT}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			if !errors.Is(err, ErrMissingMarker) {
				t.Errorf("Parse() error = %v, want ErrMissingMarker", err)
			}
		})
	}
}

func TestExecute(t *testing.T) {
	tests := []struct {
		name string
		src  string
		page model.Page
		want string
	}{
		{
			name: "title before content",
			src:  "<t>%{TITLE}%</t><b>%{CONTENT}%</b>",
			page: model.Page{Title: "T", Body: "<p>B</p>"},
			want: "<t>T</t><b><p>B</p></b>",
		},
		{
			name: "content before title",
			src:  "<b>%{CONTENT}%</b><t>%{TITLE}%</t>",
			page: model.Page{Title: "T", Body: "B"},
			want: "<b>B</b><t>T</t>",
		},
		{
			name: "only first occurrences replaced",
			src:  "%{TITLE}% %{CONTENT}% %{TITLE}% %{CONTENT}%",
			page: model.Page{Title: "T", Body: "B"},
			want: "T B %{TITLE}% %{CONTENT}%",
		},
		{
			name: "markers in page survive",
			src:  "<t>%{TITLE}%</t><b>%{CONTENT}%</b>",
			page: model.Page{Title: "%{CONTENT}%", Body: "<p>%{TITLE}% %{CONTENT}%</p>"},
			want: "<t>%{CONTENT}%</t><b><p>%{TITLE}% %{CONTENT}%</p></b>",
		},
		{
			name: "title is escaped",
			src:  "<t>%{TITLE}%</t>%{CONTENT}%",
			page: model.Page{Title: "Fish & <Chips>", Body: ""},
			want: "<t>Fish &amp; &lt;Chips&gt;</t>",
		},
		{
			name: "adjacent markers",
			src:  "%{TITLE}%%{CONTENT}%",
			page: model.Page{Title: "T", Body: "B"},
			want: "TB",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.src)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := tmpl.Execute(tt.page); got != tt.want {
				t.Errorf("Execute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"template.html": {Data: []byte(testTemplate)},
		"broken.html":   {Data: []byte("<html>%{TITLE}%</html>")},
	}

	if _, err := Load(fsys, "template.html"); err != nil {
		t.Errorf("Load(template.html) error = %v", err)
	}
	if _, err := Load(fsys, "broken.html"); !errors.Is(err, ErrMissingMarker) {
		t.Errorf("Load(broken.html) error = %v, want ErrMissingMarker", err)
	}
	if _, err := Load(fsys, "missing.html"); err == nil {
		t.Error("Load(missing.html) error = nil")
	}
}

func TestLoadLargeTemplate(t *testing.T) {
	src := "<title>%{TITLE}%</title>" + strings.Repeat("<!-- padding -->", 1000) + "%{CONTENT}%<footer>end</footer>"
	tmpl, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got := tmpl.Execute(model.Page{Title: "T", Body: "B"})
	if !strings.HasSuffix(got, "B<footer>end</footer>") {
		t.Errorf("template truncated: ...%q", got[len(got)-40:])
	}
}

func TestRendererBuild(t *testing.T) {
	tmpl, err := Parse(testTemplate)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	pages := store.New(fstest.MapFS{
		"home.md":      {Data: []byte("# Welcome\nHello.")},
		"not_found.md": {Data: []byte("Page not found")},
	}, markdown.New())
	r := NewRenderer(tmpl, pages)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.Build("home")))
	if err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	if got := doc.Find("title").Text(); got != "Welcome" {
		t.Errorf("title = %q, want %q", got, "Welcome")
	}
	if got := doc.Find("main p").Text(); got != "Hello." {
		t.Errorf("body paragraph = %q, want %q", got, "Hello.")
	}

	missing, found := r.BuildPage("missing")
	if found {
		t.Error("BuildPage(missing) found = true")
	}
	if want := r.Build("not_found"); missing != want {
		t.Errorf("BuildPage(missing) = %q, want %q", missing, want)
	}
}
