package model

// Page is a rendered markdown page as held by the page store.
type Page struct {
	// Name is the cache key: the URL path segment, or "home" for the root.
	Name string
	// Title is taken from the markdown source when one can be inferred,
	// otherwise it is the page name.
	Title string
	// Body is the rendered HTML fragment substituted into the site template.
	Body string
}

// MissingPage is served when neither the requested page nor the configured
// fallback page can be rendered.
func MissingPage(name string) Page {
	return Page{
		Name:  name,
		Title: "Not Found",
		Body:  "<h1>Not Found</h1>\n<p>The page you requested does not exist.</p>\n",
	}
}
