package service

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/canopy-web/canopy/internal/domain/route"
)

// emptyListing is shown when the registry holds no visible routes.
const emptyListing = "No one API method found. Please add some and try again."

// IntrospectionRoute builds the GET listing route mounted under base.
// It renders the registry as HTML, one line per route, skipping the
// system routes (path elements starting with "__"). The closure reads
// the registry lazily, so routes registered after this one still show.
func IntrospectionRoute(base string, registry *route.Registry) route.Route {
	return route.Route{
		Method:  "GET",
		Path:    base + "/__introspect__",
		Handler: introspectionHandler(registry),
		Parse:   route.ParseQuery,
		Doc:     "List the registered API methods.",
	}
}

func introspectionHandler(registry *route.Registry) route.HandlerFunc {
	return func(_ context.Context, _ *route.Request) (any, error) {
		var b strings.Builder
		b.WriteString("<html><body><h1>API methods</h1><ul>")

		visible := 0
		for _, r := range registry.Routes() {
			if hiddenPath(r.Path) {
				continue
			}
			visible++
			fmt.Fprintf(&b, "<li><b>%s</b> %s -- %s</li>",
				html.EscapeString(r.Method),
				html.EscapeString(r.Path),
				html.EscapeString(docSummary(r.Doc)),
			)
		}
		if visible == 0 {
			b.Reset()
			b.WriteString("<html><body>")
			b.WriteString(emptyListing)
			b.WriteString("</body></html>")
		} else {
			b.WriteString("</ul></body></html>")
		}

		return &route.Response{
			Status:      http.StatusOK,
			ContentType: "text/html; charset=utf-8",
			Body:        []byte(b.String()),
		}, nil
	}
}

// hiddenPath reports whether any path element is system-reserved.
func hiddenPath(path string) bool {
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, "__") {
			return true
		}
	}
	return false
}

// docSummary keeps the first line of the route doc.
func docSummary(doc string) string {
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		doc = doc[:i]
	}
	return strings.TrimSpace(doc)
}
