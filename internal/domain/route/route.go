// Package route defines the declarative route model: a (method, path)
// pair bound to a handler, a parsing mode, and access metadata. The
// registry is built once at service construction and is read-only while
// requests are served.
package route

import (
	"context"
	"net/http"

	"github.com/canopy-web/canopy/internal/domain/auth"
	"github.com/canopy-web/canopy/internal/domain/session"
)

// ParseMode selects how the request body is turned into the data bag.
// A small closed set of strategies, chosen per route at registration.
type ParseMode int

const (
	// ParseJSON decodes a JSON object body; an empty body yields an
	// empty bag.
	ParseJSON ParseMode = iota
	// ParseForm decodes urlencoded or multipart form fields.
	ParseForm
	// ParseQuery takes values from the URL query string only.
	ParseQuery
	// ParseRaw passes the body through untouched for the handler to
	// stream; nothing is read up front.
	ParseRaw
	// ParseMultipartFiles exposes multipart file part metadata without
	// buffering file contents into the bag.
	ParseMultipartFiles
)

// String names the mode for logs and the introspection listing.
func (m ParseMode) String() string {
	switch m {
	case ParseJSON:
		return "json"
	case ParseForm:
		return "form"
	case ParseQuery:
		return "query"
	case ParseRaw:
		return "raw"
	case ParseMultipartFiles:
		return "multipart-files"
	default:
		return "unknown"
	}
}

// Data is the normalized request data bag handed to handlers.
type Data map[string]any

// String returns the value under key as a string, or "" when absent or
// not a string.
func (d Data) String(key string) string {
	v, _ := d[key].(string)
	return v
}

// Has reports whether the key is present.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Request is the per-request context a handler receives: the parsed
// data bag, the request-scoped session copy, and the raw transport
// request for headers, streaming bodies, and file parts.
type Request struct {
	Data    Data
	Session *session.Session
	HTTP    *http.Request
}

// HandlerFunc is the uniform handler contract. The returned value is
// serialized as JSON unless it is a *Response, which passes through
// unmodified. Failures are signaled with recognized httperr errors or
// any other error (translated to a generic 500).
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

// Response is a fully-formed handler response that bypasses JSON
// serialization: raw body bytes plus content type and optional headers.
type Response struct {
	Status      int
	ContentType string
	Header      http.Header
	Body        []byte
}

// Route binds a handler to its dispatch metadata. Immutable once
// registered.
type Route struct {
	// Method is the HTTP method, uppercase.
	Method string
	// Path is the full request path, unique per method.
	Path string
	// Handler is invoked after session, CORS, auth, and parsing.
	Handler HandlerFunc
	// Auth is nil for public routes; otherwise the role requirement.
	Auth *auth.Descriptor
	// Parse selects the request parsing strategy.
	Parse ParseMode
	// Doc is a one-line summary shown by the introspection listing.
	Doc string
}

// RequiresAuth reports whether the route demands an authenticated user.
func (r *Route) RequiresAuth() bool {
	return r.Auth != nil
}
