// Package http is the inbound transport adapter: it turns declared
// routes into live endpoints by running every request through the
// dispatch pipeline (session resolution, CORS, authorization, parsing,
// handler invocation, response formation, session finalization).
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/canopy-web/canopy/internal/domain/httperr"
	"github.com/canopy-web/canopy/internal/domain/route"
)

// maxFormMemory bounds the in-memory part of multipart parsing; larger
// file parts spill to disk per net/http semantics.
const maxFormMemory = 32 << 20 // 32 MiB

// FilesKey is the bag key under which ParseMultipartFiles exposes file
// part metadata as a []any of maps with field, filename, size, and
// content_type entries. File contents stay on the raw request.
const FilesKey = "_files"

// parseRequest converts the transport request into the normalized data
// bag per the route's declared parsing mode. An empty body is an empty
// bag, never an error; malformed input is a BadRequest.
func parseRequest(mode route.ParseMode, r *http.Request) (route.Data, error) {
	switch mode {
	case route.ParseJSON:
		return parseJSONBody(r)
	case route.ParseForm:
		return parseFormBody(r)
	case route.ParseQuery:
		return parseQueryString(r), nil
	case route.ParseRaw:
		// The body passes through untouched for the handler to stream.
		return route.Data{}, nil
	case route.ParseMultipartFiles:
		return parseMultipartFiles(r)
	default:
		return nil, fmt.Errorf("unknown parse mode %d", mode)
	}
}

func parseJSONBody(r *http.Request) (route.Data, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, httperr.BadRequest("Failed to read request body")
	}
	if len(body) == 0 {
		return route.Data{}, nil
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, httperr.BadRequest("Invalid JSON body")
	}

	data := make(route.Data, len(decoded))
	for k, v := range decoded {
		data[k] = v
	}
	return data, nil
}

func parseFormBody(r *http.Request) (route.Data, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType := contentType
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = mt
		}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			if errors.Is(err, http.ErrNotMultipart) {
				return route.Data{}, nil
			}
			return nil, httperr.BadRequest("Invalid multipart form body")
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, httperr.BadRequest("Invalid form body")
	}

	data := make(route.Data, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}
	return data, nil
}

func parseQueryString(r *http.Request) route.Data {
	query := r.URL.Query()
	data := make(route.Data, len(query))
	for key, values := range query {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}
	return data
}

func parseMultipartFiles(r *http.Request) (route.Data, error) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		return nil, httperr.BadRequest("Invalid multipart form body")
	}

	data := route.Data{}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}

	var files []any
	for field, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			files = append(files, map[string]any{
				"field":        field,
				"filename":     fh.Filename,
				"size":         fh.Size,
				"content_type": fh.Header.Get("Content-Type"),
			})
		}
	}
	data[FilesKey] = files
	return data, nil
}
