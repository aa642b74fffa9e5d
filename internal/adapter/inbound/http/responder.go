package http

import (
	"encoding/json"
	"net/http"

	"github.com/canopy-web/canopy/internal/domain/cors"
	"github.com/canopy-web/canopy/internal/domain/httperr"
	"github.com/canopy-web/canopy/internal/domain/route"
)

const jsonContentType = "application/json; charset=utf-8"

// errorBody is the wire shape of every pipeline failure.
type errorBody struct {
	Error string `json:"error"`
	// Detail carries the underlying cause, dev mode only.
	Detail string `json:"detail,omitempty"`
}

// applyRuleHeaders stamps the matched rule's policy headers. Every
// response on a governed path carries them, success or failure.
func applyRuleHeaders(h http.Header, rule *cors.Rule) {
	for name, value := range rule.Headers() {
		h.Set(name, value)
	}
}

// writeResult emits a successful handler result: a *route.Response
// passes through as-is, anything else is serialized as JSON.
func (d *Dispatcher) writeResult(w http.ResponseWriter, rule *cors.Rule, result any) {
	if rule != nil {
		applyRuleHeaders(w.Header(), rule)
	}

	if resp, ok := result.(*route.Response); ok {
		for name, values := range resp.Header {
			for _, v := range values {
				w.Header().Add(name, v)
			}
		}
		contentType := resp.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)

		status := resp.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write(resp.Body)
		return
	}

	d.writeJSON(w, http.StatusOK, result)
}

// writeError translates a pipeline failure to the wire: the recognized
// status with the reason in the JSON body. Underlying causes stay in
// the logs unless dev mode is on.
func (d *Dispatcher) writeError(w http.ResponseWriter, rule *cors.Rule, herr *httperr.Error) {
	if rule != nil {
		applyRuleHeaders(w.Header(), rule)
	}

	body := errorBody{Error: herr.Reason}
	if d.devMode && herr.Err != nil {
		body.Detail = herr.Err.Error()
	}
	d.writeJSON(w, herr.Status, body)
}

func (d *Dispatcher) writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("failed to encode response", "error", err)
		w.Header().Set("Content-Type", jsonContentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal Server Error"}`))
		return
	}

	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
