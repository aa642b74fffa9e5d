package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is implemented by backends that can report their liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

const healthCheckTimeout = 2 * time.Second

// healthHandler reports overall service health: 200 when every named
// backend answers its ping, 503 otherwise, with per-check results in
// the body.
func healthHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
			} else {
				results[name] = "ok"
			}
		}

		body := map[string]any{"checks": results}
		if status == http.StatusOK {
			body["status"] = "ok"
		} else {
			body["status"] = "degraded"
		}

		w.Header().Set("Content-Type", jsonContentType)
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
