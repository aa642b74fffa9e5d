package httperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFrom(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{
			name:       "recognized error passes through",
			err:        Unauthorized("Invalid password"),
			wantStatus: http.StatusUnauthorized,
			wantReason: "Invalid password",
		},
		{
			name:       "wrapped recognized error is found in chain",
			err:        fmt.Errorf("handler failed: %w", PermissionDenied()),
			wantStatus: http.StatusUnauthorized,
			wantReason: "Permission denied",
		},
		{
			name:       "unrecognized error becomes internal",
			err:        errors.New("nil pointer dereference"),
			wantStatus: http.StatusInternalServerError,
			wantReason: http.StatusText(http.StatusInternalServerError),
		},
		{
			name:       "store unavailable keeps 503",
			err:        StoreUnavailable(errors.New("dial tcp: connection refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantReason: "Session store unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			if got.Status != tt.wantStatus {
				t.Errorf("From() status = %d, want %d", got.Status, tt.wantStatus)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("From() reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("secret database path /var/lib/x")
	herr := Internal(cause)

	if herr.Reason != http.StatusText(http.StatusInternalServerError) {
		t.Errorf("Internal() reason = %q, must be generic", herr.Reason)
	}
	if !errors.Is(herr, cause) {
		t.Error("Internal() must keep the cause reachable for logging")
	}
}

func TestPermissionDeniedWireContract(t *testing.T) {
	herr := PermissionDenied()
	if herr.Status != http.StatusUnauthorized {
		t.Errorf("PermissionDenied() status = %d, want 401", herr.Status)
	}
	if herr.Reason != "Permission denied" {
		t.Errorf("PermissionDenied() reason = %q, want %q", herr.Reason, "Permission denied")
	}
}

func TestIsRecognized(t *testing.T) {
	if !IsRecognized(fmt.Errorf("wrap: %w", BadRequest("bad"))) {
		t.Error("IsRecognized() = false for wrapped *Error")
	}
	if IsRecognized(errors.New("plain")) {
		t.Error("IsRecognized() = true for plain error")
	}
}
