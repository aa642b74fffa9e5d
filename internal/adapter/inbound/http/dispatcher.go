package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/canopy-web/canopy/internal/domain/cors"
	"github.com/canopy-web/canopy/internal/domain/httperr"
	"github.com/canopy-web/canopy/internal/domain/route"
	"github.com/canopy-web/canopy/internal/domain/session"
)

// DefaultCookieName is the session cookie name when none is configured.
const DefaultCookieName = "session_id"

// defaultFinalizeTimeout bounds session persistence after the handler
// returns. Finalization runs detached from the request context so a
// client disconnect cannot abort it, but it must not hang either.
const defaultFinalizeTimeout = 5 * time.Second

// Dispatcher runs every request through the fixed pipeline: session
// resolution, CORS enforcement, authorization, parsing, handler
// invocation, response formation, and session finalization. The step
// order never varies; in particular authorization always precedes body
// parsing, and finalization always runs once a session was resolved.
type Dispatcher struct {
	registry *route.Registry
	sessions session.Store
	rules    *cors.RuleSet

	cookieName      string
	handlerTimeout  time.Duration
	finalizeTimeout time.Duration
	logger          *slog.Logger
	metrics         *Metrics
	devMode         bool
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCORS installs the CORS rule set. Without it no rule ever matches
// and no policy headers are emitted.
func WithCORS(rules *cors.RuleSet) DispatcherOption {
	return func(d *Dispatcher) { d.rules = rules }
}

// WithCookieName overrides the session cookie name.
func WithCookieName(name string) DispatcherOption {
	return func(d *Dispatcher) {
		if name != "" {
			d.cookieName = name
		}
	}
}

// WithHandlerTimeout bounds handler execution. Zero disables the bound.
func WithHandlerTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.handlerTimeout = timeout }
}

// WithDispatchLogger sets the pipeline logger.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics installs the pipeline metrics.
func WithMetrics(m *Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithDevMode includes underlying error details in error bodies.
// Never enable in production.
func WithDevMode(enabled bool) DispatcherOption {
	return func(d *Dispatcher) { d.devMode = enabled }
}

// NewDispatcher creates a dispatcher over a frozen registry and a
// session store.
func NewDispatcher(registry *route.Registry, sessions session.Store, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry:        registry,
		sessions:        sessions,
		cookieName:      DefaultCookieName,
		finalizeTimeout: defaultFinalizeTimeout,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	var rule *cors.Rule
	if d.rules != nil {
		rule = d.rules.Find(path)
	}

	// Preflight never resolves a session and never reaches a handler.
	if r.Method == http.MethodOptions {
		d.preflight(w, rule)
		return
	}

	rt, err := d.registry.Resolve(r.Method, path)
	if err != nil {
		d.writeError(w, rule, httperr.NotFound())
		return
	}

	sess, err := d.sessions.Get(r.Context(), d.cookieValue(r))
	if err != nil {
		// Resolution failed before any session state existed; the
		// client's cookie stays untouched for retry.
		d.writeError(w, rule, httperr.StoreUnavailable(err))
		return
	}

	herr := d.guard(rt, rule, r.Method, sess)

	var result any
	if herr == nil {
		data, perr := parseRequest(rt.Parse, r)
		if perr != nil {
			herr = httperr.From(perr)
		} else {
			result, err = d.invoke(r.Context(), rt, &route.Request{Data: data, Session: sess, HTTP: r})
			if err != nil {
				if !httperr.IsRecognized(err) {
					d.logger.Error("handler failed",
						"method", r.Method, "path", path, "error", err,
						"request_id", RequestIDFromContext(r.Context()))
				}
				herr = httperr.From(err)
			}
		}
	}

	cookie, ferr := d.finalize(r.Context(), sess)
	if ferr != nil {
		// A finalization failure outranks whatever the handler produced.
		herr = ferr
	}
	if cookie != nil {
		http.SetCookie(w, cookie)
	}

	if herr != nil {
		d.writeError(w, rule, herr)
		return
	}
	d.writeResult(w, rule, result)
}

// guard runs the CORS method check and the authorization check, in that
// order, before any request body is read.
func (d *Dispatcher) guard(rt *route.Route, rule *cors.Rule, method string, sess *session.Session) *httperr.Error {
	if rule != nil && !rule.AllowsMethod(method) {
		return httperr.MethodNotAllowed(method)
	}
	if !rt.RequiresAuth() {
		return nil
	}

	ref, ok := sess.User()
	if !ok {
		d.countDenial("unauthenticated")
		return httperr.Unauthorized("")
	}
	if !rt.Auth.Allows(ref.Roles) {
		d.countDenial("permission")
		return httperr.PermissionDenied()
	}
	return nil
}

// invoke runs the handler, optionally under a deadline, and converts a
// panic into an error so the pipeline always finalizes the session.
func (d *Dispatcher) invoke(ctx context.Context, rt *route.Route, req *route.Request) (result any, err error) {
	if d.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error("handler panicked",
				"method", rt.Method, "path", rt.Path, "panic", rec)
			result = nil
			err = httperr.Internal(fmt.Errorf("handler panic: %v", rec))
		}
	}()

	result, err = rt.Handler(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = httperr.Internal(ctx.Err())
	}
	return result, err
}

// finalize persists session changes after the handler, regardless of
// its outcome. Removal wins over dirtiness. The returned cookie, when
// non-nil, must be emitted with the response; a nil cookie with a nil
// error means the client's cookie state is already correct.
func (d *Dispatcher) finalize(reqCtx context.Context, sess *session.Session) (*http.Cookie, *httperr.Error) {
	if !sess.PendingRemoval() && !sess.Dirty() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(reqCtx), d.finalizeTimeout)
	defer cancel()

	if sess.PendingRemoval() {
		found, err := d.sessions.Remove(ctx, sess)
		if err != nil {
			return nil, httperr.StoreUnavailable(err)
		}
		if !found {
			// Racing logout: someone else removed the session first.
			// The cookie is left alone; the id no longer resolves.
			return nil, httperr.Unauthorized("Session does not found")
		}
		return d.clearCookie(), nil
	}

	if err := d.sessions.Set(ctx, sess); err != nil {
		return nil, httperr.StoreUnavailable(err)
	}
	return d.sessionCookie(sess.ID(), sess.ExpiresAt()), nil
}

// preflight answers OPTIONS: the matched rule's policy headers plus the
// Allow list, or the permissive default when no rule governs the path.
func (d *Dispatcher) preflight(w http.ResponseWriter, rule *cors.Rule) {
	allow := cors.DefaultAllowValue
	if rule != nil {
		applyRuleHeaders(w.Header(), rule)
		allow = rule.AllowValue()
	}
	w.Header().Set("Allow", allow)
	w.WriteHeader(http.StatusOK)
}

func (d *Dispatcher) cookieValue(r *http.Request) string {
	c, err := r.Cookie(d.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (d *Dispatcher) sessionCookie(id string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     d.cookieName,
		Value:    id,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (d *Dispatcher) clearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     d.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func (d *Dispatcher) countDenial(reason string) {
	if d.metrics != nil {
		d.metrics.AuthDenials.WithLabelValues(reason).Inc()
	}
}

// Compile-time interface verification.
var _ http.Handler = (*Dispatcher)(nil)
