package http

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPTransport owns the HTTP server: it mounts the dispatcher behind
// the middleware chain, serves /health and /metrics beside it, and
// handles graceful shutdown.
type HTTPTransport struct {
	dispatcher *Dispatcher
	server     *http.Server

	addr         string
	certFile     string
	keyFile      string
	logger       *slog.Logger
	checks       map[string]Pinger
	sessionCount func() int
	metrics      *Metrics
}

// Option is a functional option for configuring HTTPTransport.
type Option func(*HTTPTransport)

// WithAddr sets the listen address. Default is "127.0.0.1:8080".
func WithAddr(addr string) Option {
	return func(t *HTTPTransport) {
		t.addr = addr
	}
}

// WithTLS enables TLS with the provided certificate and key files.
func WithTLS(certFile, keyFile string) Option {
	return func(t *HTTPTransport) {
		t.certFile = certFile
		t.keyFile = keyFile
	}
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *HTTPTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithHealthCheck adds a named backend to the /health report.
func WithHealthCheck(name string, p Pinger) Option {
	return func(t *HTTPTransport) {
		t.checks[name] = p
	}
}

// WithSessionCount exposes the live session count as a gauge. Only
// counting stores (the in-memory backend) can provide it.
func WithSessionCount(count func() int) Option {
	return func(t *HTTPTransport) {
		t.sessionCount = count
	}
}

// NewHTTPTransport creates the transport around a configured dispatcher.
func NewHTTPTransport(dispatcher *Dispatcher, opts ...Option) *HTTPTransport {
	t := &HTTPTransport{
		dispatcher: dispatcher,
		addr:       "127.0.0.1:8080",
		logger:     slog.Default(),
		checks:     make(map[string]Pinger),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Start begins serving and blocks until the context is cancelled or the
// server fails.
func (t *HTTPTransport) Start(ctx context.Context) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t.metrics = NewMetrics(reg)
	t.dispatcher.metrics = t.metrics
	if t.sessionCount != nil {
		RegisterSessionGauge(reg, t.sessionCount)
	}

	// Middleware order, outermost first: metrics captures the full
	// duration, request id must exist before logging.
	var apiHandler http.Handler = t.dispatcher
	apiHandler = LoggingMiddleware(t.logger)(apiHandler)
	apiHandler = RequestIDMiddleware(apiHandler)
	apiHandler = MetricsMiddleware(t.metrics)(apiHandler)

	mux := http.NewServeMux()
	mux.Handle("/health", healthHandler(t.checks))
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
	}))
	mux.Handle("/favicon.ico", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.Handle("/", apiHandler)

	t.server = &http.Server{
		Addr:    t.addr,
		Handler: mux,
	}
	if t.certFile != "" && t.keyFile != "" {
		t.server.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if t.certFile != "" && t.keyFile != "" {
			t.logger.Info("starting HTTPS server", "addr", t.addr)
			err = t.server.ListenAndServeTLS(t.certFile, t.keyFile)
		} else {
			t.logger.Info("starting HTTP server", "addr", t.addr)
			err = t.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		t.logger.Info("context cancelled, shutting down HTTP server")
		return t.shutdown()
	case err := <-errCh:
		return err
	}
}

// shutdown drains in-flight requests before closing the server.
func (t *HTTPTransport) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Error("error during server shutdown", "error", err)
		return err
	}

	t.logger.Info("HTTP server shutdown complete")
	return nil
}

// Close gracefully shuts down the transport.
func (t *HTTPTransport) Close() error {
	if t.server == nil {
		return nil
	}
	return t.shutdown()
}
