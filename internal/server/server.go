package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"
)

// Server wraps an *http.Server to provide start/shutdown lifecycle.
type Server struct {
	httpServer *http.Server
}

// Extracted constants to avoid magic numbers and centralize tuning knobs.
const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second

	// A day write may log in, read, write and retry once after a 401.
	upstreamCallsPerRequest = 5
)

// writeTimeoutFor leaves room for the upstream calls a single request can make.
func writeTimeoutFor(upstream time.Duration) time.Duration {
	if upstream <= 0 {
		return writeTimeout
	}
	return writeTimeout + upstreamCallsPerRequest*upstream
}

// newHTTPServer builds a configured *http.Server for the given address and handler.
// Request contexts derive from ctx, so cancelling it aborts in-flight upstream calls.
func newHTTPServer(ctx context.Context, addr string, handler http.Handler, upstream time.Duration) *http.Server {
	return &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              addr,
		Handler:           handler,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeoutFor(upstream),
		IdleTimeout:       idleTimeout,
	}
}

// normalizeAddr ensures the provided port is a valid address (accepts "8080" or ":8080").
func normalizeAddr(port string) string {
	if port == "" {
		// Leave defaulting to callers, to avoid duplicating policy here.
		return ""
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// Run starts the HTTP server on the given port. upstream is the per-call
// timeout of the Hive and identity provider clients.
func (s *Server) Run(ctx context.Context, port string, handler http.Handler, upstream time.Duration) error {
	s.httpServer = newHTTPServer(ctx, normalizeAddr(port), handler, upstream)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, allowing in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
