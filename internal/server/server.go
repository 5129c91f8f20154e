package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// DefaultHost is the interface the server binds to.
const DefaultHost = "localhost"

// Server serves a directory over HTTP on a local port.
type Server struct {
	root   string
	host   string
	port   int
	logger *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithPort sets the port. Zero lets the operating system pick a free port.
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithHost sets the bind host.
func WithHost(host string) Option {
	return func(s *Server) {
		s.host = host
	}
}

// WithLogger sets the logger used for lifecycle and request messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a Server for root. Nothing is bound until Listen.
func New(root string, opts ...Option) *Server {
	s := &Server{
		root: root,
		host: DefaultHost,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Listen binds the port. A port held by another process yields an error
// wrapping ErrPortInUse; there is no retry.
func (s *Server) Listen() error {
	info, err := os.Stat(s.root)
	if err != nil {
		return fmt.Errorf("failed to stat server root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootNotDir, s.root)
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s", ErrPortInUse, addr)
		}
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.logRequests(http.FileServer(http.Dir(s.root))),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Debug("file server listening", "addr", ln.Addr().String(), "root", s.root)
	return nil
}

// Serve handles requests until Shutdown is called.
// It returns nil after a clean shutdown.
func (s *Server) Serve() error {
	s.mu.Lock()
	srv, ln := s.srv, s.listener
	s.mu.Unlock()

	if srv == nil || ln == nil {
		return ErrNotListening
	}

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("file server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server and releases the port.
// It is safe to call when the server never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, ln := s.srv, s.listener
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("file server shutdown: %w", err)
	}
	// Shutdown closes listeners only once Serve has been entered.
	_ = ln.Close() //nolint:errcheck // already closed after a served shutdown

	s.logger.Debug("file server stopped")
	return nil
}

// Addr returns the bound address, or an empty string before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Port returns the bound port, or the configured port before Listen.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.port
	}
	if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return s.port
}

// URL returns the address of a document under the served root, with the
// given query parameters. Absolute http(s) URLs are returned with the
// query merged in.
func (s *Server) URL(document string, query url.Values) string {
	u, err := url.Parse(document)
	switch {
	case err != nil:
		u = &url.URL{Path: path.Join("/", document)}
		fallthrough
	case u.Scheme == "":
		u.Scheme = "http"
		u.Host = net.JoinHostPort(s.host, strconv.Itoa(s.Port()))
		u.Path = path.Join("/", u.Path)
	}

	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			for _, v := range values {
				q.Set(key, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

// WriteHeader captures the status code.
func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// logRequests logs every request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Debug("served request",
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
