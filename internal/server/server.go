// package server contains the router, middleware & callback server used by the login flow
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/shared"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers.
// Implementations register every route they serve.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
// Implementations register handlers, apply middleware, and configure the HTTP server.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging logs each request with its status and duration. Query strings are left out
// so authorization codes never reach the log.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
		})
	}
}

// CallbackServer is a short-lived local HTTP server that receives the authorization redirect.
type CallbackServer struct {
	httpServer *http.Server
	listener   net.Listener
	logger     *log.Logger
	errs       chan error
}

// NewCallbackServer binds addr and prepares to serve router. Binding happens here so a port
// conflict is reported before the browser is opened.
func NewCallbackServer(addr string, router http.Handler, logger *log.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %w", shared.ErrServiceUnavailable, addr, err)
	}

	return &CallbackServer{
		httpServer: &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		listener:   ln,
		logger:     logger,
		errs:       make(chan error, 1),
	}, nil
}

// Addr returns the bound address
func (s *CallbackServer) Addr() string { return s.listener.Addr().String() }

// Start serves in the background. Serve errors are reported on [CallbackServer.Errors].
func (s *CallbackServer) Start() {
	go func() {
		s.logger.Infof("starting OAuth callback server at %v", s.Addr())
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
}

// Errors delivers at most one fatal serve error
func (s *CallbackServer) Errors() <-chan error { return s.errs }

// Shutdown stops the server, waiting up to five seconds for in-flight requests.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
