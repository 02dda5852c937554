package microservice

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// BaseConfig holds common configuration fields for a host process.
type BaseConfig struct {
	LogLevel        string `yaml:"log_level"`
	HTTPPort        string `yaml:"http_port"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	ServiceName     string `yaml:"service_name"`
}

// ShutdownHook releases a resource owned by the host, such as a cache's
// cleanup worker.
type ShutdownHook func(ctx context.Context) error

// HealthCheck reports whether a dependency is healthy.
type HealthCheck func() error

// BaseServer provides the HTTP health endpoint and the shutdown hooks that
// bind owned components to the process lifecycle.
type BaseServer struct {
	Logger     zerolog.Logger
	HTTPPort   string
	httpServer *http.Server
	actualAddr string
	mu         sync.RWMutex
	hooks      []ShutdownHook
	checks     map[string]HealthCheck
}

// NewBaseServer creates and initializes a new BaseServer.
func NewBaseServer(logger zerolog.Logger, httpPort string) *BaseServer {
	mux := http.NewServeMux()
	s := &BaseServer{
		Logger:   logger,
		HTTPPort: httpPort,
		checks:   make(map[string]HealthCheck),
		httpServer: &http.Server{
			Addr:    httpPort,
			Handler: mux,
		},
	}
	mux.HandleFunc("/healthz", s.healthzHandler)
	return s
}

// OnShutdown registers a hook to run during Shutdown. Hooks run in reverse
// registration order, after the HTTP server has stopped.
func (s *BaseServer) OnShutdown(hook ShutdownHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, hook)
}

// AddHealthCheck registers a named check consulted by /healthz.
func (s *BaseServer) AddHealthCheck(name string, check HealthCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Start initiates the HTTP server in a background goroutine.
func (s *BaseServer) Start() error {
	listener, err := net.Listen("tcp", s.HTTPPort)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", s.HTTPPort, err)
	}

	s.mu.Lock()
	s.actualAddr = listener.Addr().String()
	s.mu.Unlock()

	s.Logger.Info().Str("address", s.actualAddr).Msg("HTTP server starting to listen")

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	return nil
}

// Shutdown stops the HTTP server and then runs every shutdown hook,
// respecting the provided context's deadline. All hooks run even if one fails.
func (s *BaseServer) Shutdown(ctx context.Context) error {
	s.Logger.Info().Msg("Shutting down HTTP server...")
	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Error().Err(err).Msg("Error during HTTP server shutdown.")
		errs = append(errs, err)
	}

	s.mu.RLock()
	hooks := make([]ShutdownHook, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			s.Logger.Error().Err(err).Msg("Shutdown hook failed.")
			errs = append(errs, err)
		}
	}
	s.Logger.Info().Msg("HTTP server stopped.")
	return errors.Join(errs...)
}

// Addr returns the address the server is listening on, or the configured
// one before Start.
func (s *BaseServer) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.actualAddr == "" {
		return s.HTTPPort
	}
	return s.actualAddr
}

func (s *BaseServer) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, check := range s.checks {
		if err := check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintf(w, "%s: %v", name, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
