package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/edugate-core/internal/audit"
	"github.com/nerrad567/edugate-core/internal/auth"
	"github.com/nerrad567/edugate-core/internal/infrastructure/config"
	"github.com/nerrad567/edugate-core/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by database, MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// AuditRecorder enqueues audit entries. *events.Recorder implements it.
type AuditRecorder interface {
	Record(ctx context.Context, entry *audit.AuditLog)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config        config.APIConfig
	CSRF          config.CSRFConfig
	Logger        *logging.Logger
	Pipeline      *auth.Pipeline
	Authenticator *auth.Authenticator
	Accounts      auth.AccountStore
	AuditRepo     audit.Repository // optional: /audit returns 500 without it
	Recorder      AuditRecorder    // optional
	DB            StatsProvider    // optional: pool stats in /metrics
	Health        map[string]HealthChecker
	Version       string
}

// Server is the HTTP API server for EduGate.
type Server struct {
	cfg       config.APIConfig
	csrfCfg   config.CSRFConfig
	logger    *logging.Logger
	pipeline  *auth.Pipeline
	authn     *auth.Authenticator
	accounts  auth.AccountStore
	auditRepo audit.Repository
	recorder  AuditRecorder
	db        StatsProvider
	health    map[string]HealthChecker
	version   string
	started   time.Time
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if deps.Pipeline == nil {
		return nil, errors.New("auth pipeline is required")
	}
	if deps.Authenticator == nil {
		return nil, errors.New("authenticator is required")
	}
	if deps.Accounts == nil {
		return nil, errors.New("account store is required")
	}
	if deps.CSRF.CookieName == "" || deps.CSRF.HeaderName == "" {
		return nil, errors.New("csrf cookie and header names are required")
	}

	return &Server{
		cfg:       deps.Config,
		csrfCfg:   deps.CSRF,
		logger:    deps.Logger,
		pipeline:  deps.Pipeline,
		authn:     deps.Authenticator,
		accounts:  deps.Accounts,
		auditRepo: deps.AuditRepo,
		recorder:  deps.Recorder,
		db:        deps.DB,
		health:    deps.Health,
		version:   deps.Version,
		started:   time.Now(),
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
