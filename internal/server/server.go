package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/psufhem/internal/logging"
	"github.com/muurk/psufhem/internal/psu"
	"github.com/muurk/psufhem/internal/settings"
)

const (
	// stateKey is the single cache entry for the queried PSU state
	stateKey = "state"

	shutdownTimeout = 10 * time.Second
)

// Backend is what the API drives. psu.Plugin implements it.
type Backend interface {
	psu.Controller
	Enabled() bool
	ReloadSettings(ctx context.Context) error
}

// Config holds the server configuration
type Config struct {
	Listen   string
	CertPath string // Path to certificate file (TLS is off unless both paths are set)
	KeyPath  string // Path to private key file
	CacheTTL time.Duration
}

// ConfigFrom converts persisted server settings.
func ConfigFrom(s settings.ServerSettings) *Config {
	return &Config{
		Listen:   s.Listen,
		CertPath: s.CertFile,
		KeyPath:  s.KeyFile,
		CacheTTL: s.CacheTTL,
	}
}

// Server is the HTTP control API
type Server struct {
	config    *Config
	backend   Backend
	watcher   *psu.Watcher
	gatherer  prometheus.Gatherer
	logger    *zap.Logger
	tlsConfig *tls.Config

	cache  *ttlcache.Cache[string, bool]
	router *mux.Router

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// Option configures a Server.
type Option func(*Server)

// WithWatcher enables the event stream and refreshes state after commands.
func WithWatcher(w *psu.Watcher) Option {
	return func(s *Server) { s.watcher = w }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger replaces the server logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a new Server instance
func New(config *Config, backend Backend, opts ...Option) (*Server, error) {
	if config.Listen == "" {
		config.Listen = settings.DefaultListen
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = settings.DefaultCacheTTL
	}

	s := &Server{
		config:   config,
		backend:  backend,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.Named("server"),
		cache: ttlcache.New(
			ttlcache.WithTTL[string, bool](config.CacheTTL),
			ttlcache.WithDisableTouchOnHit[string, bool](),
		),
	}
	for _, opt := range opts {
		opt(s)
	}

	if config.CertPath != "" || config.KeyPath != "" {
		tlsConfig, err := NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		s.tlsConfig = tlsConfig
	}

	s.router = s.routes()
	return s, nil
}

// Handler returns the API handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address once Start is running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start serves the API until ctx is cancelled or SIGINT/SIGTERM arrives.
// SIGHUP reloads the settings.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
		s.logger.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.addr = listener.Addr()
	s.mu.Unlock()

	go s.cache.Start()
	defer s.cache.Stop()

	s.logger.Info("Starting control API",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Duration("cache_ttl", s.config.CacheTTL),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.Serve(listener)
	}()

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				s.logger.Info("SIGHUP received, reloading settings")
				if err := s.reload(ctx); err != nil {
					s.logger.Error("Settings reload failed", zap.Error(err))
				}
				continue
			}
			s.logger.Info("Shutdown signal received, stopping server...")
			return s.Shutdown(context.Background())
		case <-ctx.Done():
			return s.Shutdown(context.Background())
		case err := <-errChan:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = httpServer.Close()
	}

	logging.Sync()
	return nil
}

func (s *Server) reload(ctx context.Context) error {
	if err := s.backend.ReloadSettings(ctx); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// invalidate drops the cached state and asks the watcher for a fresh one.
func (s *Server) invalidate() {
	s.cache.Delete(stateKey)
	if s.watcher != nil {
		s.watcher.Poke()
	}
}
