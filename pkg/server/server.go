package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"
)

// DefaultShutdownTimeout bounds graceful shutdown when Config leaves it zero.
const DefaultShutdownTimeout = 10 * time.Second

// Config configures a Server.
type Config struct {
	// Addr is the application listen address.
	Addr string

	// Handler serves the application.
	Handler http.Handler

	// MetricsAddr is the operational listen address. Empty disables it.
	MetricsAddr string

	// MetricsHandler serves /metrics on the operational listener.
	MetricsHandler http.Handler

	// Background tasks run alongside the listeners and stop with them.
	Background []func(ctx context.Context) error

	// ReadHeaderTimeout is passed to http.Server. Zero means no timeout.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Mode is logged at startup.
	Mode string

	// Notify reports service state. Defaults to sd_notify.
	Notify func(state string) error

	// Logger receives lifecycle messages.
	Logger *slog.Logger
}

// Server runs the application and operational listeners.
type Server struct {
	config Config
	logger *slog.Logger
	ready  atomic.Bool

	mu          sync.Mutex
	addr        net.Addr
	metricsAddr net.Addr
	listening   chan struct{}
}

// New creates a server.
func New(cfg Config) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "server")
	}
	s := &Server{
		config:    cfg,
		logger:    logger,
		listening: make(chan struct{}),
	}
	if s.config.Notify == nil {
		s.config.Notify = s.sdNotify
	}
	return s
}

// Listening is closed once every listener is bound.
func (s *Server) Listening() <-chan struct{} {
	return s.listening
}

// Addr returns the bound application address, or nil before Listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// MetricsAddr returns the bound operational address, or nil.
func (s *Server) MetricsAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metricsAddr
}

// Ready reports whether the server is accepting traffic.
func (s *Server) Ready() bool {
	return s.ready.Load()
}

// Run serves until ctx is done or a listener or background task fails.
// Cancellation is a clean shutdown and returns nil.
func (s *Server) Run(ctx context.Context) error {
	appLn, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}

	var metricsLn net.Listener
	if s.config.MetricsAddr != "" {
		metricsLn, err = net.Listen("tcp", s.config.MetricsAddr)
		if err != nil {
			appLn.Close()
			return fmt.Errorf("listen %s: %w", s.config.MetricsAddr, err)
		}
	}

	servers := []*http.Server{s.httpServer(s.config.Handler)}
	listeners := []net.Listener{appLn}
	if metricsLn != nil {
		servers = append(servers, s.httpServer(s.operationalMux()))
		listeners = append(listeners, metricsLn)
	}

	s.mu.Lock()
	s.addr = appLn.Addr()
	if metricsLn != nil {
		s.metricsAddr = metricsLn.Addr()
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for i := range servers {
		srv, ln := servers[i], listeners[i]
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", ln.Addr(), err)
			}
			return nil
		})
	}
	for _, task := range s.config.Background {
		g.Go(func() error {
			if err := task(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown(servers)
	})

	attrs := []any{"address", appLn.Addr().String(), "mode", s.config.Mode}
	if metricsLn != nil {
		attrs = append(attrs, "metrics", metricsLn.Addr().String())
	}
	s.logger.Info("server listening", attrs...)

	s.ready.Store(true)
	s.notify(daemon.SdNotifyReady)
	close(s.listening)

	if err := g.Wait(); err != nil {
		s.logger.Error("server stopped", "error", err)
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}

func (s *Server) httpServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}
}

func (s *Server) shutdown(servers []*http.Server) error {
	s.ready.Store(false)
	s.notify(daemon.SdNotifyStopping)
	s.logger.Info("shutting down", "timeout", s.config.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) operationalMux() http.Handler {
	mux := http.NewServeMux()
	if s.config.MetricsHandler != nil {
		mux.Handle("/metrics", s.config.MetricsHandler)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !s.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	return mux
}

func writeStatus(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(body))
}

func (s *Server) notify(state string) {
	if err := s.config.Notify(state); err != nil {
		s.logger.Warn("service notify failed", "state", state, "error", err)
	}
}

func (s *Server) sdNotify(state string) error {
	sent, err := daemon.SdNotify(false, state)
	if sent {
		s.logger.Debug("notified systemd", "state", state)
	}
	return err
}
