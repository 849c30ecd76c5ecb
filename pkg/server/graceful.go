package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-ingest/pkg/logging"
)

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

// Options tunes the underlying http.Server. Zero values take defaults.
type Options struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Logger          logging.Logger
}

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          logging.Logger
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	shutdownErr     error
	configReloadFn  ConfigReloadFunc
	configMu        sync.RWMutex
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, opts Options) *GracefulServer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    durationOr(opts.ReadTimeout, 30*time.Second),
			WriteTimeout:   durationOr(opts.WriteTimeout, 30*time.Second),
			IdleTimeout:    durationOr(opts.IdleTimeout, 120*time.Second),
			MaxHeaderBytes: 1 << 20,
		},
		shutdownTimeout: durationOr(opts.ShutdownTimeout, 30*time.Second),
		logger:          logger.With(logging.Component("http")),
		shutdownCh:      make(chan struct{}),
	}
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Start listens on the configured address and serves until shutdown.
// SIGINT and SIGTERM shut the server down; SIGHUP reloads configuration.
func (gs *GracefulServer) Start() error {
	l, err := net.Listen("tcp", gs.server.Addr)
	if err != nil {
		return err
	}
	return gs.Serve(l)
}

// Serve serves on l until shutdown, handling signals like Start.
func (gs *GracefulServer) Serve(l net.Listener) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go gs.handleSignals(sigCh)

	gs.logger.Info("starting HTTP server", logging.String("addr", l.Addr().String()))
	if err := gs.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Serve returns as soon as Shutdown starts; wait for in-flight requests
	<-gs.shutdownCh
	return gs.shutdownErr
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	gs.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("initiating graceful shutdown", logging.Duration("timeout", timeout))

		err := gs.server.Shutdown(ctx)
		if err != nil {
			gs.logger.Error("error during shutdown", logging.Error(err))
		} else {
			gs.logger.Info("server shutdown complete")
		}

		gs.shutdownErr = err
		close(gs.shutdownCh)
	})
	return gs.shutdownErr
}

// handleSignals listens for OS signals until shutdown
func (gs *GracefulServer) handleSignals(sigCh <-chan os.Signal) {
	for {
		select {
		case <-gs.shutdownCh:
			return
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				gs.logger.Info("received signal, shutting down", logging.String("signal", sig.String()))
				gs.Shutdown(gs.shutdownTimeout)
				return

			case syscall.SIGHUP:
				gs.logger.Info("received SIGHUP, reloading configuration")
				gs.ReloadConfig()
			}
		}
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown completes
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.configMu.Lock()
	defer gs.configMu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig triggers a configuration reload
func (gs *GracefulServer) ReloadConfig() error {
	gs.configMu.RLock()
	reloadFn := gs.configReloadFn
	gs.configMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Warn("configuration reload requested, but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		gs.logger.Error("configuration reload failed", logging.Error(err))
		return err
	}

	gs.logger.Info("configuration reload complete")
	return nil
}
