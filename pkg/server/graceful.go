// Package server hosts the engine's diagnostics listener: the Prometheus
// metrics endpoint and a basic health endpoint, served for the duration
// of a study run. The listener is optional; studies run fine without it.
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/voltlab/gridflow/pkg/logging"
)

// Diagnostics is a small HTTP server exposing /metrics and /healthz.
// Start binds the listener and serves in the background; Shutdown drains
// in-flight scrapes. Signal handling belongs to the caller, which cancels
// the run and then shuts the listener down.
type Diagnostics struct {
	server       *http.Server
	logger       logging.Logger
	boundAddr    string
	shutdownOnce sync.Once
}

// NewDiagnostics creates a diagnostics server on addr. metricsHandler
// serves /metrics; /healthz always answers 200 while the server is up.
func NewDiagnostics(addr string, metricsHandler http.Handler, logger logging.Logger) *Diagnostics {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &Diagnostics{
		server: &http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger: logger,
	}
}

// Start binds the configured address and serves in the background. The
// bound address is available through Addr afterwards, which matters when
// the configured port is 0.
func (d *Diagnostics) Start() error {
	ln, err := net.Listen("tcp", d.server.Addr)
	if err != nil {
		return err
	}
	d.boundAddr = ln.Addr().String()

	go func() {
		if err := d.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			d.logger.Error("diagnostics listener failed", logging.Error(err))
		}
	}()

	d.logger.Info("diagnostics listener started", logging.String("addr", d.boundAddr))
	return nil
}

// Addr returns the bound listen address after Start.
func (d *Diagnostics) Addr() string {
	return d.boundAddr
}

// Shutdown drains the listener, waiting at most timeout for in-flight
// requests. Calling it more than once is safe.
func (d *Diagnostics) Shutdown(timeout time.Duration) error {
	var err error
	d.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if shutdownErr := d.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			d.logger.Error("diagnostics shutdown failed", logging.Error(shutdownErr))
			return
		}
		d.logger.Info("diagnostics listener stopped")
	})
	return err
}
