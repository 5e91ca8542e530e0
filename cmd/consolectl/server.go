package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"m365console/internal/common/logger"
	"m365console/internal/remediation"
)

// monitoringServer serves /metrics, /liveness and /status while the
// daemon runs.
type monitoringServer struct {
	router   *mux.Router
	gatherer prometheus.Gatherer
	snapshot func() remediation.RepairSession
	log      *slog.Logger
}

func newMonitoringServer(gatherer prometheus.Gatherer, snapshot func() remediation.RepairSession, log *slog.Logger) *monitoringServer {
	s := &monitoringServer{
		router:   mux.NewRouter(),
		gatherer: gatherer,
		snapshot: snapshot,
		log:      log,
	}
	s.routes()
	return s
}

func (s *monitoringServer) routes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/liveness", s.handleLiveness()).Methods(http.MethodGet)
	s.router.HandleFunc("/status", s.handleStatus()).Methods(http.MethodGet)
}

func (s *monitoringServer) handler() http.Handler {
	return handlers.CustomLoggingHandler(io.Discard, s.router, s.accessLog)
}

func (s *monitoringServer) accessLog(_ io.Writer, params handlers.LogFormatterParams) {
	logger.LogDebug(s.log, "access",
		"remote_addr", params.Request.RemoteAddr,
		"request", fmt.Sprintf("%s %s %s", params.Request.Method, params.URL.RequestURI(), params.Request.Proto),
		"status", params.StatusCode,
		"size", params.Size)
}

func (s *monitoringServer) handleLiveness() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

func (s *monitoringServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		snapshot := s.snapshot()
		w.Header().Set("Content-Type", "application/json")
		if snapshot.State == remediation.StateExhausted {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(snapshot); err != nil {
			logger.LogWarn(s.log, "Failed to encode status", "error", err)
		}
	}
}

func startHTTPServer(addr string, handler http.Handler, log *slog.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.LogInfo(log, "Starting monitoring server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogError(log, "Monitoring server error", "addr", addr, "error", err)
		}
	}()
	return srv
}

func shutdownHTTPServer(ctx context.Context, srv *http.Server, log *slog.Logger) {
	logger.LogInfo(log, "Shutting down monitoring server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.LogWarn(log, "Error shutting down monitoring server", "error", err)
	}
}
