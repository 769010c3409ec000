package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// healthResponse is the body GET /health returns, per spec §6.
type healthResponse struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Server      string `json:"server"`
	Connections int64  `json:"connections"`
	Health      string `json:"health"`
}

// AdminServer exposes the optional HTTP admin surface of spec §6: GET
// /health, GET /metrics, and 404 for everything else.
type AdminServer struct {
	manager       *Manager
	metrics       *Metrics
	serverVersion string
	httpServer    *http.Server
	logger        *slog.Logger
}

// NewAdminServer constructs the admin HTTP surface bound to addr.
func NewAdminServer(addr string, manager *Manager, metrics *Metrics, serverVersion string, logger *slog.Logger) *AdminServer {
	a := &AdminServer{manager: manager, metrics: metrics, serverVersion: serverVersion, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", a.handleNotFound)

	a.httpServer = &http.Server{Addr: addr, Handler: mux}
	return a
}

// ListenAndServe starts the admin HTTP server; it blocks until Shutdown is
// called or a fatal error occurs.
func (a *AdminServer) ListenAndServe() error {
	a.logger.Info("serving admin endpoints", "addr", a.httpServer.Addr)
	err := a.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the admin HTTP server.
func (a *AdminServer) Shutdown() error {
	return a.httpServer.Close()
}

func (a *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats := a.manager.Stats()

	status := http.StatusOK
	body := healthResponse{
		Status:      "ok",
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Server:      a.serverVersion,
		Connections: stats.ActiveConnections,
		Health:      "healthy",
	}

	if !a.manager.Healthy() {
		status = http.StatusInternalServerError
		body.Status = "error"
		body.Health = "unhealthy"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		a.logger.Error("failed to encode health response", "error", err)
	}
}

func (a *AdminServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}
