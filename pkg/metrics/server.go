package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownGrace bounds Stop when Start's context is cancelled.
const shutdownGrace = 5 * time.Second

// Server is the HTTP endpoint of a sandboxfs process.
//
// Endpoints:
//   - GET /metrics: Prometheus metrics (503 when metrics are disabled)
//   - GET /stats: JSON array of OriginState, one per origin
//   - GET /: index page with a per-origin summary
type Server struct {
	server  *http.Server
	handler http.Handler
	port    int
	state   OriginStateSource

	stopOnce sync.Once
	stopErr  error
}

// ServerConfig configures the HTTP endpoint.
type ServerConfig struct {
	// Port to listen on. Default: 9090
	Port int

	// State supplies the origins served at /stats and on the index page.
	// nil serves an empty list.
	State OriginStateSource
}

// NewServer creates a stopped Server. Call Start to serve.
func NewServer(config ServerConfig) *Server {
	if config.Port <= 0 {
		config.Port = 9090
	}

	s := &Server{port: config.Port, state: config.State}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler())
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/", s.handleIndex)

	s.handler = mux
	s.server = &http.Server{
		Addr:         ":" + strconv.Itoa(config.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func metricsHandler() http.Handler {
	if reg := GetRegistry(); reg != nil {
		return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Metrics collection is disabled", http.StatusServiceUnavailable)
	})
}

func (s *Server) origins() []OriginState {
	if s.state == nil {
		return []OriginState{}
	}
	states := s.state.OriginStates()
	if states == nil {
		return []OriginState{}
	}
	return states
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.origins()); err != nil {
		logger.Debug("Failed to write /stats response: %v", err)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>sandboxfs</title></head>
<body>
<h1>sandboxfs</h1>
<p><a href="/metrics">/metrics</a> (Prometheus) &middot; <a href="/stats">/stats</a> (JSON)</p>
<table border="1" cellpadding="4">
<tr><th>Origin</th><th>Active operations</th><th>Locked entries</th><th>Reserved paths</th><th>Granted</th><th>Denied</th></tr>
{{range .}}<tr><td>{{.Origin}}</td><td>{{.ActiveOperations}}</td><td>{{.LockedEntries}}</td><td>{{.ReservedPaths}}</td><td>{{.Granted}}</td><td>{{.Denied}}</td></tr>
{{else}}<tr><td colspan="6">No origins</td></tr>
{{end}}</table>
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, s.origins()); err != nil {
		logger.Debug("Failed to render index: %v", err)
	}
}

// Start listens on the configured port and serves until ctx is cancelled.
//
// A port that cannot be bound is reported immediately.
//
// Returns:
//   - nil after a graceful shutdown
//   - error if listening, serving or shutting down fails
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics server: listen on port %d: %w", s.port, err)
	}
	logger.Info("Metrics server listening on %s", ln.Addr())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Stop(stopCtx)
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	}
}

// Stop shuts the server down. Only the first call has an effect; later calls
// return its result.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("metrics server shutdown: %w", err)
			logger.Error("Metrics server shutdown error: %v", err)
			return
		}
		logger.Info("Metrics server stopped")
	})
	return s.stopErr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the HTTP handler serving every endpoint.
func (s *Server) Handler() http.Handler {
	return s.handler
}
