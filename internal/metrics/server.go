package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes a registry over HTTP.
type Server struct {
	server *http.Server
}

// NewServer creates a metrics server on addr serving /metrics from g and a
// /health probe.
func NewServer(addr string, g prometheus.Gatherer) *Server {
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: Handler(g),
		},
	}
}

// Handler returns the metrics and health routes.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// Start starts the metrics server (blocking).
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the metrics server.
func (s *Server) Stop() error {
	return s.server.Close()
}
