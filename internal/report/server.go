package report

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/memstress/pkg/logging"
)

// Server exposes harness metrics and recent results over HTTP
type Server struct {
	metrics *Metrics
	history *History
	logger  *logging.Logger
	started time.Time
	http    *http.Server
}

// NewServer creates a metrics server. history may be nil.
func NewServer(addr string, metrics *Metrics, history *History, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		metrics: metrics,
		history: history,
		logger:  logger,
		started: time.Now(),
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router builds the HTTP routes
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = WriteJSON(w, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	results := []Result{}
	if s.history != nil {
		results = s.history.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = WriteJSON(w, results)
}

// Start listens on the configured address and serves in the background.
// It returns once the listener is bound.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("Metrics server listening", logging.Fields{"addr": ln.Addr().String()})

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server stopped", logging.Fields{"error": err.Error()})
		}
	}()
	return nil
}

// HTTPServer returns the underlying server for shutdown registration
func (s *Server) HTTPServer() *http.Server {
	return s.http
}
