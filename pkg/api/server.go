// Package api exposes the import pipeline over HTTP.
//
// Routes:
//
//	POST /api/graphs/{graphId}/file-import   multipart: format, searchkeys, file
//	POST /api/graphs                         create a graph
//	GET  /api/graphs                         list graphs
//	GET  /api/graphs/{graphId}               graph stats and schema keys
//	GET  /api/version                        version and supported formats
//	GET  /health, /health/ready, /health/live
//	GET  /metrics                            Prometheus exposition
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-ingest/pkg/api/middleware"
	"github.com/dd0wney/cluso-ingest/pkg/health"
	"github.com/dd0wney/cluso-ingest/pkg/ingest"
	"github.com/dd0wney/cluso-ingest/pkg/logging"
	"github.com/dd0wney/cluso-ingest/pkg/metagraph"
	"github.com/dd0wney/cluso-ingest/pkg/metrics"
)

const (
	// defaultMaxMemory is how much of a multipart upload is held in memory
	// before the rest spills to temporary files.
	defaultMaxMemory = 32 << 20

	defaultMetricsInterval = 10 * time.Second
)

// GraphStore is the graph registry the API manages. *metagraph.Manager
// implements it.
type GraphStore interface {
	Create(id, description string) (*metagraph.Graph, error)
	Info(id string) (*metagraph.GraphInfo, error)
	List() []*metagraph.GraphInfo
}

// Importer runs file imports. *ingest.Orchestrator implements it.
type Importer interface {
	Import(ctx context.Context, req ingest.Request) *ingest.Result
}

// Config wires a Server. Graphs and Importer are required.
type Config struct {
	Graphs   GraphStore
	Importer Importer
	Metrics  *metrics.Registry
	Health   *health.HealthChecker
	Logger   logging.Logger

	// Formats is reported by /api/version.
	Formats        []string
	Version        string
	MaxUploadBytes int64
	CORSOrigins    []string
	TLS            bool

	MetricsInterval time.Duration
}

// Server represents the HTTP API server
type Server struct {
	graphs   GraphStore
	importer Importer
	registry *metrics.Registry
	checker  *health.HealthChecker
	logger   logging.Logger
	router   *mux.Router

	formats        []string
	version        string
	maxUploadBytes int64
	startTime      time.Time

	metricsInterval time.Duration
	metricsStopCh   chan struct{}
	metricsWg       sync.WaitGroup
	stopOnce        sync.Once
}

// NewServer builds the router and middleware chain.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Graphs == nil {
		return nil, errors.New("api: graph store is required")
	}
	if cfg.Importer == nil {
		return nil, errors.New("api: importer is required")
	}

	s := &Server{
		graphs:          cfg.Graphs,
		importer:        cfg.Importer,
		registry:        cfg.Metrics,
		checker:         cfg.Health,
		logger:          cfg.Logger,
		formats:         cfg.Formats,
		version:         cfg.Version,
		maxUploadBytes:  cfg.MaxUploadBytes,
		startTime:       time.Now(),
		metricsInterval: cfg.MetricsInterval,
		metricsStopCh:   make(chan struct{}),
	}
	if s.registry == nil {
		s.registry = metrics.NewRegistry()
	}
	if s.checker == nil {
		s.checker = health.NewHealthChecker()
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	if s.metricsInterval <= 0 {
		s.metricsInterval = defaultMetricsInterval
	}
	if s.version == "" {
		s.version = "dev"
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins
	s.router = s.routes(cors, cfg.TLS)
	return s, nil
}

func (s *Server) routes(cors *middleware.CORSConfig, tls bool) *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Use(
		middleware.RequestID(),
		middleware.PanicRecovery(s.logger),
		middleware.Logging(s.logger),
		middleware.CORS(cors),
		middleware.SecurityHeaders(tls),
		middleware.Metrics(s.registry),
	)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Handle("/graphs/{graphId}/file-import",
		middleware.BodySizeLimit(s.maxUploadBytes)(http.HandlerFunc(s.handleFileImport))).
		Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/graphs", s.handleCreateGraph).Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/graphs", s.handleListGraphs).Methods(http.MethodGet)
	apiRouter.HandleFunc("/graphs/{graphId}", s.handleGetGraph).Methods(http.MethodGet)
	apiRouter.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	r.HandleFunc("/health", s.checker.HTTPHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.checker.ReadinessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.checker.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry.GetPrometheusRegistry(), promhttp.HandlerOpts{})).
		Methods(http.MethodGet)

	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, VersionResponse{
		Version: s.version,
		Formats: s.formats,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
	})
}
