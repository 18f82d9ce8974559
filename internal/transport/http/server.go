package http

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/joshdurbin/tinylink/internal/metrics"
	"github.com/joshdurbin/tinylink/internal/service"
)

//go:embed static/index.html
var indexHTML []byte

// Options configures the HTTP server
type Options struct {
	Port         string
	ServerURL    string
	CORSOrigin   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Verbose      bool
	Metrics      *metrics.Metrics
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	handler *Handler
	router  http.Handler
	server  *http.Server
	port    string
}

// NewServer creates a new HTTP server
func NewServer(store service.LinkStore, opts Options) *Server {
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	handler := NewHandler(store, opts.ServerURL)

	r := mux.NewRouter()
	r.Use(Instrument(opts.Metrics))

	r.HandleFunc("/", handler.Index).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// API routes stay on the root router so method mismatches answer 405
	r.HandleFunc("/api/links", handler.CreateLink).Methods(http.MethodPost)
	r.HandleFunc("/api/links", handler.ListLinks).Methods(http.MethodGet)
	r.HandleFunc("/api/links/{code}", handler.GetLink).Methods(http.MethodGet)
	r.HandleFunc("/api/links/{code}", handler.DeleteLink).Methods(http.MethodDelete)
	r.HandleFunc("/api/links/{code}/qr", handler.LinkQR).Methods(http.MethodGet)

	// Redirect endpoint (catch-all)
	r.HandleFunc("/{code}", handler.Redirect).Methods(http.MethodGet)

	// CORS and request IDs wrap the router so preflights never reach route matching
	var final http.Handler = r
	final = NewLoggingMiddleware(opts.Verbose).Middleware(final)
	final = CORS(opts.CORSOrigin)(final)
	final = RequestID(final)

	return &Server{
		handler: handler,
		router:  final,
		server: &http.Server{
			Addr:         ":" + opts.Port,
			Handler:      final,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		},
		port: opts.Port,
	}
}

// Start starts the HTTP server and blocks until it stops. A graceful
// shutdown is not reported as an error.
func (s *Server) Start() error {
	log.Info().Str("port", s.port).Msg("Server starting")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Server shutting down")
	return s.server.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() string {
	return s.port
}

// Handler returns the server handler (useful for testing)
func (s *Server) Handler() *Handler {
	return s.handler
}

// Router returns the fully wrapped HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}
