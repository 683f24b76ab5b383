// Package gateway exposes the aggregated read surface and asset pinning over
// a JSON HTTP API.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/paxr/paxr-gateway/internal/chain"
	"github.com/paxr/paxr-gateway/internal/pinning"
	"github.com/paxr/paxr-gateway/internal/pricing"
	"github.com/paxr/paxr-gateway/shared/config"
	"github.com/paxr/paxr-gateway/shared/logging"
	"github.com/paxr/paxr-gateway/shared/metrics"
)

// Server wires the read aggregator, price refresher and pinning client into
// an HTTP API
type Server struct {
	cfg       *config.GatewayConfig
	reader    *chain.Reader
	refresher *pricing.Refresher
	pinner    *pinning.Client
	logger    *logging.Logger
	metrics   *metrics.Metrics

	httpServer *http.Server
}

// NewServer creates the API server. The pinner may be nil when no Pinata
// credentials are configured; asset uploads then return 503.
func NewServer(cfg *config.GatewayConfig, reader *chain.Reader, refresher *pricing.Refresher, pinner *pinning.Client, logger *logging.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:       cfg,
		reader:    reader,
		refresher: refresher,
		pinner:    pinner,
		logger:    logger,
		metrics:   m,
	}

	router := mux.NewRouter()
	s.registerRoutes(router)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.RequestTimeout,
		WriteTimeout: cfg.HTTP.RequestTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes(router *mux.Router) {
	router.HandleFunc(s.cfg.Monitoring.HealthPath, s.handleHealth).Methods(http.MethodGet)
	router.Handle(s.cfg.Monitoring.MetricsPath, metrics.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requestIDMiddleware)

	s.handle(api, "/events", s.handleListEvents, http.MethodGet)
	s.handle(api, "/events/active", s.handleActiveEvents, http.MethodGet)
	s.handle(api, "/events/{id:[0-9]+}", s.handleGetEvent, http.MethodGet)
	s.handle(api, "/tickets/{tokenId:[0-9]+}", s.handleGetTicket, http.MethodGet)
	s.handle(api, "/tickets/{tokenId:[0-9]+}/uri", s.handleTicketURI, http.MethodGet)
	s.handle(api, "/users/{address}/tickets", s.handleUserTickets, http.MethodGet)
	s.handle(api, "/listings/{tokenId:[0-9]+}", s.handleGetListing, http.MethodGet)
	s.handle(api, "/price", s.handlePrice, http.MethodGet)
	s.handle(api, "/assets", s.handlePinAsset, http.MethodPost)
	s.handle(api, "/metadata", s.handlePinMetadata, http.MethodPost)
}

// handle registers a route wrapped with per-endpoint request metrics
func (s *Server) handle(r *mux.Router, path string, h http.HandlerFunc, methods ...string) {
	var handler http.Handler = h
	if s.metrics != nil {
		handler = s.metrics.HTTPMiddleware(path, handler)
	}
	r.Handle(path, handler).Methods(methods...)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), requestID)))
	})
}

// Start begins serving and blocks until the listener closes
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server starting")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the configured timeout
func (s *Server) Shutdown() error {
	timeout := s.cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
