package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"github.com/hiethm9980-coder/cebx-code-sub001/internal/metrics"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, engines Engines, version string) *Server {
	handler := NewHandler(repo, cache, bus, engines, version)
	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(MetricsMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	router.Route("/shipments", func(r chi.Router) {
		r.Post("/", handler.CreateShipment)
		r.Post("/{id}/delivered", handler.MarkDelivered)
		r.Get("/{id}/commission", handler.ShipmentCommission)
		r.Post("/{id}/fraud-scan", handler.ShipmentFraudScan)
	})

	router.Post("/commission/calculate", handler.CalculateCommission)
	router.Get("/accounts/{id}/commission-report", handler.CommissionReport)

	router.Post("/pricing/quote", handler.Quote)

	router.Post("/fraud/scan", handler.FraudScan)
	router.Post("/fraud/batch-scan", handler.BatchScan)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start starts the HTTP server. It blocks until Shutdown.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
