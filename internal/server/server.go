package server

import (
	"log/slog"
	"net/http"

	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/observability"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

// TemplateHandlers are the server-rendered pages. They live outside this
// package so the page templates can be swapped without touching routing.
type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(dashboard handlers.Reporter, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(dashboard, logger),
		sseHandlers: handlers.NewSSEHandlers(dashboard, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)
	s.mux.Handle("GET /metrics", observability.MetricsHandler())

	// REST API
	s.mux.HandleFunc("GET /api/report", s.apiHandlers.HandleReport)
	s.mux.HandleFunc("GET /api/summary", s.apiHandlers.HandleSummary)
	s.mux.HandleFunc("GET /api/daily-orders", s.apiHandlers.HandleDailyOrders)
	s.mux.HandleFunc("GET /api/monthly-orders", s.apiHandlers.HandleMonthlyOrders)
	s.mux.HandleFunc("GET /api/monthly-revenue", s.apiHandlers.HandleMonthlyRevenue)
	s.mux.HandleFunc("GET /api/categories", s.apiHandlers.HandleCategories)
	s.mux.HandleFunc("GET /api/payments/distribution", s.apiHandlers.HandlePaymentDistribution)
	s.mux.HandleFunc("GET /api/payments/value", s.apiHandlers.HandlePaymentValue)
	s.mux.HandleFunc("GET /api/rfm", s.apiHandlers.HandleRFM)
	s.mux.HandleFunc("GET /api/export.xlsx", s.apiHandlers.HandleExport)

	// Datastar SSE
	s.mux.HandleFunc("GET /sse/summary", s.sseHandlers.HandleSummary)
	s.mux.HandleFunc("GET /sse/daily-orders", s.sseHandlers.HandleDailyOrders)
	s.mux.HandleFunc("GET /sse/monthly", s.sseHandlers.HandleMonthly)
	s.mux.HandleFunc("GET /sse/categories", s.sseHandlers.HandleCategories)
	s.mux.HandleFunc("GET /sse/payments", s.sseHandlers.HandlePayments)
	s.mux.HandleFunc("GET /sse/rfm", s.sseHandlers.HandleRFM)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
