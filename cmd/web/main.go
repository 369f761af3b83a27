package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const (
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 2 * time.Minute
	cacheMaxAge    = "public, max-age=300"
)

// dashboardPage renders the page with the date pickers bounded by the
// loaded data.
func dashboardPage(dashboard handlers.Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(dashboard.Bounds()).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newHandler wires routes and middleware. Metrics sits innermost so it sees
// the route pattern chosen by the mux.
func newHandler(cfg *config.Config, dashboard handlers.Reporter, logger *slog.Logger) http.Handler {
	srv := server.NewServer(dashboard, logger, &server.TemplateHandlers{
		Dashboard: dashboardPage(dashboard),
	})

	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.Security), logger),
		middleware.Metrics(),
	)
	return chain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"orders_file", cfg.Data.OrdersFile,
		"payments_file", cfg.Data.PaymentsFile,
	)

	dashboard := services.NewDashboard(
		services.WithCacheDir(cfg.Data.CacheDir),
		services.WithLogger(logger),
	)

	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	start := time.Now()
	err = dashboard.LoadFromCSV(ctx, cfg.Data.OrdersFile, cfg.Data.PaymentsFile)
	cancel()
	if err != nil {
		logger.Error("failed to load CSV data", "error", err)
		os.Exit(1)
	}
	logger.Info("CSV data loaded successfully", "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, dashboard, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down dashboard service", "stats", dashboard.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
