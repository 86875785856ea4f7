package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	appLogger "github.com/FACorreiaa/go-city-crud/app/logger"
	appMiddleware "github.com/FACorreiaa/go-city-crud/app/middleware"
	"github.com/FACorreiaa/go-city-crud/app/tracer"
	"github.com/FACorreiaa/go-city-crud/config"
	"github.com/FACorreiaa/go-city-crud/internal/container"
	"github.com/FACorreiaa/go-city-crud/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.New(os.Stdout, cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, &cfg, logger); err != nil {
		logger.Error("Application exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	providers, err := tracer.InitTracingAndMetrics("CityCRUD")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	c, err := container.NewContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	defer c.Close()

	servers := []*http.Server{
		newServer(cfg.Server.HTTPPort, buildHandler(c), cfg, logger),
	}
	if cfg.Handlers.Prometheus.Enabled {
		metricsMux := chi.NewMux()
		metricsMux.Handle("/metrics", providers.MetricsHandler)
		servers = append(servers, newServer(cfg.Handlers.Prometheus.Port, metricsMux, cfg, logger))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

// buildHandler assembles the server-wide middleware stack around the API router.
func buildHandler(c *container.Container) http.Handler {
	cfg := c.Config

	routes := []func(http.Handler) http.Handler{
		appMiddleware.RequestMetrics(c.Metrics),
	}
	if cfg.RateLimit.Enabled {
		routes = append(routes, appMiddleware.RateLimit(cfg.RateLimit.RequestsPerMinute, time.Minute, c.Logger))
	}

	mainRouter := router.SetupRouter(&router.Config{
		CityHandler: c.CityHandler,
		Middlewares: routes,
	})

	r := chi.NewMux()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appLogger.StructuredLogger(c.Logger))
	r.Use(appMiddleware.Recoverer(c.Logger))
	r.Use(middleware.StripSlashes)
	if cfg.Server.Timeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.Timeout))
	}
	r.Use(middleware.Compress(5, "application/json"))
	r.Mount("/", mainRouter)

	return r
}

func newServer(port string, handler http.Handler, cfg *config.Config, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
