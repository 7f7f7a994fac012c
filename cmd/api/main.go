package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/sheetfeedback/internal/api/handlers"
	"github.com/zatekoja/sheetfeedback/internal/api/middleware"
	"github.com/zatekoja/sheetfeedback/internal/api/routes"
	"github.com/zatekoja/sheetfeedback/internal/api/session"
	"github.com/zatekoja/sheetfeedback/internal/application/services"
	"github.com/zatekoja/sheetfeedback/internal/bootstrap"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
)

func main() {
	cfg, err := bootstrap.LoadConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Log.Env, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	stack := bootstrap.Build(ctx, cfg, metrics, bootstrap.Options{WithEvents: true, WithSearch: true})
	defer func() {
		if err := stack.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing connections")
		}
	}()

	// Other replicas and feedbackctl publish on the same channel; drop our
	// cached copy when they write.
	var invalidation *services.CacheInvalidationService
	if stack.Cached != nil && stack.EventBus != nil {
		invalidation = services.NewCacheInvalidationService(stack.Cached, stack.EventBus)
		if err := invalidation.Start(); err != nil {
			log.Warn().Err(err).Msg("Failed to start cache invalidation service")
			invalidation = nil
		}
	}

	sessions, err := session.NewManager(cfg.Session, cfg.Identity)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize session manager")
	}

	var counter providers.CounterProvider
	var cacheMiddleware *middleware.CacheMiddleware
	if stack.Cache != nil {
		counter = stack.Cache
		cacheMiddleware = middleware.NewCacheMiddleware(stack.Cache)
	}
	limiter := handlers.NewRateLimiter(counter, cfg.Feedback.RateLimit, cfg.Feedback.RateWindow)

	var sseHandler *handlers.SSEHandler
	if stack.EventBus != nil {
		sseHandler = handlers.NewSSEHandler(stack.EventBus)
	}

	router := routes.NewRouter(
		handlers.NewFeedbackHandler(stack.Service, sessions, limiter),
		sseHandler,
		cacheMiddleware,
		cfg.Feedback.AllowedOrigins,
		metrics,
	)
	router.SetHealthCheck(stack.Service.Available)

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // the feedback stream holds connections open
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Str("store", cfg.Store.Backend).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if stack.Cached != nil {
		g.Go(func() error {
			if err := services.NewCacheWarmingService(stack.Cached).WarmCache(gctx); err != nil {
				log.Warn().Err(err).Msg("Cache warming failed")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		// end open streams so Shutdown does not wait on them
		if stack.EventBus != nil {
			if err := stack.EventBus.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing event bus")
			}
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
	}

	if invalidation != nil {
		invalidation.Stop()
	}
	log.Info().Msg("Server stopped")
}
