// Package bootstrap assembles the feedback stack from configuration. Every
// binary builds the same store, cache and event wiring through it.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/sheetfeedback/internal/adapters/cache"
	"github.com/zatekoja/sheetfeedback/internal/adapters/database"
	"github.com/zatekoja/sheetfeedback/internal/adapters/events"
	"github.com/zatekoja/sheetfeedback/internal/adapters/memory"
	"github.com/zatekoja/sheetfeedback/internal/adapters/search"
	"github.com/zatekoja/sheetfeedback/internal/adapters/sheets"
	"github.com/zatekoja/sheetfeedback/internal/application/services"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/redis"
	sheetsclient "github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/sheets"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/typesense"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
	"github.com/zatekoja/sheetfeedback/pkg/config"
)

// Stack is the wired feedback backend.
type Stack struct {
	Service *services.FeedbackService

	// Store is nil when the backend could not be reached.
	Store repositories.FeedbackRepository

	// Cache is set when Redis is connected; Store is then cache-wrapped.
	Cache    *cache.RedisAdapter
	Cached   *database.CachedFeedbackAdapter
	EventBus providers.EventBus
	Search   repositories.FeedbackSearchRepository

	closers []func() error
}

// Options selects optional parts of the stack.
type Options struct {
	// WithEvents connects an event bus (Redis when available, else in-process).
	WithEvents bool
	// WithSearch connects Typesense when enabled in config.
	WithSearch bool
}

// Build connects the configured store and the optional services. A store
// that cannot be reached yields an unavailable service, not an error;
// optional services that fail are skipped with a warning.
func Build(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, opts Options) *Stack {
	stack := &Stack{}

	store, err := stack.openStore(ctx, cfg, metrics)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.Store.Backend).Msg("Unable to connect to storage")
		stack.Service = services.NewUnavailableFeedbackService(err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		} else {
			stack.closers = append(stack.closers, redisClient.Close)
			stack.Cache = cache.NewRedisAdapter(redisClient)
		}
	}

	if store != nil && stack.Cache != nil {
		stack.Cached = database.NewCachedFeedbackAdapter(store, stack.Cache, cfg.Feedback.CacheTTLSeconds, metrics)
		store = stack.Cached
	}
	stack.Store = store

	if opts.WithEvents {
		if redisClient != nil {
			stack.EventBus = events.NewRedisEventBus(redisClient)
		} else {
			stack.EventBus = events.NewLocalEventBus()
		}
		// close the bus before the Redis connection it reads from
		stack.closers = append([]func() error{stack.EventBus.Close}, stack.closers...)
	}

	if opts.WithSearch && cfg.Typesense.Enabled {
		if tc, err := typesense.NewClient(ctx, &cfg.Typesense); err != nil {
			log.Warn().Err(err).Msg("Typesense unavailable, search disabled")
		} else if err := tc.InitSchema(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize feedback collection, search disabled")
		} else {
			stack.Search = search.NewFeedbackSearchAdapter(tc)
		}
	}

	if stack.Service == nil {
		stack.Service = services.NewFeedbackService(store)
		stack.Service.SetMetrics(metrics)
		if stack.EventBus != nil {
			stack.Service.SetEventBus(stack.EventBus)
		}
		if stack.Search != nil {
			stack.Service.SetSearchRepository(stack.Search)
		}
	}

	return stack
}

func (s *Stack) openStore(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (repositories.FeedbackRepository, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendSheets:
		client, err := sheetsclient.NewClient(ctx, &cfg.Sheets)
		if err != nil {
			return nil, err
		}
		return sheets.NewFeedbackAdapter(client, client.Worksheet(), metrics), nil

	case config.StoreBackendPostgres:
		client, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureSchema(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to create feedback table: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		return database.NewFeedbackAdapter(client, metrics), nil

	case config.StoreBackendMemory:
		log.Warn().Msg("Using in-memory feedback store; rows are lost on restart")
		return memory.NewFeedbackAdapter(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Close releases every connection the stack opened.
func (s *Stack) Close() error {
	var errs []error
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
