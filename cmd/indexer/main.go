package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/sheetfeedback/internal/bootstrap"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
	"github.com/zatekoja/sheetfeedback/pkg/config"
)

// indexer reloads the Typesense comment index from the feedback store.
func main() {
	var intervalFlag string
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Log.Env, cfg.Log.Level)

	if !cfg.Typesense.Enabled {
		log.Fatal().Msg("TYPESENSE_ENABLED is false; nothing to index")
	}

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			return
		}
		log.Info().Dur("interval", interval).Msg("Reindex complete, waiting for next run")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config) error {
	stack := bootstrap.Build(ctx, cfg, nil, bootstrap.Options{WithSearch: true})
	defer stack.Close()

	start := time.Now()
	rows, err := stack.Service.RebuildIndex(ctx)
	if err != nil {
		return err
	}

	log.Info().Int("rows", rows).Dur("took", time.Since(start)).Msg("Feedback index rebuilt")
	return nil
}
