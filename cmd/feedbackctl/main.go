package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/sheetfeedback/internal/bootstrap"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
)

func main() {
	rootCmd := newRootCmd(openService)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openService connects the configured store. Events go out on Redis when it
// is enabled so running API replicas refresh after a CLI submission.
func openService(ctx context.Context) (FeedbackService, func() error, error) {
	cfg, err := bootstrap.LoadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	observability.InitLogger("feedbackctl", cfg.Log.Env, cfg.Log.Level)

	stack := bootstrap.Build(ctx, cfg, nil, bootstrap.Options{WithEvents: cfg.Redis.Enabled})
	if err := stack.Service.Available(); err != nil {
		stack.Close()
		return nil, nil, err
	}
	log.Debug().Str("backend", cfg.Store.Backend).Msg("Store connected")
	return stack.Service, stack.Close, nil
}
