package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/sheetfeedback/pkg/config"
	"github.com/zatekoja/sheetfeedback/pkg/secrets"
)

// LoadConfig exports Vault secrets into the environment when VAULT_ENABLED
// is set, then reads configuration.
func LoadConfig(ctx context.Context) (*config.Config, error) {
	result, err := secrets.Apply(ctx, secrets.LoadVaultConfigFromEnv())
	if err != nil {
		return nil, fmt.Errorf("failed to load secrets from vault: %w", err)
	}
	if result.Enabled {
		log.Info().
			Str("path", result.Path).
			Int("loaded", result.Loaded).
			Int("skipped", result.Skipped).
			Msg("Loaded secrets from Vault")
	}
	return config.Load()
}
