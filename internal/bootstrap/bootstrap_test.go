package bootstrap_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/internal/adapters/events"
	"github.com/zatekoja/sheetfeedback/internal/application/services"
	"github.com/zatekoja/sheetfeedback/internal/bootstrap"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/pkg/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Store:    config.StoreConfig{Backend: config.StoreBackendMemory},
		Feedback: config.FeedbackConfig{RateLimit: 5, CacheTTLSeconds: 60},
	}
}

func TestBuild_MemoryStore(t *testing.T) {
	stack := bootstrap.Build(context.Background(), memoryConfig(), nil, bootstrap.Options{WithEvents: true, WithSearch: true})
	defer stack.Close()

	require.NoError(t, stack.Service.Available())
	assert.NotNil(t, stack.Store)
	assert.Nil(t, stack.Cache)
	assert.IsType(t, &events.LocalEventBus{}, stack.EventBus)
	assert.False(t, stack.Service.SearchEnabled())

	_, err := stack.Service.Submit(context.Background(), entities.Session{RequestID: 9}, services.SubmissionInput{Rating: 4})
	require.NoError(t, err)

	status, err := stack.Service.Status(context.Background(), entities.Session{RequestID: 9})
	require.NoError(t, err)
	assert.True(t, status.Submitted)
}

func TestBuild_UnknownBackendIsUnavailable(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Backend = "floppy"

	stack := bootstrap.Build(context.Background(), cfg, nil, bootstrap.Options{})
	defer stack.Close()

	assert.Nil(t, stack.Store)
	assert.Nil(t, stack.EventBus)
	err := stack.Service.Available()
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrStoreUnavailable))

	_, err = stack.Service.List(context.Background())
	assert.ErrorContains(t, err, "Unable to connect to storage")
}

func TestStack_CloseIsIdempotent(t *testing.T) {
	stack := bootstrap.Build(context.Background(), memoryConfig(), nil, bootstrap.Options{WithEvents: true})

	require.NoError(t, stack.Close())
	require.NoError(t, stack.Close())
}
