package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/internal/adapters/memory"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
)

func TestFeedbackAdapter_ReadWrite(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewFeedbackAdapter()

	table, err := adapter.Read(ctx)
	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)

	rows := entities.FeedbackTable{{RequestID: 1, Rating: 5}, {RequestID: 2, Rating: 3}}
	require.NoError(t, adapter.Write(ctx, rows))

	got, err := adapter.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, 2, adapter.Reads())
	assert.Equal(t, 1, adapter.Writes())
}

func TestFeedbackAdapter_IsolatesCallerSlices(t *testing.T) {
	ctx := context.Background()
	rows := entities.FeedbackTable{{RequestID: 1, Rating: 5, Comment: "original"}}
	adapter := memory.NewFeedbackAdapter(rows...)

	rows[0].Comment = "changed by caller"
	got, err := adapter.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "original", got[0].Comment)

	got[0].Comment = "changed after read"
	again, err := adapter.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Comment)
}

func TestFeedbackAdapter_Failures(t *testing.T) {
	ctx := context.Background()
	adapter := memory.NewFeedbackAdapter(entities.FeedbackRecord{RequestID: 1, Rating: 1})
	adapter.WriteErr = errors.New("quota exceeded")

	err := adapter.Write(ctx, nil)
	assert.EqualError(t, err, "quota exceeded")

	got, err := adapter.Read(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	adapter.ReadErr = errors.New("offline")
	_, err = adapter.Read(ctx)
	assert.EqualError(t, err, "offline")
}
