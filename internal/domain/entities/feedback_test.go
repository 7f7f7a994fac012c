package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

func sampleTable() entities.FeedbackTable {
	return entities.FeedbackTable{
		{RequestID: 1, Rating: 5, Comment: "great", Email: ""},
	}
}

func TestHasSubmitted(t *testing.T) {
	table := sampleTable()

	assert.True(t, entities.HasSubmitted(table, 1))
	assert.False(t, entities.HasSubmitted(table, 2))
	assert.False(t, entities.HasSubmitted(nil, 1))
	assert.False(t, entities.HasSubmitted(entities.FeedbackTable{}, 0))
}

func TestHasSubmitted_AfterAppend(t *testing.T) {
	tables := []entities.FeedbackTable{
		nil,
		sampleTable(),
		{{RequestID: 3, Rating: 1}, {RequestID: 4, Rating: 2}, {RequestID: 3, Rating: 4}},
	}

	for _, table := range tables {
		id := int64(424242)
		require.False(t, entities.HasSubmitted(table, id))

		next := append(table.Clone(), entities.FeedbackRecord{RequestID: id, Rating: 2})
		assert.True(t, entities.HasSubmitted(next, id))
	}
}

func TestSubmit_AppendsToEmptyTable(t *testing.T) {
	record := entities.FeedbackRecord{RequestID: 7, Rating: 3, Comment: "ok", Email: "a@b.com"}

	next, err := entities.Submit(entities.FeedbackTable{}, record)

	require.NoError(t, err)
	assert.Equal(t, entities.FeedbackTable{record}, next)
}

func TestSubmit_PreservesOrderAndDoesNotAlias(t *testing.T) {
	table := make(entities.FeedbackTable, 2, 8)
	table[0] = entities.FeedbackRecord{RequestID: 10, Rating: 4}
	table[1] = entities.FeedbackRecord{RequestID: 11, Rating: 2}
	record := entities.FeedbackRecord{RequestID: 12, Rating: 5, Comment: "nice"}

	next, err := entities.Submit(table, record)
	require.NoError(t, err)

	assert.Len(t, next, len(table)+1)
	assert.Equal(t, record, next[len(next)-1])
	assert.Equal(t, table[0], next[0])
	assert.Equal(t, table[1], next[1])

	next[0].Comment = "mutated"
	assert.Empty(t, table[0].Comment)
	assert.Len(t, table, 2)
	assert.Equal(t, entities.FeedbackRecord{}, table[:3][2])
}

func TestSubmit_RatingRequired(t *testing.T) {
	table := sampleTable()

	next, err := entities.Submit(table, entities.FeedbackRecord{RequestID: 9})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	appErr, _ := apperrors.As(err)
	assert.Equal(t, entities.MsgRatingRequired, appErr.Message)
	assert.Equal(t, table, next)
	assert.Len(t, next, 1)
}

func TestSubmit_RatingOutOfRange(t *testing.T) {
	for _, rating := range []int{-1, 6, 42} {
		next, err := entities.Submit(nil, entities.FeedbackRecord{RequestID: 1, Rating: rating})

		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, entities.MsgRatingOutOfRange, appErr.Message)
		assert.Empty(t, next)
	}
}

func TestSubmit_EveryValidRating(t *testing.T) {
	for rating := entities.MinRating; rating <= entities.MaxRating; rating++ {
		table := sampleTable()
		record := entities.FeedbackRecord{RequestID: int64(100 + rating), Rating: rating}

		next, err := entities.Submit(table, record)

		require.NoError(t, err)
		assert.Len(t, next, len(table)+1)
		assert.Equal(t, record, next[len(next)-1])
	}
}

func TestSubmit_DoesNotDeduplicate(t *testing.T) {
	table := sampleTable()

	next, err := entities.Submit(table, entities.FeedbackRecord{RequestID: 1, Rating: 2})

	require.NoError(t, err)
	assert.Len(t, next, 2)
}

func TestSentimentLabel(t *testing.T) {
	assert.Equal(t, "one", entities.SentimentLabel(1))
	assert.Equal(t, "five", entities.SentimentLabel(5))
	assert.Empty(t, entities.SentimentLabel(0))
	assert.Empty(t, entities.SentimentLabel(6))
}

func TestStatusFor(t *testing.T) {
	table := sampleTable()

	submitted := entities.StatusFor(table, entities.Session{RequestID: 1, ContactEmail: "me@example.com"})
	assert.True(t, submitted.Submitted)
	assert.Equal(t, entities.SubmissionStateSubmitted, submitted.State)
	assert.Equal(t, "me@example.com", submitted.ContactEmail)
	assert.Equal(t, 5, submitted.Rating)
	assert.Equal(t, "five", submitted.Sentiment)

	open := entities.StatusFor(table, entities.Session{RequestID: 2})
	assert.False(t, open.Submitted)
	assert.Equal(t, entities.SubmissionStateOpen, open.State)
	assert.Zero(t, open.Rating)
	assert.Empty(t, open.Sentiment)
}

func TestNewFeedbackSubmittedEvent(t *testing.T) {
	event := entities.NewFeedbackSubmittedEvent(entities.FeedbackRecord{RequestID: 7, Rating: 3}, 4)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, entities.FeedbackEventTypeSubmitted, event.EventType)
	assert.Equal(t, int64(7), event.RequestID)
	assert.Equal(t, 3, event.Rating)
	assert.Equal(t, 4, event.RowCount)
	assert.False(t, event.Timestamp.IsZero())
}
