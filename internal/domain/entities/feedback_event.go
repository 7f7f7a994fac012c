package entities

import (
	"time"

	"github.com/google/uuid"
)

// FeedbackEventType represents the type of feedback event
type FeedbackEventType string

const (
	FeedbackEventTypeSubmitted FeedbackEventType = "feedback_submitted"
)

// FeedbackEvent tells listeners that the table changed and views should refresh.
type FeedbackEvent struct {
	ID        string            `json:"id"`
	EventType FeedbackEventType `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	RequestID int64             `json:"request_id"`
	Rating    int               `json:"rating"`
	RowCount  int               `json:"row_count"`
}

// NewFeedbackSubmittedEvent creates the event published after a successful write.
func NewFeedbackSubmittedEvent(record FeedbackRecord, rowCount int) *FeedbackEvent {
	return &FeedbackEvent{
		ID:        uuid.NewString(),
		EventType: FeedbackEventTypeSubmitted,
		Timestamp: time.Now().UTC(),
		RequestID: record.RequestID,
		Rating:    record.Rating,
		RowCount:  rowCount,
	}
}
