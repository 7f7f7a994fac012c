package entities

import (
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

// Rating bounds for a star rating.
const (
	MinRating = 1
	MaxRating = 5
)

// Validation messages returned by Submit.
const (
	MsgRatingRequired   = "rating required"
	MsgRatingOutOfRange = "rating must be between 1 and 5"
)

var sentimentLabels = [...]string{"one", "two", "three", "four", "five"}

// FeedbackRecord is one row of the feedback table.
// A zero Rating means the visitor did not pick one.
type FeedbackRecord struct {
	RequestID    int64  `json:"request_id" db:"request_id"`
	Rating       int    `json:"rating" db:"rating"`
	Comment      string `json:"comment" db:"comment"`
	Email        string `json:"email" db:"email"`
	ContactEmail string `json:"contact_email" db:"contact_email"`
}

// HasRating reports whether a rating was given.
func (r FeedbackRecord) HasRating() bool {
	return r.Rating != 0
}

// Validate checks the record can be appended.
func (r FeedbackRecord) Validate() error {
	if !r.HasRating() {
		return apperrors.NewValidationError(MsgRatingRequired)
	}
	if r.Rating < MinRating || r.Rating > MaxRating {
		return apperrors.NewValidationError(MsgRatingOutOfRange)
	}
	return nil
}

// SentimentLabel returns the spelled-out star count ("one" .. "five"), or "" for an invalid rating.
func SentimentLabel(rating int) string {
	if rating < MinRating || rating > MaxRating {
		return ""
	}
	return sentimentLabels[rating-1]
}

// FeedbackTable is the ordered, append-only collection of feedback rows.
// Storage does not enforce request_id uniqueness.
type FeedbackTable []FeedbackRecord

// HasSubmitted reports whether any row carries requestID.
func HasSubmitted(table FeedbackTable, requestID int64) bool {
	for _, record := range table {
		if record.RequestID == requestID {
			return true
		}
	}
	return false
}

// Submit returns a new table with record appended. The input table is never
// modified; on a validation failure it is returned as-is together with the error.
// Submit does not deduplicate, callers check HasSubmitted first.
func Submit(table FeedbackTable, record FeedbackRecord) (FeedbackTable, error) {
	if err := record.Validate(); err != nil {
		return table, err
	}

	next := make(FeedbackTable, len(table), len(table)+1)
	copy(next, table)
	return append(next, record), nil
}

// Clone returns a copy that shares no backing array with t.
func (t FeedbackTable) Clone() FeedbackTable {
	if t == nil {
		return nil
	}
	out := make(FeedbackTable, len(t))
	copy(out, t)
	return out
}

// FeedbackSearchHit is a search result pointing back at a table row.
type FeedbackSearchHit struct {
	Row    int            `json:"row"`
	Record FeedbackRecord `json:"record"`
}
