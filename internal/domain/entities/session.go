package entities

// Session ids are drawn uniformly from this range.
const (
	MinSessionRequestID int64 = 1
	MaxSessionRequestID int64 = 10_000_000
)

// SubmissionState is what a visitor's form should look like.
type SubmissionState string

const (
	SubmissionStateOpen      SubmissionState = "not_submitted"
	SubmissionStateSubmitted SubmissionState = "submitted"
)

// Session is the per-browser context handed to the feedback workflow.
// RequestID is the deduplication key; ContactEmail is set only when an
// identity provider vouched for it.
type Session struct {
	RequestID    int64  `json:"request_id"`
	ContactEmail string `json:"contact_email"`
}

// SubmissionStatus describes a session against the current table.
type SubmissionStatus struct {
	RequestID    int64           `json:"request_id"`
	State        SubmissionState `json:"state"`
	Submitted    bool            `json:"submitted"`
	ContactEmail string          `json:"contact_email"`

	// Set once submitted, from the session's first stored row.
	Rating    int    `json:"rating,omitempty"`
	Sentiment string `json:"sentiment,omitempty"`
}

// StatusFor evaluates session against table.
func StatusFor(table FeedbackTable, session Session) SubmissionStatus {
	status := SubmissionStatus{
		RequestID:    session.RequestID,
		State:        SubmissionStateOpen,
		ContactEmail: session.ContactEmail,
	}
	for _, record := range table {
		if record.RequestID != session.RequestID {
			continue
		}
		status.State = SubmissionStateSubmitted
		status.Submitted = true
		status.Rating = record.Rating
		status.Sentiment = SentimentLabel(record.Rating)
		break
	}
	return status
}
