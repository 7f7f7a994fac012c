package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/providers"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

// sideEffectTimeout bounds cache, event and index calls made after a write.
const sideEffectTimeout = 5 * time.Second

var (
	// ErrAlreadySubmitted is returned when the session's request id is already stored.
	ErrAlreadySubmitted = apperrors.NewConflictError("feedback already submitted for this session")

	// ErrStoreUnavailable is wrapped by every error of a service built without a store.
	ErrStoreUnavailable = errors.New("unable to connect to storage")

	// ErrSearchDisabled is returned by Search when no index is configured.
	ErrSearchDisabled = apperrors.NewUnavailableError("feedback search is not enabled", nil)
)

// SubmissionInput is what the visitor typed into the form.
type SubmissionInput struct {
	Rating  int
	Comment string
	Email   string
}

// FeedbackService runs the check-then-submit workflow against a feedback store.
type FeedbackService struct {
	repo        repositories.FeedbackRepository
	unavailable error
	eventBus    providers.EventBus
	search      repositories.FeedbackSearchRepository
	metrics     *observability.Metrics
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(repo repositories.FeedbackRepository) *FeedbackService {
	return &FeedbackService{repo: repo}
}

// NewUnavailableFeedbackService creates a service for a store that could not
// be reached. Every operation fails without touching storage.
func NewUnavailableFeedbackService(cause error) *FeedbackService {
	msg := "Unable to connect to storage"
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &FeedbackService{
		unavailable: apperrors.NewUnavailableError(msg, errors.Join(ErrStoreUnavailable, cause)),
	}
}

// SetEventBus enables refresh events after each stored submission.
func (s *FeedbackService) SetEventBus(bus providers.EventBus) {
	s.eventBus = bus
}

// SetSearchRepository enables comment indexing and search.
func (s *FeedbackService) SetSearchRepository(search repositories.FeedbackSearchRepository) {
	s.search = search
}

// SetMetrics enables submission counters.
func (s *FeedbackService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// Available returns the startup connection error, or nil.
func (s *FeedbackService) Available() error {
	return s.unavailable
}

// SearchEnabled reports whether Search can answer.
func (s *FeedbackService) SearchEnabled() bool {
	return s.search != nil
}

// List returns the whole feedback table.
func (s *FeedbackService) List(ctx context.Context) (entities.FeedbackTable, error) {
	if s.unavailable != nil {
		return nil, s.unavailable
	}

	table, err := s.repo.Read(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read feedback", err)
	}
	return table, nil
}

// Status tells whether session has already submitted.
func (s *FeedbackService) Status(ctx context.Context, session entities.Session) (entities.SubmissionStatus, error) {
	table, err := s.List(ctx)
	if err != nil {
		return entities.SubmissionStatus{}, err
	}
	return entities.StatusFor(table, session), nil
}

// Submit stores one record for session unless it already submitted.
// Concurrent calls for the same session are not serialized and may both append.
func (s *FeedbackService) Submit(ctx context.Context, session entities.Session, input SubmissionInput) (entities.FeedbackRecord, error) {
	ctx, span := observability.StartSpan(ctx, "FeedbackService.Submit")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.Int64("feedback.request_id", session.RequestID),
		attribute.Int("feedback.rating", input.Rating),
	)

	table, err := s.readForWrite(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return entities.FeedbackRecord{}, err
	}

	if entities.HasSubmitted(table, session.RequestID) {
		observability.RecordRejection(ctx, s.metrics, "already_submitted")
		return entities.FeedbackRecord{}, ErrAlreadySubmitted
	}

	record := entities.FeedbackRecord{
		RequestID:    session.RequestID,
		Rating:       input.Rating,
		Comment:      input.Comment,
		Email:        input.Email,
		ContactEmail: session.ContactEmail,
	}

	next, err := entities.Submit(table, record)
	if err != nil {
		observability.RecordRejection(ctx, s.metrics, "validation")
		return entities.FeedbackRecord{}, err
	}

	log.Info().Int64("request_id", record.RequestID).Int("rating", record.Rating).Msg("Submitting record")
	s.invalidate(ctx)
	if err := s.repo.Write(ctx, next); err != nil {
		observability.RecordError(span, err)
		return entities.FeedbackRecord{}, apperrors.NewInternalError("failed to write feedback", err)
	}
	log.Info().Int64("request_id", record.RequestID).Int("rows", len(next)).Msg("Submitted")

	observability.RecordSubmission(ctx, s.metrics, record.Rating)
	s.afterWrite(ctx, len(next)-1, record, len(next))
	return record, nil
}

// readForWrite loads the table a write will be based on, never from a cache.
func (s *FeedbackService) readForWrite(ctx context.Context) (entities.FeedbackTable, error) {
	if s.unavailable != nil {
		return nil, s.unavailable
	}

	fresh, ok := s.repo.(repositories.FreshReader)
	if !ok {
		return s.List(ctx)
	}
	table, err := fresh.ReadFresh(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read feedback", err)
	}
	return table, nil
}

// invalidate drops any cached table. A failure only leaves List stale until
// the cache TTL expires; writes never read from the cache.
func (s *FeedbackService) invalidate(ctx context.Context) {
	invalidator, ok := s.repo.(repositories.CacheInvalidator)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()
	if err := invalidator.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate cached feedback table")
	}
}

// afterWrite runs the post-write hooks. Failures are logged only; the row is
// already stored.
func (s *FeedbackService) afterWrite(ctx context.Context, row int, record entities.FeedbackRecord, rowCount int) {
	s.invalidate(ctx)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.eventBus != nil {
		event := entities.NewFeedbackSubmittedEvent(record, rowCount)
		if err := s.eventBus.Publish(ctx, providers.EventChannelFeedbackUpdates, event); err != nil {
			log.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to publish feedback event")
		}
	}

	if s.search != nil {
		if err := s.search.Index(ctx, row, record); err != nil {
			log.Warn().Err(err).Int("row", row).Msg("Failed to index feedback")
		}
	}
}

// Search looks up comments in the search index.
func (s *FeedbackService) Search(ctx context.Context, query string, limit int) ([]entities.FeedbackSearchHit, error) {
	if s.search == nil {
		return nil, ErrSearchDisabled
	}

	hits, err := s.search.Search(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewExternalError("feedback search failed", err)
	}
	return hits, nil
}

// RebuildIndex reloads the search index from the store and returns the row count.
func (s *FeedbackService) RebuildIndex(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, ErrSearchDisabled
	}

	table, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.search.Rebuild(ctx, table); err != nil {
		return 0, apperrors.NewExternalError("failed to rebuild feedback index", err)
	}
	return len(table), nil
}
