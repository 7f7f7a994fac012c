package repositories

import (
	"context"

	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
)

// FeedbackRepository is the feedback table store. Write replaces the stored
// table as a whole and must appear atomic to the caller.
type FeedbackRepository interface {
	Read(ctx context.Context) (entities.FeedbackTable, error)
	Write(ctx context.Context, table entities.FeedbackTable) error
}

// CacheInvalidator is implemented by stores that keep a read cache.
// The workflow calls Invalidate before and after each Write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// FreshReader is implemented by stores whose Read may be served from a cache.
// ReadFresh always reads the backing store; Write must only be fed tables
// derived from it.
type FreshReader interface {
	ReadFresh(ctx context.Context) (entities.FeedbackTable, error)
}

// FeedbackSearchRepository indexes comments for full-text lookup (e.g. Typesense).
type FeedbackSearchRepository interface {
	// Index upserts the record stored at the given zero-based row.
	Index(ctx context.Context, row int, record entities.FeedbackRecord) error

	// Rebuild drops the index and loads the whole table.
	Rebuild(ctx context.Context, table entities.FeedbackTable) error

	Search(ctx context.Context, query string, limit int) ([]entities.FeedbackSearchHit, error)
}
