package memory

import (
	"context"
	"sync"

	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
)

// FeedbackAdapter keeps the feedback table in process memory.
// It backs STORE_BACKEND=memory and stands in for the spreadsheet in tests.
type FeedbackAdapter struct {
	mu     sync.RWMutex
	table  entities.FeedbackTable
	reads  int
	writes int

	// Fail hooks let tests simulate a broken store.
	ReadErr  error
	WriteErr error
}

var _ repositories.FeedbackRepository = (*FeedbackAdapter)(nil)

// NewFeedbackAdapter creates an adapter seeded with rows.
func NewFeedbackAdapter(rows ...entities.FeedbackRecord) *FeedbackAdapter {
	return &FeedbackAdapter{table: entities.FeedbackTable(rows).Clone()}
}

// Read returns a copy of the stored table.
func (a *FeedbackAdapter) Read(ctx context.Context) (entities.FeedbackTable, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reads++
	if a.ReadErr != nil {
		return nil, a.ReadErr
	}
	if a.table == nil {
		return entities.FeedbackTable{}, nil
	}
	return a.table.Clone(), nil
}

// Write replaces the stored table.
func (a *FeedbackAdapter) Write(ctx context.Context, table entities.FeedbackTable) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.writes++
	if a.WriteErr != nil {
		return a.WriteErr
	}
	a.table = table.Clone()
	return nil
}

// Reads returns how many times Read was called.
func (a *FeedbackAdapter) Reads() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.reads
}

// Writes returns how many times Write was called.
func (a *FeedbackAdapter) Writes() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.writes
}
