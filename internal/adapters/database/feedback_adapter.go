package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

const feedbackTable = "feedback"

// FeedbackAdapter stores the feedback table in Postgres, one row per record.
// The position column preserves table order.
type FeedbackAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

var _ repositories.FeedbackRepository = (*FeedbackAdapter)(nil)

// NewFeedbackAdapter creates a new feedback adapter
func NewFeedbackAdapter(client *postgres.Client, metrics *observability.Metrics) *FeedbackAdapter {
	return &FeedbackAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

// Read returns every row ordered by position
func (a *FeedbackAdapter) Read(ctx context.Context) (entities.FeedbackTable, error) {
	start := time.Now()
	defer func() {
		observability.RecordStoreMetric(ctx, a.metrics, "postgres", "read", time.Since(start))
	}()

	query, args, err := a.db.Select("request_id", "rating", "comment", "contact_email", "email").
		From(feedbackTable).
		Order(goqu.I("position").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewExternalError("failed to read feedback", err)
	}
	defer rows.Close()

	table := entities.FeedbackTable{}
	for rows.Next() {
		var (
			record                       entities.FeedbackRecord
			comment, contactEmail, email sql.NullString
		)
		if err := rows.Scan(&record.RequestID, &record.Rating, &comment, &contactEmail, &email); err != nil {
			return nil, apperrors.NewInternalError("failed to scan feedback row", err)
		}
		record.Comment = comment.String
		record.ContactEmail = contactEmail.String
		record.Email = email.String
		table = append(table, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewExternalError("failed to read feedback", err)
	}

	return table, nil
}

// Write replaces the stored table inside one transaction
func (a *FeedbackAdapter) Write(ctx context.Context, table entities.FeedbackTable) error {
	start := time.Now()
	defer func() {
		observability.RecordStoreMetric(ctx, a.metrics, "postgres", "write", time.Since(start))
	}()

	deleteSQL, _, err := a.db.Delete(feedbackTable).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	var insertSQL string
	if len(table) > 0 {
		records := make([]interface{}, 0, len(table))
		for i, r := range table {
			records = append(records, goqu.Record{
				"position":      i,
				"request_id":    r.RequestID,
				"rating":        r.Rating,
				"comment":       r.Comment,
				"contact_email": r.ContactEmail,
				"email":         r.Email,
			})
		}
		insertSQL, _, err = a.db.Insert(feedbackTable).Rows(records...).ToSQL()
		if err != nil {
			return apperrors.NewInternalError("failed to build insert query", err)
		}
	}

	tx, err := a.client.BeginTx(ctx)
	if err != nil {
		return apperrors.NewExternalError("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Warn().Err(rbErr).Msg("Feedback write rollback failed")
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteSQL); err != nil {
		return apperrors.NewExternalError("failed to clear feedback", err)
	}
	if insertSQL != "" {
		if _, err = tx.ExecContext(ctx, insertSQL); err != nil {
			return apperrors.NewExternalError("failed to write feedback", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return apperrors.NewExternalError("failed to commit feedback", err)
	}
	return nil
}
