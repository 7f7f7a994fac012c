package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/sheetfeedback/internal/adapters/database"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

func setupMockDB(t *testing.T) (*database.FeedbackAdapter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return database.NewFeedbackAdapter(postgres.NewFromDB(db), nil), mock
}

func TestFeedbackAdapter_Read(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM "feedback" ORDER BY "position" ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"request_id", "rating", "comment", "contact_email", "email"}).
			AddRow(int64(12), 5, "great", nil, nil).
			AddRow(int64(40), 2, "", "me@corp.example", "a@b.com"))

	table, err := adapter.Read(context.Background())

	require.NoError(t, err)
	assert.Equal(t, entities.FeedbackTable{
		{RequestID: 12, Rating: 5, Comment: "great"},
		{RequestID: 40, Rating: 2, ContactEmail: "me@corp.example", Email: "a@b.com"},
	}, table)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackAdapter_ReadEmpty(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM "feedback"`).
		WillReturnRows(sqlmock.NewRows([]string{"request_id", "rating", "comment", "contact_email", "email"}))

	table, err := adapter.Read(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}

func TestFeedbackAdapter_ReadFailure(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectQuery(`SELECT .+ FROM "feedback"`).WillReturnError(errors.New("connection reset"))

	_, err := adapter.Read(context.Background())

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackAdapter_Write(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "feedback"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "feedback" \(.+\) VALUES \(.+\), \(.+\)`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := adapter.Write(context.Background(), entities.FeedbackTable{
		{RequestID: 12, Rating: 5, Comment: "great"},
		{RequestID: 40, Rating: 2},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackAdapter_WriteEmptyTableOnlyClears(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "feedback"`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	require.NoError(t, adapter.Write(context.Background(), entities.FeedbackTable{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackAdapter_WriteRollsBack(t *testing.T) {
	adapter, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "feedback"`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO "feedback"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := adapter.Write(context.Background(), entities.FeedbackTable{{RequestID: 1, Rating: 1}})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.NoError(t, mock.ExpectationsWereMet())
}
