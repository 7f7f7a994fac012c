package sheets

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
	"github.com/zatekoja/sheetfeedback/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

// Column headers in sheet order. exp_user_email holds the identity-provided
// contact email; older sheets may call it contact_email.
const (
	ColumnRequestID    = "request_id"
	ColumnRating       = "rating"
	ColumnComment      = "comment"
	ColumnContactEmail = "exp_user_email"
	ColumnEmail        = "email"

	columnContactEmailAlias = "contact_email"
	lastColumn              = "Z"
)

// Header is the first row written to the worksheet.
var Header = []interface{}{ColumnRequestID, ColumnRating, ColumnComment, ColumnContactEmail, ColumnEmail}

// ValuesAPI is the slice of the Sheets values service the adapter needs.
type ValuesAPI interface {
	Get(ctx context.Context, rangeA1 string) ([][]interface{}, error)
	Update(ctx context.Context, rangeA1 string, values [][]interface{}) error
	Clear(ctx context.Context, rangeA1 string) error
}

// FeedbackAdapter stores the feedback table in one worksheet, header in row 1.
type FeedbackAdapter struct {
	values    ValuesAPI
	worksheet string
	metrics   *observability.Metrics
}

var _ repositories.FeedbackRepository = (*FeedbackAdapter)(nil)

// NewFeedbackAdapter creates a worksheet-backed feedback store.
func NewFeedbackAdapter(values ValuesAPI, worksheet string, metrics *observability.Metrics) *FeedbackAdapter {
	return &FeedbackAdapter{values: values, worksheet: worksheet, metrics: metrics}
}

// Read loads every row of the worksheet.
func (a *FeedbackAdapter) Read(ctx context.Context) (entities.FeedbackTable, error) {
	start := time.Now()
	rows, err := a.values.Get(ctx, a.rangeFrom(1))
	observability.RecordStoreMetric(ctx, a.metrics, "sheets", "read", time.Since(start))
	if err != nil {
		return nil, apperrors.NewExternalError("failed to read feedback worksheet", err)
	}

	table, err := DecodeRows(rows)
	if err != nil {
		return nil, apperrors.NewExternalError("malformed feedback worksheet", err)
	}
	return table, nil
}

// Write overwrites the worksheet with the header and table, then blanks any
// rows left below it. The table is stored once Update succeeds, so a failed
// trailing clear is only logged.
func (a *FeedbackAdapter) Write(ctx context.Context, table entities.FeedbackTable) error {
	start := time.Now()
	defer func() {
		observability.RecordStoreMetric(ctx, a.metrics, "sheets", "write", time.Since(start))
	}()

	if err := a.values.Update(ctx, a.rangeFrom(1), EncodeRows(table)); err != nil {
		return apperrors.NewExternalError("failed to write feedback worksheet", err)
	}

	// header occupies row 1, data rows 2..len+1
	if err := a.values.Clear(ctx, a.rangeFrom(len(table)+2)); err != nil {
		log.Warn().Err(err).Str("worksheet", a.worksheet).Int("rows", len(table)).Msg("Failed to clear trailing worksheet rows")
	}
	return nil
}

func (a *FeedbackAdapter) rangeFrom(row int) string {
	return fmt.Sprintf("%s!A%d:%s", quoteSheetName(a.worksheet), row, lastColumn)
}

func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// EncodeRows renders the table as worksheet rows, header first.
func EncodeRows(table entities.FeedbackTable) [][]interface{} {
	rows := make([][]interface{}, 0, len(table)+1)
	rows = append(rows, Header)
	for _, r := range table {
		rows = append(rows, []interface{}{r.RequestID, r.Rating, r.Comment, r.ContactEmail, r.Email})
	}
	return rows
}

// DecodeRows parses worksheet rows. The first row must be a header naming at
// least request_id; columns may appear in any order and unknown ones are
// ignored. Entirely blank rows are skipped.
func DecodeRows(rows [][]interface{}) (entities.FeedbackTable, error) {
	table := entities.FeedbackTable{}
	if len(rows) == 0 {
		return table, nil
	}

	index := map[string]int{}
	for i, cell := range rows[0] {
		name := strings.ToLower(strings.TrimSpace(cellString(cell)))
		if name == columnContactEmailAlias {
			name = ColumnContactEmail
		}
		if _, dup := index[name]; name != "" && !dup {
			index[name] = i
		}
	}
	if _, ok := index[ColumnRequestID]; !ok {
		return nil, fmt.Errorf("header row has no %q column", ColumnRequestID)
	}

	get := func(row []interface{}, column string) interface{} {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	for n, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		sheetRow := n + 2

		requestID, err := cellInt(get(row, ColumnRequestID))
		if err != nil {
			return nil, fmt.Errorf("row %d: request_id: %w", sheetRow, err)
		}
		rating, err := cellInt(get(row, ColumnRating))
		if err != nil {
			return nil, fmt.Errorf("row %d: rating: %w", sheetRow, err)
		}

		table = append(table, entities.FeedbackRecord{
			RequestID:    requestID,
			Rating:       int(rating),
			Comment:      cellString(get(row, ColumnComment)),
			ContactEmail: cellString(get(row, ColumnContactEmail)),
			Email:        cellString(get(row, ColumnEmail)),
		})
	}
	return table, nil
}

func blankRow(row []interface{}) bool {
	for _, cell := range row {
		if strings.TrimSpace(cellString(cell)) != "" {
			return false
		}
	}
	return true
}

func cellString(cell interface{}) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// cellInt reads a whole number; blank cells and NaN placeholders are zero.
func cellInt(cell interface{}) (int64, error) {
	switch v := cell.(type) {
	case nil:
		return 0, nil
	case float64:
		if math.IsNaN(v) {
			return 0, nil
		}
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int64(v), nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	}

	s := strings.TrimSpace(cellString(cell))
	if s == "" || strings.EqualFold(s, "nan") {
		return 0, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int64(f), nil
}
