package search

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	"github.com/zatekoja/sheetfeedback/internal/domain/repositories"
	tsclient "github.com/zatekoja/sheetfeedback/internal/infrastructure/clients/typesense"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// FeedbackSearchAdapter indexes feedback comments in Typesense
type FeedbackSearchAdapter struct {
	client *tsclient.Client
}

var _ repositories.FeedbackSearchRepository = (*FeedbackSearchAdapter)(nil)

// NewFeedbackSearchAdapter creates a new Typesense-backed feedback index
func NewFeedbackSearchAdapter(client *tsclient.Client) *FeedbackSearchAdapter {
	return &FeedbackSearchAdapter{client: client}
}

// Index upserts one row
func (a *FeedbackSearchAdapter) Index(ctx context.Context, row int, record entities.FeedbackRecord) error {
	_, err := a.client.Client().Collection(tsclient.FeedbackCollection).Documents().Upsert(ctx, buildDocument(row, record))
	if err != nil {
		return fmt.Errorf("failed to index feedback row %d: %w", row, err)
	}
	return nil
}

// Rebuild recreates the collection from table
func (a *FeedbackSearchAdapter) Rebuild(ctx context.Context, table entities.FeedbackTable) error {
	if err := a.client.DropCollection(ctx); err != nil {
		return err
	}
	if err := a.client.InitSchema(ctx); err != nil {
		return err
	}

	for row, record := range table {
		if err := a.Index(ctx, row, record); err != nil {
			return err
		}
	}

	log.Info().Int("rows", len(table)).Msg("Rebuilt feedback search index")
	return nil
}

// Search runs a full-text query over comments, oldest rows first
func (a *FeedbackSearchAdapter) Search(ctx context.Context, query string, limit int) ([]entities.FeedbackSearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = "*"
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	params := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("comment"),
		SortBy:  pointer.String("_text_match:desc,row:asc"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.FeedbackCollection).Documents().Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search feedback: %w", err)
	}

	hits := []entities.FeedbackSearchHit{}
	if result.Hits == nil {
		return hits, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		hits = append(hits, parseDocument(*hit.Document))
	}
	return hits, nil
}

func documentID(row int) string {
	return "row-" + strconv.Itoa(row)
}

func buildDocument(row int, record entities.FeedbackRecord) map[string]interface{} {
	doc := map[string]interface{}{
		"id":         documentID(row),
		"row":        row,
		"request_id": record.RequestID,
		"rating":     record.Rating,
		"comment":    record.Comment,
	}
	if record.Email != "" {
		doc["email"] = record.Email
	}
	if record.ContactEmail != "" {
		doc["contact_email"] = record.ContactEmail
	}
	return doc
}

// parseDocument tolerates missing fields; JSON numbers arrive as float64.
func parseDocument(doc map[string]interface{}) entities.FeedbackSearchHit {
	hit := entities.FeedbackSearchHit{}
	if v, ok := doc["row"].(float64); ok {
		hit.Row = int(v)
	}
	if v, ok := doc["request_id"].(float64); ok {
		hit.Record.RequestID = int64(v)
	}
	if v, ok := doc["rating"].(float64); ok {
		hit.Record.Rating = int(v)
	}
	hit.Record.Comment, _ = doc["comment"].(string)
	hit.Record.Email, _ = doc["email"].(string)
	hit.Record.ContactEmail, _ = doc["contact_email"].(string)
	return hit
}
