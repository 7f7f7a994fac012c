package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/sheetfeedback/pkg/config"
	"github.com/zatekoja/sheetfeedback/pkg/retry"
)

const (
	FeedbackCollection = "feedback"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a Typesense client and waits for it to report healthy
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.Connect(ctx, retry.DefaultConfig(), "Typesense", func(ctx context.Context) error {
		healthy, err := client.Health(ctx, 2*time.Second)
		if err != nil {
			return err
		}
		if !healthy {
			return fmt.Errorf("typesense reported unhealthy")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// NewFromClient wraps an existing Typesense client
func NewFromClient(client *typesense.Client) *Client {
	return &Client{client: client}
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// FeedbackSchema is the collection layout for indexed feedback rows
func FeedbackSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: FeedbackCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "row", Type: "int32"},
			{Name: "request_id", Type: "int64"},
			{Name: "rating", Type: "int32", Facet: pointer.True()},
			{Name: "comment", Type: "string"},
			{Name: "email", Type: "string", Optional: pointer.True()},
			{Name: "contact_email", Type: "string", Optional: pointer.True()},
		},
		DefaultSortingField: pointer.String("row"),
	}
}

// InitSchema ensures the feedback collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	if _, err := c.client.Collection(FeedbackCollection).Retrieve(ctx); err == nil {
		return nil
	}

	if _, err := c.client.Collections().Create(ctx, FeedbackSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", FeedbackCollection).Msg("Created Typesense collection")
	return nil
}

// DropCollection deletes the feedback collection; a missing collection is not an error
func (c *Client) DropCollection(ctx context.Context) error {
	if _, err := c.client.Collection(FeedbackCollection).Retrieve(ctx); err != nil {
		return nil
	}
	if _, err := c.client.Collection(FeedbackCollection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}
