package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/pkg/config"
	"github.com/zatekoja/sheetfeedback/pkg/retry"
)

// feedbackSchema creates the table backing STORE_BACKEND=postgres.
// position keeps the spreadsheet row order.
const feedbackSchema = `
CREATE TABLE IF NOT EXISTS feedback (
	position      INTEGER PRIMARY KEY,
	request_id    BIGINT  NOT NULL,
	rating        INTEGER NOT NULL,
	comment       TEXT    NOT NULL DEFAULT '',
	contact_email TEXT    NOT NULL DEFAULT '',
	email         TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS feedback_request_id_idx ON feedback (request_id);
`

// Client represents a PostgreSQL database client
type Client struct {
	db *sql.DB
}

// NewClient opens a PostgreSQL pool and probes it with backoff
func NewClient(ctx context.Context, cfg *config.DatabaseConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// The workload is one small table; a modest pool is plenty.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	err = retry.Connect(ctx, retry.DefaultConfig(), "PostgreSQL", func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to PostgreSQL")
	return &Client{db: db}, nil
}

// NewFromDB wraps an existing handle (used with sqlmock in tests)
func NewFromDB(db *sql.DB) *Client {
	return &Client{db: db}
}

// EnsureSchema creates the feedback table if it does not exist
func (c *Client) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, feedbackSchema); err != nil {
		return fmt.Errorf("failed to create feedback schema: %w", err)
	}
	return nil
}

// DB returns the underlying database connection
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// BeginTx starts a new transaction
func (c *Client) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

// Ping verifies the connection to the database
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
