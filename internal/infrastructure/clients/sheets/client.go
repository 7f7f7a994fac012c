package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/sheetfeedback/pkg/config"
	"github.com/zatekoja/sheetfeedback/pkg/retry"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client wraps the Sheets values API for one spreadsheet
type Client struct {
	service       *gsheets.Service
	spreadsheetID string
	worksheet     string
}

// NewClient builds a Sheets service and checks the worksheet exists.
// Without a credentials file, Application Default Credentials are used.
func NewClient(ctx context.Context, cfg *config.SheetsConfig) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	service, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	c := &Client{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		worksheet:     cfg.Worksheet,
	}

	err = retry.Connect(ctx, retry.DefaultConfig(), "Google Sheets", func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return c.probe(probeCtx)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("spreadsheet_id", cfg.SpreadsheetID).
		Str("worksheet", cfg.Worksheet).
		Msg("Connected to Google Sheets")
	return c, nil
}

func (c *Client) probe(ctx context.Context) error {
	spreadsheet, err := c.service.Spreadsheets.Get(c.spreadsheetID).
		Fields("spreadsheetId", "sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to open spreadsheet: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.worksheet {
			return nil
		}
	}
	return fmt.Errorf("worksheet %q not found in spreadsheet %s", c.worksheet, c.spreadsheetID)
}

// Worksheet returns the worksheet title the client reads and writes
func (c *Client) Worksheet() string {
	return c.worksheet
}

// Get returns the cell values of an A1 range, row-major
func (c *Client) Get(ctx context.Context, rangeA1 string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, rangeA1).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// Update overwrites the cells starting at rangeA1
func (c *Client) Update(ctx context.Context, rangeA1 string, values [][]interface{}) error {
	_, err := c.service.Spreadsheets.Values.Update(c.spreadsheetID, rangeA1, &gsheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         values,
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// Clear blanks the cells of rangeA1
func (c *Client) Clear(ctx context.Context, rangeA1 string) error {
	_, err := c.service.Spreadsheets.Values.Clear(c.spreadsheetID, rangeA1, &gsheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	return err
}
