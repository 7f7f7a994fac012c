package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zatekoja/sheetfeedback/internal/adapters/sheets"
	"github.com/zatekoja/sheetfeedback/internal/application/services"
	"github.com/zatekoja/sheetfeedback/internal/domain/entities"
	apperrors "github.com/zatekoja/sheetfeedback/pkg/errors"
)

// FeedbackService is the part of the workflow the CLI drives.
type FeedbackService interface {
	List(ctx context.Context) (entities.FeedbackTable, error)
	Status(ctx context.Context, session entities.Session) (entities.SubmissionStatus, error)
	Submit(ctx context.Context, session entities.Session, input services.SubmissionInput) (entities.FeedbackRecord, error)
}

// opener connects a service and returns its cleanup.
type opener func(ctx context.Context) (FeedbackService, func() error, error)

type cli struct {
	open    opener
	timeout time.Duration
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	rootCmd := &cobra.Command{
		Use:   "feedbackctl",
		Short: "Inspect and maintain the feedback table",
		Long: `feedbackctl works on the same store as the feedback API, selected by
STORE_BACKEND and the matching connection settings.

Available subcommands:
  list   - Print every stored row
  check  - Show whether a request id has submitted
  submit - Store a row through the normal submission workflow
  export - Write the table out in another format`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Operation timeout")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the feedback table",
	}
	exportCmd.AddCommand(c.exportCSVCmd())

	rootCmd.AddCommand(c.listCmd())
	rootCmd.AddCommand(c.checkCmd())
	rootCmd.AddCommand(c.submitCmd())
	rootCmd.AddCommand(exportCmd)
	return rootCmd
}

// withService runs fn against a freshly opened service.
func (c *cli) withService(cmd *cobra.Command, fn func(ctx context.Context, service FeedbackService) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()

	service, closeFn, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	return fn(ctx, service)
}

func (c *cli) listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every stored row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, service FeedbackService) error {
				table, err := service.List(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(table)
				}
				return writeTable(cmd.OutOrStdout(), table)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	return cmd
}

func (c *cli) checkCmd() *cobra.Command {
	var requestID int64

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show whether a request id has submitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, service FeedbackService) error {
				status, err := service.Status(ctx, entities.Session{RequestID: requestID})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "request_id: %d\n", status.RequestID)
				fmt.Fprintf(out, "state:      %s\n", status.State)
				if status.Submitted {
					fmt.Fprintf(out, "rating:     %d (%s)\n", status.Rating, status.Sentiment)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&requestID, "request-id", 0, "Session request id")
	cmd.MarkFlagRequired("request-id")
	return cmd
}

func (c *cli) submitCmd() *cobra.Command {
	var (
		session entities.Session
		input   services.SubmissionInput
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Store a row through the normal submission workflow",
		Long: `Store a row as if the visitor with the given request id had used the form.
The usual checks apply: a request id that already submitted is refused.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if session.RequestID < entities.MinSessionRequestID {
				return fmt.Errorf("--request-id must be at least %d", entities.MinSessionRequestID)
			}
			return c.withService(cmd, func(ctx context.Context, service FeedbackService) error {
				record, err := service.Submit(ctx, session, input)
				if errors.Is(err, services.ErrAlreadySubmitted) {
					return fmt.Errorf("request id %d already submitted", session.RequestID)
				}
				if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
					return fmt.Errorf("invalid submission: %w", err)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "stored feedback for request id %d\n", record.RequestID)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&session.RequestID, "request-id", 0, "Session request id")
	cmd.Flags().StringVar(&session.ContactEmail, "contact-email", "", "Verified contact email")
	cmd.Flags().IntVar(&input.Rating, "rating", 0, "Star rating, 1 to 5")
	cmd.Flags().StringVar(&input.Comment, "comment", "", "Free-text comment")
	cmd.Flags().StringVar(&input.Email, "email", "", "Email the visitor typed in")
	cmd.MarkFlagRequired("request-id")
	return cmd
}

func (c *cli) exportCSVCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "csv",
		Short: "Write the table as CSV in worksheet column order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withService(cmd, func(ctx context.Context, service FeedbackService) error {
				table, err := service.List(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return err
					}
					defer f.Close()
					out = f
				}
				return writeCSV(out, table)
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	return cmd
}

func writeTable(w io.Writer, table entities.FeedbackTable) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST_ID\tRATING\tCOMMENT\tCONTACT_EMAIL\tEMAIL")
	for _, r := range table {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", r.RequestID, r.Rating, r.Comment, r.ContactEmail, r.Email)
	}
	return tw.Flush()
}

func writeCSV(w io.Writer, table entities.FeedbackTable) error {
	cw := csv.NewWriter(w)
	for _, row := range sheets.EncodeRows(table) {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = fmt.Sprint(cell)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
