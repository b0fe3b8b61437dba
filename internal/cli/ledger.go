package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hull/internal/archive"
	"github.com/roach88/hull/internal/ledger"
)

// NewLedgerCommand creates the ledger command tree.
func NewLedgerCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and export the event ledger",
	}
	cmd.AddCommand(newLedgerListCommand(opts), newLedgerExportCommand(opts))
	return cmd
}

func newLedgerListCommand(opts *RootOptions) *cobra.Command {
	var (
		after int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger events in order",
		Long: `List ledger events with id greater than --after, oldest first.

Examples:
  hull ledger list
  hull ledger list --after 120 --limit 20 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid limit %d: must be positive", limit))
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				events, err := ledger.ReadPage(ctx, a.store.DB(), after, limit)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to read ledger", err)
				}
				return f.Render(events, func(w io.Writer) { writeEvents(w, events) })
			})
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "only events with a greater id")
	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of events")
	return cmd
}

func newLedgerExportCommand(opts *RootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole ledger as JSON lines",
		Long: `Write every ledger event as one JSON object per line, oldest first.
Without --out the events go to stdout.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				if out == "" {
					if _, err := archive.Export(ctx, a.store.DB(), cmd.OutOrStdout()); err != nil {
						return WrapExitError(ExitCommandError, "failed to export ledger", err)
					}
					return nil
				}

				file, err := os.Create(out)
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to create output file", err)
				}
				n, err := archive.Export(ctx, a.store.DB(), file)
				if cerr := file.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to export ledger", err)
				}
				f.VerboseLog("exported %d events to %s", n, out)
				return f.Render(exported{Events: n, Path: out}, func(w io.Writer) {
					fmt.Fprintf(w, "Exported %d events to %s\n", n, out)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

type exported struct {
	Events int    `json:"events"`
	Path   string `json:"path"`
}
