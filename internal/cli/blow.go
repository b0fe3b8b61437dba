package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hull/internal/archive"
)

// blown is the payload of the blow command.
type blown struct {
	Blown      bool   `json:"blown"`
	ArchiveKey string `json:"archive_key,omitempty"`
	Archived   int    `json:"archived_events,omitempty"`
}

// NewBlowCommand creates the emergency blow command.
func NewBlowCommand(opts *RootOptions) *cobra.Command {
	var yes, withArchive bool

	cmd := &cobra.Command{
		Use:   "blow",
		Short: "Emergency blow: empty the board without touching the ledger",
		Long: `Delete every group, item and worker. The ledger is kept, so
"hull rewind" restores the board afterwards. Configured emergency_blow
hooks run once the tables are empty.

With --archive the ledger is first copied to the configured archive
destination (archive.dir or archive.s3).

Examples:
  hull blow --yes
  hull blow --yes --archive`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to blow without --yes")
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				var res blown
				if withArchive {
					sink, err := openSink(ctx, opts.Config.Archive)
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to open archive", err)
					}
					res.ArchiveKey, res.Archived, err = archive.Snapshot(ctx, a.store.DB(), sink, time.Now())
					if err != nil {
						return WrapExitError(ExitCommandError, "failed to archive ledger", err)
					}
					f.VerboseLog("archived %d events to %s", res.Archived, res.ArchiveKey)
				}

				if err := a.engine.EmergencyBlow(ctx); err != nil {
					return f.Fail("emergency blow failed", err)
				}
				res.Blown = true
				return f.Render(res, func(w io.Writer) {
					if res.ArchiveKey != "" {
						fmt.Fprintf(w, "Archived %d events to %s\n", res.Archived, res.ArchiveKey)
					}
					fmt.Fprintln(w, "Board emptied; run \"hull rewind\" to restore it")
				})
			})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the blow")
	cmd.Flags().BoolVar(&withArchive, "archive", false, "archive the ledger before blowing")
	return cmd
}
