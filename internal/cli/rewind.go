package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// NewRewindCommand creates the rewind command.
func NewRewindCommand(opts *RootOptions) *cobra.Command {
	var skip bool

	cmd := &cobra.Command{
		Use:   "rewind",
		Short: "Rebuild the board from the ledger",
		Long: `Truncate the board tables and replay every ledger event in order.

The rewind runs in a single transaction: if any event fails to apply the
board is left exactly as it was. Mutations arriving during a rewind are
rejected with MAINTENANCE.

Events whose kind this build does not recognize are skipped with a warning.
Events that cannot be decoded abort the rewind unless --skip-undecodable is
given (or replay.on_decode_error is "skip" in the config file).

Exit codes:
  0 - Board rebuilt
  1 - Rewind rejected (maintenance already in progress)
  2 - Command error (undecodable event, database error, etc.)

Examples:
  hull rewind
  hull rewind --skip-undecodable --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if skip {
				opts.Config.Replay.OnDecodeError = "skip"
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				rep, err := a.engine.Rewind(ctx)
				if err != nil {
					return f.Fail("rewind failed", err)
				}
				return f.Render(rep, func(w io.Writer) {
					fmt.Fprintf(w, "Rewound through event %d: %d applied, %d skipped, %d unrecognized (%s)\n",
						rep.LastEventID, rep.Applied, rep.Skipped, rep.Unrecognized, rep.Duration.Round(time.Microsecond))
				})
			})
		},
	}

	cmd.Flags().BoolVar(&skip, "skip-undecodable", false, "skip events whose payload cannot be decoded")
	return cmd
}
