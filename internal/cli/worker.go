package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/hull/internal/board"
)

// NewWorkerCommand creates the worker command tree.
func NewWorkerCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worker",
		Aliases: []string{"sprite"},
		Short:   "Manage workers",
	}
	cmd.AddCommand(
		newWorkerCreateCommand(opts),
		newWorkerListCommand(opts),
		newWorkerGetCommand(opts),
		newWorkerStatusCommand(opts),
		newWorkerHeartbeatCommand(opts),
		newWorkerAssignCommand(opts),
		newWorkerDeleteCommand(opts),
	)
	return cmd
}

func newWorkerCreateCommand(opts *RootOptions) *cobra.Command {
	var (
		in    board.NewWorker
		group int64
	)
	cmd := &cobra.Command{
		Use:           "create SIGIL",
		Short:         "Register a worker",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Sigil = args[0]
			if cmd.Flags().Changed("group") {
				in.GroupID = &group
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				w, err := a.gateway.CreateWorker(ctx, in)
				if err != nil {
					return f.Fail("create worker failed", err)
				}
				return renderWorker(f, w)
			})
		},
	}
	cmd.Flags().StringVar(&in.ID, "id", "", "worker id (default: generated UUIDv7)")
	cmd.Flags().Int64Var(&group, "group", 0, "assign to group")
	return cmd
}

func newWorkerListCommand(opts *RootOptions) *cobra.Command {
	var group int64
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List workers, optionally of one group",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				var (
					workers []board.Worker
					err     error
				)
				if cmd.Flags().Changed("group") {
					workers, err = a.gateway.ListWorkersByGroup(ctx, group)
				} else {
					workers, err = a.gateway.ListWorkers(ctx)
				}
				if err != nil {
					return f.Fail("list workers failed", err)
				}
				return f.Render(workers, func(w io.Writer) { writeWorkers(w, workers) })
			})
		},
	}
	cmd.Flags().Int64Var(&group, "group", 0, "only workers of this group")
	return cmd
}

func newWorkerGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get ID",
		Short:         "Show one worker",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				w, err := a.gateway.GetWorker(ctx, args[0])
				if err != nil {
					return f.Fail("get worker failed", err)
				}
				return renderWorker(f, w)
			})
		},
	}
}

func newWorkerStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status ID STATUS",
		Short:         "Set a worker's status (Idle, Busy, Done, Failed, ...)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				w, err := a.gateway.UpdateWorkerStatus(ctx, args[0], args[1])
				if err != nil {
					return f.Fail("update worker status failed", err)
				}
				return renderWorker(f, w)
			})
		},
	}
}

func newWorkerHeartbeatCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "heartbeat ID",
		Short:         "Record that a worker is alive",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				w, err := a.gateway.Heartbeat(ctx, args[0])
				if err != nil {
					return f.Fail("heartbeat failed", err)
				}
				return renderWorker(f, w)
			})
		},
	}
}

func newWorkerAssignCommand(opts *RootOptions) *cobra.Command {
	var group int64
	cmd := &cobra.Command{
		Use:           "assign ID",
		Short:         "Assign a worker to a group, or unassign it without --group",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var gid *int64
			if cmd.Flags().Changed("group") {
				gid = &group
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				w, err := a.gateway.AssignWorker(ctx, args[0], gid)
				if err != nil {
					return f.Fail("assign worker failed", err)
				}
				return renderWorker(f, w)
			})
		},
	}
	cmd.Flags().Int64Var(&group, "group", 0, "target group")
	return cmd
}

func newWorkerDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete ID",
		Short:         "Delete a worker",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				if _, err := a.gateway.DeleteWorker(ctx, args[0]); err != nil {
					return f.Fail("delete worker failed", err)
				}
				return renderDeleted(f, "worker", args[0])
			})
		},
	}
}

func renderWorker(f *OutputFormatter, w board.Worker) error {
	return f.Render(w, func(out io.Writer) { writeWorkers(out, []board.Worker{w}) })
}
