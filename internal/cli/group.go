package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/hull/internal/board"
)

// NewGroupCommand creates the group command tree.
func NewGroupCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage work-in-progress groups",
	}
	cmd.AddCommand(
		newGroupCreateCommand(opts),
		newGroupListCommand(opts),
		newGroupGetCommand(opts),
		newGroupUpdateCommand(opts),
		newGroupReorderCommand(opts),
		newGroupDeleteCommand(opts),
	)
	return cmd
}

func newGroupCreateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "create NAME",
		Short:         "Create a group at the end of the board",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				g, err := a.gateway.CreateGroup(ctx, board.NewGroup{Name: args[0]})
				if err != nil {
					return f.Fail("create group failed", err)
				}
				return renderGroup(f, g)
			})
		},
	}
}

func newGroupListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List groups by position",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				groups, err := a.gateway.ListGroups(ctx)
				if err != nil {
					return f.Fail("list groups failed", err)
				}
				return f.Render(groups, func(w io.Writer) { writeGroups(w, groups) })
			})
		},
	}
}

func newGroupGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get ID",
		Short:         "Show one group",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				g, err := a.gateway.GetGroup(ctx, id)
				if err != nil {
					return f.Fail("get group failed", err)
				}
				return renderGroup(f, g)
			})
		},
	}
}

func newGroupUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		name     string
		position int64
	)
	cmd := &cobra.Command{
		Use:           "update ID",
		Short:         "Rename or move a group",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p board.GroupPatch
			if cmd.Flags().Changed("name") {
				p.Name = &name
			}
			if cmd.Flags().Changed("position") {
				p.Position = &position
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				g, err := a.gateway.UpdateGroup(ctx, id, p)
				if err != nil {
					return f.Fail("update group failed", err)
				}
				return renderGroup(f, g)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().Int64Var(&position, "position", 0, "new position")
	return cmd
}

func newGroupReorderCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reorder ID POSITION",
		Short:         "Move a group to a position",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				g, err := a.gateway.ReorderGroup(ctx, id, pos)
				if err != nil {
					return f.Fail("reorder group failed", err)
				}
				return renderGroup(f, g)
			})
		},
	}
}

func newGroupDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete ID",
		Short:         "Delete an empty group",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				if _, err := a.gateway.DeleteGroup(ctx, id); err != nil {
					return f.Fail("delete group failed", err)
				}
				return renderDeleted(f, "group", args[0])
			})
		},
	}
}

func renderGroup(f *OutputFormatter, g board.Group) error {
	return f.Render(g, func(w io.Writer) { writeGroups(w, []board.Group{g}) })
}
