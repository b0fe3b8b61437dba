package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/hull/internal/board"
)

// NewItemCommand creates the item command tree.
func NewItemCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "item",
		Aliases: []string{"note"},
		Short:   "Manage items on the board",
	}
	cmd.AddCommand(
		newItemCreateCommand(opts),
		newItemListCommand(opts),
		newItemGetCommand(opts),
		newItemUpdateCommand(opts),
		newItemReorderCommand(opts),
		newItemDeleteCommand(opts),
	)
	return cmd
}

func newItemCreateCommand(opts *RootOptions) *cobra.Command {
	var in board.NewItem
	cmd := &cobra.Command{
		Use:           "create TITLE",
		Short:         "Create an item at the end of a group",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Title = args[0]
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				it, err := a.gateway.CreateItem(ctx, in)
				if err != nil {
					return f.Fail("create item failed", err)
				}
				return renderItem(f, it)
			})
		},
	}
	cmd.Flags().Int64Var(&in.GroupID, "group", 0, "group id (required)")
	cmd.Flags().StringVar(&in.Color, "color", "", "color (default \""+board.DefaultColor+"\")")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func newItemListCommand(opts *RootOptions) *cobra.Command {
	var group int64
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List items, optionally of one group",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				var (
					items []board.Item
					err   error
				)
				if cmd.Flags().Changed("group") {
					items, err = a.gateway.ListItemsByGroup(ctx, group)
				} else {
					items, err = a.gateway.ListItems(ctx)
				}
				if err != nil {
					return f.Fail("list items failed", err)
				}
				return f.Render(items, func(w io.Writer) { writeItems(w, items) })
			})
		},
	}
	cmd.Flags().Int64Var(&group, "group", 0, "only items of this group")
	return cmd
}

func newItemGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get ID",
		Short:         "Show one item",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				it, err := a.gateway.GetItem(ctx, id)
				if err != nil {
					return f.Fail("get item failed", err)
				}
				return renderItem(f, it)
			})
		},
	}
}

func newItemUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		title, color, status string
		group, position      int64
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change an item's fields, group or position",
		Long: `Change an item. Only the flags given are applied.

Moving an item to another group (--group) appends it to that group;
--position then places it within the new group.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var p board.ItemPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("color") {
				p.Color = &color
			}
			if flags.Changed("status") {
				p.Status = &status
			}
			if flags.Changed("group") {
				p.GroupID = &group
			}
			if flags.Changed("position") {
				p.Position = &position
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				it, err := a.gateway.UpdateItem(ctx, id, p)
				if err != nil {
					return f.Fail("update item failed", err)
				}
				return renderItem(f, it)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&color, "color", "", "new color")
	cmd.Flags().StringVar(&status, "status", "", "new status")
	cmd.Flags().Int64Var(&group, "group", 0, "move to group")
	cmd.Flags().Int64Var(&position, "position", 0, "new position")
	return cmd
}

func newItemReorderCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reorder ID POSITION",
		Short:         "Move an item within its group",
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
				it, err := a.gateway.ReorderItem(ctx, id, pos)
				if err != nil {
					return f.Fail("reorder item failed", err)
				}
				return renderItem(f, it)
			})
		},
	}
}

func newItemDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete ID",
		Short:         "Delete an item",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(opts, cmd, func(ctx context.Context, a *app, f *OutputFormatter) error {
				if _, err := a.gateway.DeleteItem(ctx, id); err != nil {
					return f.Fail("delete item failed", err)
				}
				return renderDeleted(f, "item", args[0])
			})
		},
	}
}

func renderItem(f *OutputFormatter, it board.Item) error {
	return f.Render(it, func(w io.Writer) { writeItems(w, []board.Item{it}) })
}
