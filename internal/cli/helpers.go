package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hull/internal/board"
	"github.com/roach88/hull/internal/ledger"
	"github.com/roach88/hull/internal/metrics"
)

// withApp opens the app for the duration of fn.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(ctx context.Context, a *app, f *OutputFormatter) error) error {
	ctx := cmdContext(cmd)
	a, err := openApp(ctx, opts, metrics.Nop{})
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a, opts.formatter(cmd))
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid id %q: must be a positive integer", s))
	}
	return id, nil
}

func parsePosition(s string) (int64, error) {
	pos, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid position %q", s))
	}
	return pos, nil
}

// deleted is the payload of delete commands.
type deleted struct {
	Deleted bool   `json:"deleted"`
	Entity  string `json:"entity"`
	ID      string `json:"id"`
}

func renderDeleted(f *OutputFormatter, entity, id string) error {
	return f.Render(deleted{Deleted: true, Entity: entity, ID: id}, func(w io.Writer) {
		fmt.Fprintf(w, "Deleted %s %s\n", entity, id)
	})
}

func table(w io.Writer, header string, rows func(tw *tabwriter.Writer)) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	tw.Flush()
}

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func writeGroups(w io.Writer, groups []board.Group) {
	table(w, "ID\tPOS\tNAME\tUPDATED", func(tw *tabwriter.Writer) {
		for _, g := range groups {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", g.ID, g.Position, g.Name, stamp(g.UpdatedAt.Time))
		}
	})
}

func writeItems(w io.Writer, items []board.Item) {
	table(w, "ID\tGROUP\tPOS\tSTATUS\tCOLOR\tTITLE", func(tw *tabwriter.Writer) {
		for _, it := range items {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%s\n", it.ID, it.GroupID, it.Position, it.Status, it.Color, it.Title)
		}
	})
}

func writeWorkers(w io.Writer, workers []board.Worker) {
	table(w, "ID\tSIGIL\tSTATUS\tGROUP\tLAST SEEN", func(tw *tabwriter.Writer) {
		for _, wk := range workers {
			group := "-"
			if wk.GroupID != nil {
				group = strconv.FormatInt(*wk.GroupID, 10)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", wk.ID, wk.Sigil, wk.Status, group, stamp(wk.LastSeen.Time))
		}
	})
}

func writeEvents(w io.Writer, events []ledger.Event) {
	table(w, "ID\tTIMESTAMP\tKIND\tPAYLOAD", func(tw *tabwriter.Writer) {
		for _, ev := range events {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", ev.ID, ledger.FormatTime(ev.Timestamp), ev.Tag, ev.Payload)
		}
	})
}
