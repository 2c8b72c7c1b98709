package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/mindmapapp/mindmap/internal/autosave"
	"github.com/mindmapapp/mindmap/internal/catalog"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/remote"
)

const listTimeLayout = "02/01/2006 15:04"

func (a *app) list(ctx context.Context, opts docopt.Opts) error {
	entries, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}
	if term, err := opts.String("--filter"); err == nil {
		entries = catalog.Filter(entries, term)
	}
	return a.printEntries(entries)
}

func (a *app) search(ctx context.Context, opts docopt.Opts) error {
	query, _ := opts.String("<query>")
	entries, err := a.catalog.Search(ctx, query)
	if err != nil {
		return err
	}
	return a.printEntries(entries)
}

func (a *app) printEntries(entries []catalog.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No diagrams found")
		return nil
	}

	current := a.editor.RemoteID()
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tTITLE\tMODIFIED\tNODES\tEDGES")
	for _, e := range entries {
		var mark string
		switch {
		case e.ID == current:
			mark = ">"
		case e.Pending:
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%d\t%d\n",
			mark, e.ID, e.Title, e.LastModified.Local().Format(listTimeLayout), e.Nodes, e.Edges)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "> being edited, * has changes kept only on this device")
	return nil
}

func (a *app) open(ctx context.Context, opts docopt.Opts) error {
	id, err := diagramID(opts)
	if err != nil {
		return err
	}
	if left, err := a.leave(ctx, opts, "diagram "+strconv.FormatInt(id, 10)); err != nil || !left {
		return err
	}

	rec, err := a.catalog.Open(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Opened diagram %d %q\n", rec.ID, rec.Titulo)
	return nil
}

func (a *app) newDiagram(ctx context.Context, opts docopt.Opts) error {
	if left, err := a.leave(ctx, opts, "new diagram"); err != nil || !left {
		return err
	}
	if err := a.catalog.New(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Started a new diagram")
	return nil
}

func (a *app) delete(ctx context.Context, opts docopt.Opts) error {
	id, err := diagramID(opts)
	if err != nil {
		return err
	}
	if yes, _ := opts.Bool("--yes"); !yes {
		answer := a.ask(fmt.Sprintf("Delete diagram %d? This cannot be undone. [y/N] ", id))
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(a.out, "Nothing deleted")
			return nil
		}
	}

	detached, err := a.catalog.Delete(ctx, id)
	if err != nil {
		return err
	}
	if a.editor.MarkRemoteDeleted(ctx, id) || detached {
		fmt.Fprintln(a.out, "This was the diagram being edited. Its content stays in the editor; the next save creates a new copy.")
	}
	fmt.Fprintf(a.out, "Deleted diagram %d\n", id)
	return nil
}

func (a *app) gotoDestination(ctx context.Context, opts docopt.Opts) error {
	dest, _ := opts.String("<destination>")
	left, err := a.leave(ctx, opts, dest)
	if err != nil || !left {
		return err
	}
	fmt.Fprintf(a.out, "Left the editor for %s\n", dest)
	return nil
}

// leave runs the unsaved-changes guard before the editor is left for dest.
// It reports false when the user chose to stay.
func (a *app) leave(ctx context.Context, opts docopt.Opts, dest string) (bool, error) {
	res, err := a.editor.GuardedNavigate(ctx, dest, a.prompt(opts))
	if err != nil {
		return false, err
	}
	if res.Warning != nil {
		a.warn(res.Warning.Error())
	}
	if !res.Navigated {
		fmt.Fprintln(a.out, "Cancelled. Unsaved changes are still in the editor.")
		return false, nil
	}
	if res.SavedRemote {
		fmt.Fprintln(a.out, "Saved changes to the server")
	}
	return true, nil
}

// prompt answers the unsaved-changes question from --save or --discard, or
// asks on standard input. No answer means cancel.
func (a *app) prompt(opts docopt.Opts) func() autosave.Choice {
	return func() autosave.Choice {
		if ok, _ := opts.Bool("--save"); ok {
			return autosave.ChoiceSave
		}
		if ok, _ := opts.Bool("--discard"); ok {
			return autosave.ChoiceDiscard
		}
		switch strings.ToLower(a.ask("You have unsaved changes. [s]ave, [d]iscard or [c]ancel? ")) {
		case "s", "save":
			return autosave.ChoiceSave
		case "d", "discard":
			return autosave.ChoiceDiscard
		default:
			return autosave.ChoiceCancel
		}
	}
}

func (a *app) watch(ctx context.Context, _ docopt.Opts) error {
	fmt.Fprintln(a.out, "Watching for changes (Ctrl-C to stop)")

	return a.client.Watch(ctx, func(ev remote.Event) error {
		stamp := ev.Timestamp.Local().Format(time.TimeOnly)
		switch ev.Type {
		case remote.EventDiagramCreated, remote.EventDiagramUpdated:
			change, err := ev.DecodeChange()
			if err != nil {
				a.log.Warn("skipping malformed event", "type", ev.Type, "error", err)
				return nil
			}
			verb := "created"
			if ev.Type == remote.EventDiagramUpdated {
				verb = "updated"
			}
			fmt.Fprintf(a.out, "%s  %s %d %q\n", stamp, verb, change.ID, change.Titulo)
			if ev.Type == remote.EventDiagramUpdated && change.ID == a.editor.RemoteID() {
				fmt.Fprintln(a.out, "          the diagram being edited changed on another device")
			}

		case remote.EventDiagramDeleted:
			gone, err := ev.DecodeDeletion()
			if err != nil {
				a.log.Warn("skipping malformed event", "type", ev.Type, "error", err)
				return nil
			}
			fmt.Fprintf(a.out, "%s  deleted %d\n", stamp, gone.DiagramID)
			if a.editor.MarkRemoteDeleted(ctx, gone.DiagramID) {
				fmt.Fprintln(a.out, "          the diagram being edited was deleted; the next save creates a new copy")
			}
		}
		return nil
	})
}

func diagramID(opts docopt.Opts) (int64, error) {
	raw, _ := opts.String("<id>")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domainerrors.Validationf("invalid diagram id %q", raw)
	}
	return id, nil
}
