package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/docopt/docopt-go"

	"github.com/mindmapapp/mindmap/internal/autosave"
	"github.com/mindmapapp/mindmap/internal/diagram"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/export"
)

func (a *app) status(_ context.Context, _ docopt.Opts) error {
	doc := a.editor.Document()

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Title:\t%s\n", orDefault(a.editor.Title(), "(untitled)"))
	if id := a.editor.RemoteID(); id != 0 {
		fmt.Fprintf(w, "Diagram:\t%d\n", id)
	} else {
		fmt.Fprintf(w, "Diagram:\tnot saved on the server\n")
	}
	fmt.Fprintf(w, "State:\t%s\n", a.editor.State())
	fmt.Fprintf(w, "Nodes:\t%d\n", len(doc.Nodes))
	fmt.Fprintf(w, "Edges:\t%d\n", len(doc.Edges))
	if user, ok := a.session.Current(); ok {
		fmt.Fprintf(w, "User:\t%s <%s>\n", user.Name, user.Email)
	} else {
		fmt.Fprintf(w, "User:\tnot logged in\n")
	}
	return w.Flush()
}

func (a *app) show(_ context.Context, _ docopt.Opts) error {
	doc := a.editor.Document()

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tKIND\tLABEL\tPOSITION\tIMAGE")
	for _, n := range doc.Nodes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.0f,%.0f\t%s\n", n.ID, n.Kind, n.Label, n.Position.X, n.Position.Y, n.ImageURL)
	}
	if len(doc.Edges) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "EDGE\tFROM\tTO\tLABEL")
		for _, e := range doc.Edges {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.ID, e.Source, e.Target, e.Label)
		}
	}
	return w.Flush()
}

func (a *app) addNode(ctx context.Context, opts docopt.Opts) error {
	label, _ := opts.String("<label>")

	var node diagram.Node
	var err error
	if at, atErr := opts.String("--at"); atErr == nil {
		pos, perr := parsePosition(at)
		if perr != nil {
			return perr
		}
		err = a.editor.Edit(func(e *diagram.Editor) (err error) {
			node, err = e.AddNodeAt(label, pos)
			return err
		})
	} else {
		node, err = a.editor.AddNode(label)
	}
	if err != nil {
		return err
	}

	a.persist(ctx)
	fmt.Fprintf(a.out, "Added node %s (%s)\n", node.ID, node.Label)
	return nil
}

func (a *app) addImageNode(ctx context.Context, opts docopt.Opts) error {
	url, _ := opts.String("<url>")
	label, _ := opts.String("<label>")

	node, err := a.editor.AddImageNode(label, url)
	if err != nil {
		return err
	}
	a.persist(ctx)
	fmt.Fprintf(a.out, "Added image node %s (%s)\n", node.ID, node.Label)
	return nil
}

func (a *app) setImage(ctx context.Context, opts docopt.Opts) error {
	id, _ := opts.String("<node>")
	url, _ := opts.String("<url>")
	return a.apply(ctx, a.editor.SetNodeImage(id, url), "Node "+id+" now shows an image")
}

func (a *app) relabel(ctx context.Context, opts docopt.Opts) error {
	id, _ := opts.String("<node>")
	label, _ := opts.String("<label>")
	return a.apply(ctx, a.editor.RelabelNode(id, label), "Renamed node "+id)
}

func (a *app) relabelEdge(ctx context.Context, opts docopt.Opts) error {
	id, _ := opts.String("<edge>")
	label, _ := opts.String("<label>")
	msg := "Labelled edge " + id
	if strings.TrimSpace(label) == "" {
		msg = "Cleared the label of edge " + id
	}
	return a.apply(ctx, a.editor.RelabelEdge(id, label), msg)
}

func (a *app) move(ctx context.Context, opts docopt.Opts) error {
	id, _ := opts.String("<node>")
	xs, _ := opts.String("<x>")
	ys, _ := opts.String("<y>")
	pos, err := parsePosition(xs + "," + ys)
	if err != nil {
		return err
	}
	return a.apply(ctx, a.editor.MoveNode(id, pos), fmt.Sprintf("Moved node %s to %.0f,%.0f", id, pos.X, pos.Y))
}

func (a *app) connect(ctx context.Context, opts docopt.Opts) error {
	source, _ := opts.String("<source>")
	target, _ := opts.String("<target>")

	before := a.editor.Document()
	edge, err := a.editor.Connect(source, target)
	if err != nil {
		return err
	}
	a.persist(ctx)

	fmt.Fprintf(a.out, "Connected %s -> %s as %s\n", source, target, edge.ID)
	for _, e := range before.Edges {
		if e.Source == source && e.Target == target {
			fmt.Fprintln(a.out, "Note: these nodes were already connected")
			break
		}
	}
	return nil
}

func (a *app) deleteNode(ctx context.Context, opts docopt.Opts) error {
	id, _ := opts.String("<node>")
	removed, err := a.editor.DeleteNode(id)
	if err != nil {
		return err
	}
	a.persist(ctx)
	fmt.Fprintf(a.out, "Deleted node %s and %d edge(s)\n", id, removed)
	return nil
}

func (a *app) deleteEdge(ctx context.Context, opts docopt.Opts) error {
	id, _ := opts.String("<edge>")
	return a.apply(ctx, a.editor.DeleteEdge(id), "Deleted edge "+id)
}

// apply finishes a simple edit: autosave and confirm, or return its error.
func (a *app) apply(ctx context.Context, err error, done string) error {
	if err != nil {
		return err
	}
	a.persist(ctx)
	fmt.Fprintln(a.out, done)
	return nil
}

func (a *app) title(ctx context.Context, opts docopt.Opts) error {
	t, err := opts.String("<title>")
	if err != nil {
		fmt.Fprintln(a.out, orDefault(a.editor.Title(), "(untitled)"))
		return nil
	}
	a.editor.SetTitle(t)
	a.persist(ctx)
	fmt.Fprintf(a.out, "Title set to %q\n", a.editor.Title())
	return nil
}

func (a *app) save(ctx context.Context, opts docopt.Opts) error {
	t, err := opts.String("<title>")
	if err != nil {
		t = a.editor.Title()
	}

	saved, err := a.editor.SaveRemote(ctx, t)
	if errors.Is(err, autosave.ErrTitleRequired) {
		return fmt.Errorf("%w (mindmap save <title>)", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved diagram %d %q\n", saved.ID, saved.Titulo)
	return nil
}

func (a *app) importFile(ctx context.Context, opts docopt.Opts) error {
	path, _ := opts.String("<path>")

	var in io.Reader = a.in
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		in = f
	}

	doc, err := export.ReadJSON(in)
	if err != nil {
		return err
	}
	if err := a.editor.Replace(doc); err != nil {
		return err
	}
	a.persist(ctx)
	fmt.Fprintf(a.out, "Imported %d node(s) and %d edge(s)\n", len(doc.Nodes), len(doc.Edges))
	return nil
}

func (a *app) export(_ context.Context, opts docopt.Opts) error {
	name, _ := opts.String("<format>")
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	doc := a.editor.Document()

	path, err := opts.String("--out")
	if err != nil {
		path = export.FileName(a.editor.Title(), format)
	}
	if path == "-" {
		return export.Write(a.out, doc, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := export.Write(f, doc, format); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	fmt.Fprintf(a.out, "Exported to %s\n", path)
	return nil
}

// parsePosition reads "x,y".
func parsePosition(s string) (diagram.Position, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return diagram.Position{}, domainerrors.Validationf("invalid position %q, want x,y", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	pos := diagram.Position{X: x, Y: y}
	if errX != nil || errY != nil || !pos.Finite() {
		return diagram.Position{}, domainerrors.Validationf("invalid position %q, want x,y", s)
	}
	return pos, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
