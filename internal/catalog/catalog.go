// Package catalog lists, opens and deletes the signed-in user's diagrams.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mindmapapp/mindmap/internal/diagram"
	"github.com/mindmapapp/mindmap/internal/remote"
	"github.com/mindmapapp/mindmap/internal/snapshot"
	"github.com/mindmapapp/mindmap/internal/util"
)

// Entry is one row of the catalog.
type Entry struct {
	ID           int64
	Title        string
	LastModified time.Time
	Nodes        int
	Edges        int
	// Pending is set when the device holds local edits the server has not seen.
	Pending bool
}

// Remote is the subset of the diagram service the catalog uses.
type Remote interface {
	ListDiagrams(ctx context.Context) ([]remote.Diagram, error)
	SearchDiagrams(ctx context.Context, query string) ([]remote.Diagram, error)
	GetDiagram(ctx context.Context, id int64) (*remote.Diagram, error)
	DeleteDiagram(ctx context.Context, id int64) error
}

// Store is the device snapshot. *snapshot.Store implements it.
type Store interface {
	Current(ctx context.Context) (*snapshot.Record, error)
	SaveCurrent(ctx context.Context, rec *snapshot.Record) error
	ClearCurrent(ctx context.Context) error
	ListModified(ctx context.Context) ([]*snapshot.Record, error)
	DeleteModified(ctx context.Context, id int64) error
}

// Catalog is the diagram browser.
type Catalog struct {
	remote Remote
	store  Store
	logger *slog.Logger
}

// New creates a catalog.
func New(r Remote, store Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Catalog{remote: r, store: store, logger: logger}
}

// List returns every diagram of the user, most recently modified first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	diagrams, err := c.remote.ListDiagrams(ctx)
	if err != nil {
		return nil, err
	}
	return c.entries(ctx, diagrams), nil
}

// Search runs a server-side full-text search. A blank query lists everything.
func (c *Catalog) Search(ctx context.Context, query string) ([]Entry, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return c.List(ctx)
	}
	diagrams, err := c.remote.SearchDiagrams(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.entries(ctx, diagrams), nil
}

// Filter keeps the entries whose title contains term, ignoring case and accents.
func Filter(entries []Entry, term string) []Entry {
	needle := fold(term)
	if needle == "" {
		return entries
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(fold(e.Title), needle) {
			out = append(out, e)
		}
	}
	return out
}

func fold(s string) string {
	return strings.ToLower(util.FoldAccents(strings.TrimSpace(s)))
}

func (c *Catalog) entries(ctx context.Context, diagrams []remote.Diagram) []Entry {
	pending := map[int64]bool{}
	if modified, err := c.store.ListModified(ctx); err == nil {
		for _, rec := range modified {
			pending[rec.ID] = true
		}
	} else {
		c.logger.Warn("could not read locally modified diagrams", "error", err)
	}

	out := make([]Entry, 0, len(diagrams))
	for _, d := range diagrams {
		nodes, edges := diagram.Stats(d.DatosJSON)
		out = append(out, Entry{
			ID:           d.ID,
			Title:        d.Titulo,
			LastModified: d.UltimaModificacion,
			Nodes:        nodes,
			Edges:        edges,
			Pending:      pending[d.ID],
		})
	}
	return out
}

// Open fetches diagram id and makes it the current editing snapshot. The
// editor picks it up on its next start.
func (c *Catalog) Open(ctx context.Context, id int64) (*snapshot.Record, error) {
	d, err := c.remote.GetDiagram(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := &snapshot.Record{
		ID:                 d.ID,
		Titulo:             d.Titulo,
		DatosJSON:          d.DatosJSON,
		FechaCreacion:      d.FechaCreacion,
		UltimaModificacion: d.UltimaModificacion,
		UsuarioID:          d.UsuarioID,
		Source:             snapshot.SourceRemote,
	}
	if err := c.store.SaveCurrent(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// New clears the current editing snapshot so the editor starts from the
// default graph.
func (c *Catalog) New(ctx context.Context) error {
	return c.store.ClearCurrent(ctx)
}

// Delete removes diagram id from the server and forgets its pending local
// edits. If it is the diagram being edited, the editor keeps its content but
// loses the remote identity. It reports whether that happened.
func (c *Catalog) Delete(ctx context.Context, id int64) (bool, error) {
	if err := c.remote.DeleteDiagram(ctx, id); err != nil {
		return false, err
	}

	if err := c.store.DeleteModified(ctx, id); err != nil {
		c.logger.Warn("could not drop local edits of deleted diagram", "diagram_id", id, "error", err)
	}

	current, err := c.store.Current(ctx)
	if errors.Is(err, snapshot.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if current.ID != id {
		return false, nil
	}

	detached := *current
	detached.ID = 0
	detached.Source = snapshot.SourceUnsaved
	if err := c.store.SaveCurrent(ctx, &detached); err != nil {
		return false, err
	}
	return true, nil
}
