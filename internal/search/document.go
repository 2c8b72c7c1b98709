// Package search provides full-text search over diagrams using Bleve.
// Titles and node labels are indexed accent-folded, so "diseño" and
// "diseno" find the same diagram.
package search

import (
	"strconv"

	"github.com/mindmapapp/mindmap/internal/diagram"
	"github.com/mindmapapp/mindmap/internal/domain"
	"github.com/mindmapapp/mindmap/internal/util"
)

// SearchDocument is the indexed form of a diagram.
type SearchDocument struct {
	ID        string   `json:"id"` // decimal diagram id
	OwnerID   string   `json:"owner_id"`
	Title     string   `json:"title"`
	Labels    []string `json:"labels,omitempty"`
	NodeCount int      `json:"node_count"`
	EdgeCount int      `json:"edge_count"`
	UpdatedAt int64    `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map keyed by the mapping's field names.
func (d *SearchDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"owner_id":   d.OwnerID,
		"title":      util.FoldAccents(d.Title),
		"node_count": d.NodeCount,
		"edge_count": d.EdgeCount,
		"updated_at": d.UpdatedAt,
	}
	if len(d.Labels) > 0 {
		folded := make([]string, len(d.Labels))
		for i, l := range d.Labels {
			folded[i] = util.FoldAccents(l)
		}
		m["labels"] = folded
	}
	return m
}

// DiagramToSearchDocument builds the indexed form of d. Payloads that do not
// decode as a graph are indexed by title alone.
func DiagramToSearchDocument(d *domain.Diagram) *SearchDocument {
	doc := &SearchDocument{
		ID:        DocID(d.ID),
		OwnerID:   d.UsuarioID,
		Title:     d.Titulo,
		UpdatedAt: d.UltimaModificacion.UnixMilli(),
	}

	graph, err := diagram.DecodeString(d.DatosJSON)
	if err != nil {
		return doc
	}
	doc.NodeCount = len(graph.Nodes)
	doc.EdgeCount = len(graph.Edges)
	for _, n := range graph.Nodes {
		if n.Label != "" {
			doc.Labels = append(doc.Labels, n.Label)
		}
	}
	for _, e := range graph.Edges {
		if e.Label != "" {
			doc.Labels = append(doc.Labels, e.Label)
		}
	}
	return doc
}

// DocID is the index key for a diagram id.
func DocID(id int64) string {
	return strconv.FormatInt(id, 10)
}
