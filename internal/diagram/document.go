// Package diagram holds the in-memory graph being edited: nodes, edges and the
// mutations the editor applies to them.
//
// A Document is plain data. Mutations keep two invariants: node ids are unique,
// and every edge references nodes present in the same document.
package diagram

import (
	"fmt"
	"math"
	"slices"
	"strings"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/validation"
)

// Kind selects how a node renders.
type Kind string

// Node kinds, named after their wire type tag.
const (
	KindLabel Kind = "default"
	KindImage Kind = "imageNode"
)

// Valid reports whether k is a known node kind.
func (k Kind) Valid() bool {
	return k == KindLabel || k == KindImage
}

// Position is a node's canvas coordinate.
type Position struct {
	X float64
	Y float64
}

// Finite reports whether both coordinates are real numbers. NaN and
// infinities cannot be encoded and never compare equal.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Node is a vertex of the graph. ImageURL is only set on KindImage nodes.
type Node struct {
	ID       string
	Kind     Kind
	Position Position
	Label    string
	ImageURL string
}

// Edge connects two nodes. Label is optional.
type Edge struct {
	ID     string
	Source string
	Target string
	Label  string
}

// Document is the graph currently being edited.
type Document struct {
	Nodes []Node
	Edges []Edge
}

// Default returns the seed graph for a fresh session: two labelled nodes, no edges.
func Default() Document {
	return Document{
		Nodes: []Node{
			{ID: "1", Kind: KindLabel, Position: Position{X: 100, Y: 100}, Label: "Nodo 1"},
			{ID: "2", Kind: KindLabel, Position: Position{X: 300, Y: 100}, Label: "Nodo 2"},
		},
		Edges: []Edge{},
	}
}

// Clone returns a deep copy. Nodes and edges hold no references, so copying
// the slices is enough.
func (d Document) Clone() Document {
	return Document{
		Nodes: append(make([]Node, 0, len(d.Nodes)), d.Nodes...),
		Edges: append(make([]Edge, 0, len(d.Edges)), d.Edges...),
	}
}

// Equal compares two documents element for element, including order.
func (d Document) Equal(other Document) bool {
	return slices.Equal(d.Nodes, other.Nodes) && slices.Equal(d.Edges, other.Edges)
}

// Node returns the node with the given id.
func (d Document) Node(id string) (Node, bool) {
	i := d.nodeIndex(id)
	if i < 0 {
		return Node{}, false
	}
	return d.Nodes[i], true
}

// HasNode reports whether a node with the given id exists.
func (d Document) HasNode(id string) bool {
	return d.nodeIndex(id) >= 0
}

func (d Document) nodeIndex(id string) int {
	return slices.IndexFunc(d.Nodes, func(n Node) bool { return n.ID == id })
}

func (d Document) edgeIndex(id string) int {
	return slices.IndexFunc(d.Edges, func(e Edge) bool { return e.ID == id })
}

// NextLabel is the default label for a new node: "Nodo N" where N is the
// node count after insertion.
func (d Document) NextLabel(kind Kind) string {
	if kind == KindImage {
		return fmt.Sprintf("Nodo con imagen %d", len(d.Nodes)+1)
	}
	return fmt.Sprintf("Nodo %d", len(d.Nodes)+1)
}

// AddNode appends n after checking that its id is unused and its variant is well formed.
func (d *Document) AddNode(n Node) error {
	if strings.TrimSpace(n.ID) == "" {
		return domainerrors.Validation("node id is required")
	}
	if d.HasNode(n.ID) {
		return domainerrors.Conflict(fmt.Sprintf("node %q already exists", n.ID))
	}
	if err := n.validate(); err != nil {
		return err
	}
	d.Nodes = append(d.Nodes, n)
	return nil
}

func (n Node) validate() error {
	if !n.Position.Finite() {
		return domainerrors.Validationf("node %q: position must be finite", n.ID)
	}
	switch n.Kind {
	case KindLabel:
		if n.ImageURL != "" {
			return domainerrors.Validationf("node %q: label node cannot carry an image", n.ID)
		}
	case KindImage:
		if !validation.ValidImageURL(n.ImageURL) {
			return domainerrors.Validationf("node %q: invalid image URL", n.ID)
		}
	default:
		return domainerrors.Validationf("node %q: unknown type %q", n.ID, n.Kind)
	}
	return nil
}

// SetNodeImage turns a node into an image node showing url. The label is kept.
func (d *Document) SetNodeImage(id, url string) error {
	i := d.nodeIndex(id)
	if i < 0 {
		return domainerrors.NotFoundf("node %q not found", id)
	}
	if !validation.ValidImageURL(url) {
		return domainerrors.Validation("invalid image URL")
	}
	d.Nodes[i].Kind = KindImage
	d.Nodes[i].ImageURL = strings.TrimSpace(url)
	return nil
}

// RelabelNode replaces a node's label. Blank labels are rejected without mutating.
func (d *Document) RelabelNode(id, label string) error {
	if strings.TrimSpace(label) == "" {
		return domainerrors.Validation("label is required")
	}
	i := d.nodeIndex(id)
	if i < 0 {
		return domainerrors.NotFoundf("node %q not found", id)
	}
	d.Nodes[i].Label = label
	return nil
}

// MoveNode sets a node's position, as a drag does.
func (d *Document) MoveNode(id string, pos Position) error {
	i := d.nodeIndex(id)
	if i < 0 {
		return domainerrors.NotFoundf("node %q not found", id)
	}
	if !pos.Finite() {
		return domainerrors.Validationf("node %q: position must be finite", id)
	}
	d.Nodes[i].Position = pos
	return nil
}

// DeleteNode removes a node and every edge touching it. It returns the number
// of edges removed.
func (d *Document) DeleteNode(id string) (int, error) {
	i := d.nodeIndex(id)
	if i < 0 {
		return 0, domainerrors.NotFoundf("node %q not found", id)
	}
	d.Nodes = slices.Delete(d.Nodes, i, i+1)

	before := len(d.Edges)
	d.Edges = slices.DeleteFunc(d.Edges, func(e Edge) bool {
		return e.Source == id || e.Target == id
	})
	return before - len(d.Edges), nil
}

// Connect appends an edge from source to target. Repeated connects of the same
// pair are kept as separate edges with distinct ids.
func (d *Document) Connect(source, target string) (Edge, error) {
	if !d.HasNode(source) {
		return Edge{}, domainerrors.NotFoundf("source node %q not found", source)
	}
	if !d.HasNode(target) {
		return Edge{}, domainerrors.NotFoundf("target node %q not found", target)
	}

	e := Edge{ID: d.edgeID(source, target), Source: source, Target: target}
	d.Edges = append(d.Edges, e)
	return e, nil
}

// edgeID follows the "reactflow__edge-<source>-<target>" convention, suffixed
// with a counter when the pair already has an edge.
func (d Document) edgeID(source, target string) string {
	base := "reactflow__edge-" + source + "-" + target
	if d.edgeIndex(base) < 0 {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if d.edgeIndex(candidate) < 0 {
			return candidate
		}
	}
}

// RelabelEdge sets or clears an edge's label.
func (d *Document) RelabelEdge(id, label string) error {
	i := d.edgeIndex(id)
	if i < 0 {
		return domainerrors.NotFoundf("edge %q not found", id)
	}
	d.Edges[i].Label = strings.TrimSpace(label)
	return nil
}

// DeleteEdge removes a single edge.
func (d *Document) DeleteEdge(id string) error {
	i := d.edgeIndex(id)
	if i < 0 {
		return domainerrors.NotFoundf("edge %q not found", id)
	}
	d.Edges = slices.Delete(d.Edges, i, i+1)
	return nil
}

// Validate checks the document invariants: unique node ids, well-formed
// variants and no dangling edges.
func (d Document) Validate() error {
	seen := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		if n.ID == "" {
			return domainerrors.Validation("node id is required")
		}
		if _, dup := seen[n.ID]; dup {
			return domainerrors.Validationf("duplicate node id %q", n.ID)
		}
		seen[n.ID] = struct{}{}
		if err := n.validate(); err != nil {
			return err
		}
	}
	for _, e := range d.Edges {
		if _, ok := seen[e.Source]; !ok {
			return domainerrors.Validationf("edge %q references missing node %q", e.ID, e.Source)
		}
		if _, ok := seen[e.Target]; !ok {
			return domainerrors.Validationf("edge %q references missing node %q", e.ID, e.Target)
		}
	}
	return nil
}
