package diagram

import (
	"math/rand/v2"
	"strings"

	"github.com/mindmapapp/mindmap/internal/id"
)

// canvasSpan bounds the random placement of new nodes.
const canvasSpan = 500

// Editor applies user-level edits to a document: it picks ids, default labels
// and positions, then delegates to the Document mutations.
type Editor struct {
	Doc *Document
	ids *id.Sequence
	rnd *rand.Rand
}

// NewEditor wraps doc. Ids already used by doc are never handed out again.
// A nil rnd uses an unseeded source.
func NewEditor(doc *Document, ids *id.Sequence, rnd *rand.Rand) *Editor {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	for _, n := range doc.Nodes {
		ids.Observe(n.ID)
	}
	return &Editor{Doc: doc, ids: ids, rnd: rnd}
}

func (e *Editor) randomPosition() Position {
	return Position{X: e.rnd.Float64() * canvasSpan, Y: e.rnd.Float64() * canvasSpan}
}

// AddNode adds a label node at a random position. A blank label gets "Nodo N".
func (e *Editor) AddNode(label string) (Node, error) {
	return e.AddNodeAt(label, e.randomPosition())
}

// AddNodeAt adds a label node at pos.
func (e *Editor) AddNodeAt(label string, pos Position) (Node, error) {
	if strings.TrimSpace(label) == "" {
		label = e.Doc.NextLabel(KindLabel)
	}
	n := Node{ID: e.ids.Next(), Kind: KindLabel, Position: pos, Label: label}
	if err := e.Doc.AddNode(n); err != nil {
		return Node{}, err
	}
	return n, nil
}

// AddImageNode adds an image node. The URL must be an absolute http(s) URL.
func (e *Editor) AddImageNode(label, url string) (Node, error) {
	if strings.TrimSpace(label) == "" {
		label = e.Doc.NextLabel(KindImage)
	}
	n := Node{
		ID:       e.ids.Next(),
		Kind:     KindImage,
		Position: e.randomPosition(),
		Label:    label,
		ImageURL: strings.TrimSpace(url),
	}
	if err := e.Doc.AddNode(n); err != nil {
		return Node{}, err
	}
	return n, nil
}
