package diagram

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/id"
)

func newTestEditor(t *testing.T, doc *Document) *Editor {
	t.Helper()
	return NewEditor(doc, id.NewSequence(1_700_000_000_000), rand.New(rand.NewPCG(1, 2)))
}

func TestDefault(t *testing.T) {
	doc := Default()

	require.Len(t, doc.Nodes, 2)
	assert.Empty(t, doc.Edges)
	assert.Equal(t, "1", doc.Nodes[0].ID)
	assert.Equal(t, "Nodo 1", doc.Nodes[0].Label)
	assert.Equal(t, Position{X: 300, Y: 100}, doc.Nodes[1].Position)
	assert.NoError(t, doc.Validate())
}

func TestEqual(t *testing.T) {
	a := Default()
	b := Default()
	assert.True(t, a.Equal(a))
	assert.True(t, a.Equal(b))

	b.Nodes[0].Position.X++
	assert.False(t, a.Equal(b))

	c := Default()
	c.Nodes[0], c.Nodes[1] = c.Nodes[1], c.Nodes[0]
	assert.False(t, a.Equal(c), "comparison is order-sensitive")
}

func TestClone_IsIndependent(t *testing.T) {
	a := Default()
	b := a.Clone()

	require.NoError(t, b.RelabelNode("1", "changed"))
	assert.Equal(t, "Nodo 1", a.Nodes[0].Label)
}

func TestEditor_AddNode(t *testing.T) {
	doc := Default()
	ed := newTestEditor(t, &doc)

	n, err := ed.AddNode("X")
	require.NoError(t, err)

	assert.Len(t, doc.Nodes, 3)
	assert.Equal(t, "X", n.Label)
	assert.Equal(t, KindLabel, n.Kind)
	assert.GreaterOrEqual(t, n.Position.X, 0.0)
	assert.Less(t, n.Position.X, 500.0)

	ids := map[string]bool{}
	for _, node := range doc.Nodes {
		assert.False(t, ids[node.ID], "duplicate id %s", node.ID)
		ids[node.ID] = true
	}
}

func TestEditor_AddNodeDefaultLabel(t *testing.T) {
	doc := Default()
	ed := newTestEditor(t, &doc)

	n, err := ed.AddNode("  ")
	require.NoError(t, err)
	assert.Equal(t, "Nodo 3", n.Label)

	img, err := ed.AddImageNode("", "https://img.example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "Nodo con imagen 4", img.Label)
	assert.Equal(t, KindImage, img.Kind)
}

func TestEditor_AddImageNodeRejectsBadURL(t *testing.T) {
	doc := Default()
	ed := newTestEditor(t, &doc)

	_, err := ed.AddImageNode("pic", "not a url")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Len(t, doc.Nodes, 2)
}

func TestEditor_SkipsLoadedIDs(t *testing.T) {
	doc := Document{Nodes: []Node{{ID: "9999999999999", Kind: KindLabel, Label: "late"}}}
	ed := newTestEditor(t, &doc)

	n, err := ed.AddNode("next")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000", n.ID)
}

func TestAddNode_DuplicateID(t *testing.T) {
	doc := Default()
	err := doc.AddNode(Node{ID: "1", Kind: KindLabel, Label: "again"})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestDeleteNode_CascadesExactlyTouchingEdges(t *testing.T) {
	doc := Default()
	require.NoError(t, doc.AddNode(Node{ID: "3", Kind: KindLabel, Label: "three"}))
	_, err := doc.Connect("1", "2")
	require.NoError(t, err)
	_, err = doc.Connect("2", "3")
	require.NoError(t, err)
	_, err = doc.Connect("3", "1")
	require.NoError(t, err)
	keep, err := doc.Connect("1", "3")
	require.NoError(t, err)

	removed, err := doc.DeleteNode("2")
	require.NoError(t, err)

	assert.Equal(t, 2, removed)
	require.Len(t, doc.Edges, 2)
	for _, e := range doc.Edges {
		assert.NotEqual(t, "2", e.Source)
		assert.NotEqual(t, "2", e.Target)
	}
	assert.Equal(t, keep, doc.Edges[1])
	assert.NoError(t, doc.Validate())
}

func TestDeleteNode_Missing(t *testing.T) {
	doc := Default()
	_, err := doc.DeleteNode("nope")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestConnect_KeepsDuplicates(t *testing.T) {
	doc := Default()

	first, err := doc.Connect("1", "2")
	require.NoError(t, err)
	second, err := doc.Connect("1", "2")
	require.NoError(t, err)

	require.Len(t, doc.Edges, 2)
	assert.Equal(t, "reactflow__edge-1-2", first.ID)
	assert.Equal(t, "reactflow__edge-1-2-2", second.ID)
	assert.Equal(t, "1", second.Source)
	assert.Equal(t, "2", second.Target)
}

func TestConnect_MissingEndpoint(t *testing.T) {
	doc := Default()

	_, err := doc.Connect("1", "42")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Empty(t, doc.Edges)
}

func TestRelabelNode(t *testing.T) {
	doc := Default()

	require.NoError(t, doc.RelabelNode("2", "Idea"))
	assert.Equal(t, "Idea", doc.Nodes[1].Label)

	err := doc.RelabelNode("2", "   ")
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Equal(t, "Idea", doc.Nodes[1].Label)
}

func TestSetNodeImage(t *testing.T) {
	doc := Default()

	require.NoError(t, doc.SetNodeImage("1", "https://img.example.com/cat.png"))
	n, ok := doc.Node("1")
	require.True(t, ok)
	assert.Equal(t, KindImage, n.Kind)
	assert.Equal(t, "Nodo 1", n.Label)

	assert.ErrorIs(t, doc.SetNodeImage("2", "cat.png"), domainerrors.ErrValidation)
	assert.ErrorIs(t, doc.SetNodeImage("7", "https://img.example.com/cat.png"), domainerrors.ErrNotFound)
}

func TestMoveAndEdgeOps(t *testing.T) {
	doc := Default()
	require.NoError(t, doc.MoveNode("1", Position{X: -5, Y: 12.5}))
	assert.Equal(t, Position{X: -5, Y: 12.5}, doc.Nodes[0].Position)

	e, err := doc.Connect("2", "1")
	require.NoError(t, err)
	require.NoError(t, doc.RelabelEdge(e.ID, " depends on "))
	assert.Equal(t, "depends on", doc.Edges[0].Label)

	require.NoError(t, doc.DeleteEdge(e.ID))
	assert.Empty(t, doc.Edges)
	assert.ErrorIs(t, doc.DeleteEdge(e.ID), domainerrors.ErrNotFound)
}

func TestMoveNode_RejectsNonFinite(t *testing.T) {
	for name, pos := range map[string]Position{
		"nan x":  {X: math.NaN(), Y: 0},
		"nan y":  {X: 0, Y: math.NaN()},
		"+inf":   {X: math.Inf(1), Y: 0},
		"-inf y": {X: 0, Y: math.Inf(-1)},
	} {
		doc := Default()
		err := doc.MoveNode("1", pos)
		assert.ErrorIs(t, err, domainerrors.ErrValidation, name)
		assert.True(t, doc.Equal(Default()), name)
	}

	doc := Default()
	extreme := Position{X: math.MaxFloat64, Y: -math.MaxFloat64}
	require.NoError(t, doc.MoveNode("1", extreme))
	assert.True(t, doc.Equal(doc.Clone()))
	_, err := Encode(doc)
	require.NoError(t, err)

	require.NoError(t, doc.MoveNode("2", Position{X: 0, Y: math.Copysign(0, -1)}))
}

func TestAddNode_RejectsNonFinitePosition(t *testing.T) {
	doc := Default()
	ed := newTestEditor(t, &doc)

	_, err := ed.AddNodeAt("lost", Position{X: math.Inf(1), Y: 1})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Len(t, doc.Nodes, 2)
}

func TestValidate(t *testing.T) {
	dangling := Default()
	dangling.Edges = append(dangling.Edges, Edge{ID: "e", Source: "1", Target: "9"})
	assert.ErrorIs(t, dangling.Validate(), domainerrors.ErrValidation)

	dup := Default()
	dup.Nodes[1].ID = "1"
	assert.ErrorIs(t, dup.Validate(), domainerrors.ErrValidation)

	unknown := Default()
	unknown.Nodes[0].Kind = "group"
	assert.ErrorIs(t, unknown.Validate(), domainerrors.ErrValidation)
}
