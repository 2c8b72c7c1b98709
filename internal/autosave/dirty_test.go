package autosave

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mindmapapp/mindmap/internal/diagram"
)

func sampleDocuments() []diagram.Document {
	withEdge := diagram.Default()
	_, _ = withEdge.Connect("1", "2")

	image := diagram.Default()
	_ = image.SetNodeImage("2", "https://example.com/a.png")

	far := diagram.Default()
	_ = far.MoveNode("1", diagram.Position{X: -1e300, Y: 1e300})

	return []diagram.Document{
		{Nodes: []diagram.Node{}, Edges: []diagram.Edge{}},
		diagram.Default(),
		withEdge,
		image,
		far,
	}
}

func TestIsDirty_SelfIsClean(t *testing.T) {
	for _, d := range sampleDocuments() {
		base := d.Clone()
		assert.False(t, IsDirty(d, &base))
		assert.False(t, IsDirty(d, &d))
	}
}

func TestIsDirty_NoBaseline(t *testing.T) {
	assert.True(t, IsDirty(diagram.Default(), nil))
}

func TestIsDirty_AnyDifference(t *testing.T) {
	mutations := map[string]func(d *diagram.Document){
		"add node": func(d *diagram.Document) {
			_ = d.AddNode(diagram.Node{ID: "3", Kind: diagram.KindLabel, Label: "X"})
		},
		"relabel": func(d *diagram.Document) { _ = d.RelabelNode("1", "Idea") },
		"move":    func(d *diagram.Document) { _ = d.MoveNode("2", diagram.Position{X: 301, Y: 100}) },
		"connect": func(d *diagram.Document) { _, _ = d.Connect("2", "1") },
		"delete":  func(d *diagram.Document) { _, _ = d.DeleteNode("1") },
		"image":   func(d *diagram.Document) { _ = d.SetNodeImage("1", "https://example.com/x.png") },
		"reorder": func(d *diagram.Document) { d.Nodes[0], d.Nodes[1] = d.Nodes[1], d.Nodes[0] },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			base := diagram.Default()
			current := base.Clone()
			mutate(&current)

			assert.True(t, IsDirty(current, &base))
			assert.True(t, IsDirty(base, &current))
		})
	}
}
