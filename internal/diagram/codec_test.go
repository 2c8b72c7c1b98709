package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
)

// A payload as the browser editor writes it.
const browserPayload = `{
  "nodes": [
    {"id":"1","type":"default","position":{"x":100,"y":100},"data":{"label":"Nodo 1"},"sourcePosition":"right","targetPosition":"left","selected":true},
    {"id":"1715000000000","type":"imageNode","position":{"x":12.5,"y":300},"data":{"label":"Logo","imageUrl":"https://img.example.com/logo.png"},"width":150,"height":80},
    {"id":"2","position":{"x":300,"y":100},"data":{"label":"Nodo 2"}}
  ],
  "edges": [
    {"source":"1","sourceHandle":null,"target":"2","targetHandle":null,"markerEnd":{"type":"arrowclosed","color":"#6366f1"},"style":{"strokeWidth":2,"stroke":"#6366f1"},"id":"reactflow__edge-1-2"}
  ]
}`

func TestDecode_BrowserPayload(t *testing.T) {
	doc, err := DecodeString(browserPayload)
	require.NoError(t, err)

	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, KindImage, doc.Nodes[1].Kind)
	assert.Equal(t, "https://img.example.com/logo.png", doc.Nodes[1].ImageURL)
	assert.Equal(t, Position{X: 12.5, Y: 300}, doc.Nodes[1].Position)
	assert.Equal(t, KindLabel, doc.Nodes[2].Kind, "missing type defaults to label")

	require.Len(t, doc.Edges, 1)
	assert.Equal(t, Edge{ID: "reactflow__edge-1-2", Source: "1", Target: "2"}, doc.Edges[0])
}

func TestEncodeDecode_PreservesDocument(t *testing.T) {
	doc := Default()
	require.NoError(t, doc.SetNodeImage("2", "https://img.example.com/x.png"))
	e, err := doc.Connect("1", "2")
	require.NoError(t, err)
	require.NoError(t, doc.RelabelEdge(e.ID, "leads to"))

	payload, err := EncodeString(doc)
	require.NoError(t, err)
	assert.Contains(t, payload, `"sourcePosition":"right"`)
	assert.Contains(t, payload, `"markerEnd":{"type":"arrowclosed"`)

	back, err := DecodeString(payload)
	require.NoError(t, err)
	assert.True(t, doc.Equal(back))
}

func TestEncode_EmptyEdgesIsArray(t *testing.T) {
	payload, err := EncodeString(Document{})
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[],"edges":[]}`, payload)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `{nodes`},
		{"missing edges", `{"nodes":[]}`},
		{"missing nodes", `{"edges":[]}`},
		{"unknown type", `{"nodes":[{"id":"1","type":"group","position":{"x":0,"y":0},"data":{"label":"g"}}],"edges":[]}`},
		{"image without url", `{"nodes":[{"id":"1","type":"imageNode","position":{"x":0,"y":0},"data":{"label":"g"}}],"edges":[]}`},
		{"dangling edge", `{"nodes":[{"id":"1","position":{"x":0,"y":0},"data":{"label":"a"}}],"edges":[{"id":"e","source":"1","target":"2"}]}`},
		{"duplicate node", `{"nodes":[{"id":"1","data":{"label":"a"}},{"id":"1","data":{"label":"b"}}],"edges":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeString(tt.payload)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
		})
	}
}

func TestStats(t *testing.T) {
	n, e := Stats(browserPayload)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, e)

	n, e = Stats("garbage")
	assert.Zero(t, n)
	assert.Zero(t, e)

	n, e = Stats(`{"nodes":[` + strings.Repeat(`{},`, 4) + `{}]}`)
	assert.Equal(t, 5, n)
	assert.Zero(t, e)
}
