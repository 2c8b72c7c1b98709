package diagram

import (
	"encoding/json/jsontext"
	"encoding/json/v2"
	"fmt"

	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
)

// Wire shapes of the datos_json payload. They follow the node-graph library's
// JSON so payloads written by the browser editor decode unchanged.
type wirePayload struct {
	Nodes *[]wireNode `json:"nodes"`
	Edges *[]wireEdge `json:"edges"`
}

type wireNode struct {
	ID             string       `json:"id"`
	Type           string       `json:"type,omitempty"`
	Position       wirePosition `json:"position"`
	Data           wireNodeData `json:"data"`
	SourcePosition string       `json:"sourcePosition,omitempty"`
	TargetPosition string       `json:"targetPosition,omitempty"`
}

type wirePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type wireNodeData struct {
	Label    string `json:"label"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type wireEdge struct {
	ID        string      `json:"id"`
	Source    string      `json:"source"`
	Target    string      `json:"target"`
	Label     string      `json:"label,omitempty"`
	MarkerEnd *wireMarker `json:"markerEnd,omitzero"`
	Style     *wireStyle  `json:"style,omitzero"`
}

type wireMarker struct {
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
}

type wireStyle struct {
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
	Stroke      string  `json:"stroke,omitempty"`
}

const edgeColor = "#6366f1"

// Encode serializes d to the datos_json payload. Options such as
// jsontext.WithIndent are passed to the marshaler.
func Encode(d Document, opts ...json.Options) ([]byte, error) {
	nodes := make([]wireNode, len(d.Nodes))
	for i, n := range d.Nodes {
		nodes[i] = wireNode{
			ID:             n.ID,
			Type:           string(n.Kind),
			Position:       wirePosition(n.Position),
			Data:           wireNodeData{Label: n.Label, ImageURL: n.ImageURL},
			SourcePosition: "right",
			TargetPosition: "left",
		}
	}

	edges := make([]wireEdge, len(d.Edges))
	for i, e := range d.Edges {
		edges[i] = wireEdge{
			ID:        e.ID,
			Source:    e.Source,
			Target:    e.Target,
			Label:     e.Label,
			MarkerEnd: &wireMarker{Type: "arrowclosed", Color: edgeColor},
			Style:     &wireStyle{StrokeWidth: 2, Stroke: edgeColor},
		}
	}

	data, err := json.Marshal(wirePayload{Nodes: &nodes, Edges: &edges}, opts...)
	if err != nil {
		return nil, fmt.Errorf("encode diagram: %w", err)
	}
	return data, nil
}

// EncodeString is Encode for callers that store the payload as text.
func EncodeString(d Document) (string, error) {
	data, err := Encode(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode parses a datos_json payload. Both "nodes" and "edges" must be present;
// node variants and edge endpoints are validated.
func Decode(data []byte) (Document, error) {
	var p wirePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Document{}, domainerrors.Wrap(err, domainerrors.CodeValidation, "invalid diagram data")
	}
	if p.Nodes == nil || p.Edges == nil {
		return Document{}, domainerrors.Validation("invalid diagram data: nodes and edges are required")
	}

	doc := Document{
		Nodes: make([]Node, 0, len(*p.Nodes)),
		Edges: make([]Edge, 0, len(*p.Edges)),
	}
	for _, wn := range *p.Nodes {
		kind := Kind(wn.Type)
		if kind == "" {
			kind = KindLabel
		}
		n := Node{
			ID:       wn.ID,
			Kind:     kind,
			Position: Position(wn.Position),
			Label:    wn.Data.Label,
		}
		if kind == KindImage {
			n.ImageURL = wn.Data.ImageURL
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	for _, we := range *p.Edges {
		doc.Edges = append(doc.Edges, Edge{ID: we.ID, Source: we.Source, Target: we.Target, Label: we.Label})
	}

	if err := doc.Validate(); err != nil {
		return Document{}, fmt.Errorf("invalid diagram data: %w", err)
	}
	return doc, nil
}

// DecodeString is Decode for text payloads.
func DecodeString(s string) (Document, error) {
	return Decode([]byte(s))
}

// Stats counts nodes and edges in a payload without validating it.
// Unparseable payloads count as empty.
func Stats(payload string) (nodes, edges int) {
	var p struct {
		Nodes []jsontext.Value `json:"nodes"`
		Edges []jsontext.Value `json:"edges"`
	}
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return 0, 0
	}
	return len(p.Nodes), len(p.Edges)
}
