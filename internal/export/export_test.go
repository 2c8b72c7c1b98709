package export

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindmapapp/mindmap/internal/diagram"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
)

func sample(t *testing.T) diagram.Document {
	t.Helper()
	doc := diagram.Default()
	_, err := doc.Connect("1", "2")
	require.NoError(t, err)
	require.NoError(t, doc.AddNode(diagram.Node{
		ID:       "3",
		Kind:     diagram.KindImage,
		Position: diagram.Position{X: 300, Y: 250},
		Label:    "Imagen 3",
		ImageURL: "https://example.com/a.png",
	}))
	return doc
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "PNG": FormatPNG, ".jpg": FormatJPEG, "jpeg": FormatJPEG} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("pdf")
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "lluvia-de-ideas-diseno.png", FileName("Lluvia de ideas: Diseño", FormatPNG))
	assert.Equal(t, "diagrama.jpeg", FileName("🐉", FormatJPEG))
	assert.Equal(t, "diagrama.json", FileName("   ", FormatJSON))
}

func TestJSON_RoundTrip(t *testing.T) {
	doc := sample(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, doc))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{\n  \"nodes\""), out)
	assert.True(t, strings.HasSuffix(out, "}\n"))

	got, err := ReadJSON(strings.NewReader(out))
	require.NoError(t, err)
	assert.True(t, doc.Equal(got))
}

func TestReadJSON_Rejects(t *testing.T) {
	for name, input := range map[string]string{
		"missing edges": `{"nodes":[]}`,
		"missing nodes": `{"edges":[]}`,
		"not json":      `nodes, edges`,
		"dangling edge": `{"nodes":[{"id":"1","position":{"x":0,"y":0},"data":{"label":"a"}}],"edges":[{"id":"e","source":"1","target":"9"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadJSON(strings.NewReader(input))
			require.Error(t, err)
			assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
		})
	}
}

func TestReadJSON_TooLarge(t *testing.T) {
	big := `{"nodes":[],"edges":[],"pad":"` + strings.Repeat("x", maxImportBytes) + `"}`
	_, err := ReadJSON(strings.NewReader(big))
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestRender_Layout(t *testing.T) {
	img, err := Render(diagram.Default(), 1)
	require.NoError(t, err)

	// Nodes at (100,100) and (300,100) plus the margin on every side.
	assert.Equal(t, image.Rect(0, 0, 430, 120), img.Bounds())
	assert.Equal(t, background, color.RGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, nodeBorder, color.RGBAModel.Convert(img.At(40, 40)))
	assert.Equal(t, nodeBorder, color.RGBAModel.Convert(img.At(240, 79)))
}

func TestRender_DrawsEdges(t *testing.T) {
	doc := diagram.Default()
	_, err := doc.Connect("1", "2")
	require.NoError(t, err)

	img, err := Render(doc, 1)
	require.NoError(t, err)
	// Between the right side of node 1 and the left side of node 2.
	assert.Equal(t, edgeColor, color.RGBAModel.Convert(img.At(215, 60)))
}

func TestRender_Scale(t *testing.T) {
	img, err := Render(sample(t), 2)
	require.NoError(t, err)
	assert.Equal(t, 860, img.Bounds().Dx())
	assert.Equal(t, 2*(250+nodeHeight+padding-(100-padding)), img.Bounds().Dy())
}

func TestRender_Empty(t *testing.T) {
	img, err := Render(diagram.Document{}, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, nodeWidth+2*padding, nodeHeight+2*padding), img.Bounds())
}

func TestRender_TooLarge(t *testing.T) {
	doc := diagram.Default()
	require.NoError(t, doc.MoveNode("2", diagram.Position{X: 50000, Y: 100}))

	_, err := Render(doc, 1)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestWrite_Images(t *testing.T) {
	doc := sample(t)

	var pngBuf bytes.Buffer
	require.NoError(t, Write(&pngBuf, doc, FormatPNG))
	cfg, err := png.DecodeConfig(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, 860, cfg.Width)

	var jpegBuf bytes.Buffer
	require.NoError(t, Write(&jpegBuf, doc, FormatJPEG))
	cfg, err = jpeg.DecodeConfig(&jpegBuf)
	require.NoError(t, err)
	assert.Equal(t, 860, cfg.Width)

	assert.Error(t, WriteImage(&bytes.Buffer{}, doc, FormatJSON, 1))
}

func TestFitLabel(t *testing.T) {
	assert.Equal(t, "short", fitLabel("short", 100))

	long := strings.Repeat("palabra ", 10)
	got := fitLabel(long, 70)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.LessOrEqual(t, len(got)*7, 70)

	assert.Empty(t, fitLabel("abc", 5))
}
