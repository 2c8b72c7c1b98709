package export

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mindmapapp/mindmap/internal/diagram"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/util"
)

// Node boxes use the browser editor's default node size.
const (
	nodeWidth  = 150
	nodeHeight = 40
	padding    = 40
	labelInset = 6
	arrowSize  = 10
	maxCanvas  = 8192
)

var (
	background = color.RGBA{0xff, 0xff, 0xff, 0xff}
	nodeFill   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	imageFill  = color.RGBA{0xee, 0xf2, 0xff, 0xff}
	nodeBorder = color.RGBA{0x1a, 0x19, 0x2b, 0xff}
	edgeColor  = color.RGBA{0x63, 0x66, 0xf1, 0xff}
	textColor  = color.RGBA{0x22, 0x22, 0x22, 0xff}
)

var face = basicfont.Face7x13

// Render draws doc onto a white canvas that fits every node plus a margin,
// then upscales it by scale.
func Render(doc diagram.Document, scale int) (image.Image, error) {
	if scale < 1 {
		scale = 1
	}

	bounds := canvasBounds(doc)
	w, h := bounds.Dx(), bounds.Dy()
	if w*scale > maxCanvas || h*scale > maxCanvas {
		return nil, domainerrors.Validation("diagram is too large to render").
			WithDetails(map[string]any{"width": w * scale, "height": h * scale, "limit": maxCanvas})
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	boxes := make(map[string]image.Rectangle, len(doc.Nodes))
	for _, n := range doc.Nodes {
		boxes[n.ID] = nodeBox(n).Sub(bounds.Min)
	}

	// Edges go first so node boxes cover their ends.
	for _, e := range doc.Edges {
		src, ok := boxes[e.Source]
		if !ok {
			continue
		}
		dst, ok := boxes[e.Target]
		if !ok {
			continue
		}
		from := image.Pt(src.Max.X, src.Min.Y+nodeHeight/2)
		to := image.Pt(dst.Min.X, dst.Min.Y+nodeHeight/2)
		drawLine(img, from, to, edgeColor)
		drawArrow(img, from, to, edgeColor)
		if e.Label != "" {
			mid := image.Pt((from.X+to.X)/2, (from.Y+to.Y)/2)
			drawEdgeLabel(img, mid, e.Label)
		}
	}

	for _, n := range doc.Nodes {
		box := boxes[n.ID]
		fill := nodeFill
		label := n.Label
		if n.Kind == diagram.KindImage {
			fill = imageFill
			label = "[img] " + label
		}
		draw.Draw(img, box, image.NewUniform(fill), image.Point{}, draw.Src)
		strokeRect(img, box, nodeBorder)
		drawCentered(img, box, label)
	}

	if scale == 1 {
		return img, nil
	}
	scaled := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, img.Bounds(), draw.Src, nil)
	return scaled, nil
}

func nodeBox(n diagram.Node) image.Rectangle {
	x := int(math.Floor(n.Position.X))
	y := int(math.Floor(n.Position.Y))
	return image.Rect(x, y, x+nodeWidth, y+nodeHeight)
}

func canvasBounds(doc diagram.Document) image.Rectangle {
	if len(doc.Nodes) == 0 {
		return image.Rect(0, 0, nodeWidth+2*padding, nodeHeight+2*padding)
	}
	r := nodeBox(doc.Nodes[0])
	for _, n := range doc.Nodes[1:] {
		r = r.Union(nodeBox(n))
	}
	return r.Inset(-padding)
}

func strokeRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	u := image.NewUniform(c)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

// drawLine plots a two-pixel-wide segment. Points off the canvas are dropped by Set.
func drawLine(img *image.RGBA, a, b image.Point, c color.Color) {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		img.Set(a.X, a.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := a.X + int(math.Round(dx*t))
		y := a.Y + int(math.Round(dy*t))
		img.Set(x, y, c)
		img.Set(x, y+1, c)
	}
}

func drawArrow(img *image.RGBA, from, to image.Point, c color.Color) {
	angle := math.Atan2(float64(to.Y-from.Y), float64(to.X-from.X))
	for _, off := range []float64{math.Pi - 0.45, math.Pi + 0.45} {
		tip := image.Pt(
			to.X+int(math.Round(arrowSize*math.Cos(angle+off))),
			to.Y+int(math.Round(arrowSize*math.Sin(angle+off))),
		)
		drawLine(img, to, tip, c)
	}
}

func drawEdgeLabel(img *image.RGBA, mid image.Point, label string) {
	label = fitLabel(label, nodeWidth)
	width := font.MeasureString(face, label).Ceil()
	height := face.Metrics().Height.Ceil()
	box := image.Rect(mid.X-width/2-2, mid.Y-height/2-1, mid.X+width/2+2, mid.Y+height/2+1)
	draw.Draw(img, box, image.NewUniform(background), image.Point{}, draw.Src)
	drawCentered(img, box, label)
}

func drawCentered(img *image.RGBA, box image.Rectangle, label string) {
	label = fitLabel(label, box.Dx()-2*labelInset)
	if label == "" {
		return
	}
	metrics := face.Metrics()
	width := font.MeasureString(face, label)
	x := fixed.I(box.Min.X) + (fixed.I(box.Dx())-width)/2
	y := fixed.I(box.Min.Y) + (fixed.I(box.Dy())+metrics.Ascent-metrics.Descent)/2

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(label)
}

// fitLabel shortens label with a trailing ellipsis until it fits maxWidth pixels.
func fitLabel(label string, maxWidth int) string {
	limit := fixed.I(maxWidth)
	if font.MeasureString(face, label) <= limit {
		return label
	}
	for n := len([]rune(label)) - 1; n > 0; n-- {
		short := util.TruncateRunes(label, n) + "..."
		if font.MeasureString(face, short) <= limit {
			return short
		}
	}
	return ""
}
