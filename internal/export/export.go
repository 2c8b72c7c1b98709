// Package export writes the edited graph to files and reads it back.
//
// JSON dumps use the datos_json wire shape, so a dump can be imported by any
// client of the diagram service. Raster output draws node boxes, edges and
// labels; it is a snapshot for sharing, not a layout engine.
package export

import (
	"encoding/json/jsontext"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/mindmapapp/mindmap/internal/diagram"
	domainerrors "github.com/mindmapapp/mindmap/internal/errors"
	"github.com/mindmapapp/mindmap/internal/util"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

const (
	// DefaultScale doubles the canvas so labels stay legible when zoomed.
	DefaultScale = 2

	maxImportBytes = 5 << 20
	fallbackName   = "diagrama"
	maxNameRunes   = 80
)

// ParseFormat maps a user-supplied name or extension to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return "", domainerrors.Validationf("unsupported export format %q (want json, png or jpeg)", s)
	}
}

// FileName derives a file name for title. Titles with nothing usable in them
// fall back to "diagrama".
func FileName(title string, f Format) string {
	base := util.Slugify(util.TruncateRunes(title, maxNameRunes))
	if base == "" {
		base = fallbackName
	}
	return base + "." + string(f)
}

// Write renders doc in format f to w.
func Write(w io.Writer, doc diagram.Document, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatPNG, FormatJPEG:
		return WriteImage(w, doc, f, DefaultScale)
	default:
		return domainerrors.Validationf("unsupported export format %q", f)
	}
}

// WriteJSON writes doc as an indented {"nodes", "edges"} document.
func WriteJSON(w io.Writer, doc diagram.Document) error {
	data, err := diagram.Encode(doc, jsontext.WithIndent("  "))
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// ReadJSON parses a dump written by WriteJSON or by the browser editor.
// Payloads missing either "nodes" or "edges" are rejected.
func ReadJSON(r io.Reader) (diagram.Document, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImportBytes+1))
	if err != nil {
		return diagram.Document{}, fmt.Errorf("read json: %w", err)
	}
	if len(data) > maxImportBytes {
		return diagram.Document{}, domainerrors.Validation("import file is too large")
	}
	return diagram.Decode(data)
}

// WriteImage rasterizes doc and encodes it as PNG or JPEG.
func WriteImage(w io.Writer, doc diagram.Document, f Format, scale int) error {
	img, err := Render(doc, scale)
	if err != nil {
		return err
	}

	switch f {
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatJPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	default:
		return domainerrors.Validationf("%q is not an image format", f)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", f, err)
	}
	return nil
}
