package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "MAPA", "mapa"},
		{"spaces to dashes", "lluvia de ideas", "lluvia-de-ideas"},
		{"accents folded", "Diseño Gráfico", "diseno-grafico"},
		{"punctuation", "Plan: Q3/Q4!", "plan-q3-q4"},
		{"default title", "Diagrama sin guardar - 2024-05-01", "diagrama-sin-guardar-2024-05-01"},
		{"trim dashes", "--mapa--", "mapa"},
		{"emoji only", "🐉", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestFoldAccents(t *testing.T) {
	assert.Equal(t, "Diseno", FoldAccents("Diseño"))
	assert.Equal(t, "cafe creme", FoldAccents("café crème"))
	assert.Equal(t, "🐉 mapa", FoldAccents("🐉 mapa"))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "año", TruncateRunes("años", 3))
	assert.Equal(t, "abc", TruncateRunes("abc", 10))
	assert.Equal(t, "", TruncateRunes("abc", 0))
}
