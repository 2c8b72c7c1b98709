package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		wantJSON    bool
	}{
		{"production uses json", "production", true},
		{"development uses pretty", "development", false},
		{"empty uses pretty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})
			log.Info("autosave tick")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"autosave tick"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
				assert.Contains(t, buf.String(), "autosave tick")
			}
		})
	}
}

func TestNew_ExplicitFormatWins(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Environment: "development", Writer: &buf})
	log.Info("saved")

	assert.Contains(t, buf.String(), `"msg":"saved"`)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelInfo})

	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))
	log.Info("snapshot written", "source", "unsaved", "bytes", 42, "title", "Mi mapa")

	out := buf.String()
	assert.Contains(t, out, "snapshot written")
	assert.Contains(t, out, "source=unsaved")
	assert.Contains(t, out, "bytes=42")
	assert.Contains(t, out, `title="Mi mapa"`)
}

func TestPrettyHandler_GroupsPrefixKeys(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)

	assert.Equal(t, h, h.WithGroup(""))

	log := slog.New(h.WithGroup("remote").WithAttrs([]slog.Attr{slog.String("op", "update")}))
	log.Info("request", "status", 404)

	out := buf.String()
	assert.Contains(t, out, "remote.op=update")
	assert.Contains(t, out, "remote.status=404")
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{AddSource: true}))
	log.Info("x")

	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatLevel(t *testing.T) {
	str, color := formatLevel(slog.LevelWarn)
	assert.Equal(t, "WRN", str)
	assert.Equal(t, colorYellow, color)

	str, _ = formatLevel(slog.LevelError + 4)
	assert.Equal(t, "ERROR+4", str)
}

func TestFormatValue(t *testing.T) {
	now := time.Now()

	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
	assert.Equal(t, now.Format(time.RFC3339), formatValue(slog.TimeValue(now)))
	assert.Equal(t, "5s", formatValue(slog.DurationValue(5*time.Second)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
}

func TestLogger_Helpers(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Writer: &buf})

	log.WithComponent("autosave").
		WithDiagram(17).
		WithError(errors.New("boom")).
		WithField("attempt", 2).
		Info("save failed")

	out := buf.String()
	assert.Contains(t, out, `"component":"autosave"`)
	assert.Contains(t, out, `"diagram_id":17`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"attempt":2`)
}

func TestLogger_WithDiagramUnsaved(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Writer: &buf})
	log.WithDiagram(0).Info("persist")

	assert.Contains(t, buf.String(), `"diagram_id":"unsaved"`)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.NotPanics(t, func() { log.Error("nothing to see") })
}
