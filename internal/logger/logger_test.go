package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)
	l.Info().Str("symbol", "VNQ").Msg("tracker ready")

	out := buf.String()
	assert.Contains(t, out, `"message":"tracker ready"`)
	assert.Contains(t, out, `"symbol":"VNQ"`)
	assert.Contains(t, out, `"service":"gtaa-sentinel"`)
}

func TestNewWithWriter_Levels(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			NewWithWriter(Config{Level: tt.level}, &bytes.Buffer{})
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(Config{Level: "info", Format: "console"}, &buf)
	l.Info().Msg("console line")

	out := buf.String()
	assert.Contains(t, out, "console line")
	assert.NotContains(t, out, `"message"`)
}
