package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		env      string
		wantJSON bool
	}{
		{"production", true},
		{"staging", false},
		{"development", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(Config{Writer: &buf, Environment: tt.env, Level: slog.LevelInfo})
			l.Info("hello", "place_id", "p1")

			var decoded map[string]any
			isJSON := json.Unmarshal(buf.Bytes(), &decoded) == nil
			assert.Equal(t, tt.wantJSON, isJSON, buf.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: formatPretty, Level: slog.LevelWarn})

	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "WRN")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrettyHandler_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: formatPretty, Level: slog.LevelDebug})

	l.WithField("user_id", "u1").
		WithGroup("visit").
		Debug("saved", "place_id", "p1", "note", "two words")

	out := buf.String()
	assert.Contains(t, out, "user_id=u1")
	assert.Contains(t, out, "visit.place_id=p1")
	assert.Contains(t, out, `visit.note="two words"`)
}

func TestPrettyHandler_WithSource(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: formatPretty, AddSource: true})
	l.Info("where")
	assert.Contains(t, buf.String(), "logger_test.go:")
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-05-01T12:00:00Z", formatValue(slog.TimeValue(ts)))
	assert.Equal(t, "1.5s", formatValue(slog.DurationValue(1500*time.Millisecond)))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
	assert.Equal(t, "plain", formatValue(slog.StringValue("plain")))
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Writer: &buf, Format: formatJSON})

	l.WithError(errors.New("boom")).Error("failed")
	assert.Contains(t, buf.String(), `"error":"boom"`)

	assert.Same(t, l, l.WithError(nil))
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Writer: &buf, Format: formatJSON})
	fallback := Discard()

	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	ctx := IntoContext(context.Background(), base.WithUser("sub-1"))
	FromContext(ctx, fallback).Info("request")

	line := strings.TrimSpace(buf.String())
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &decoded))
	assert.Equal(t, "sub-1", decoded["user_id"])
}
