package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Production(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "production", slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("invoice sent", "history_id", "INV-1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "invoice sent", record["msg"])
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "INV-1", record["history_id"])
}

func TestNew_Development(t *testing.T) {
	var buf bytes.Buffer
	_, core := NewWithCore(&buf, "development", slog.LevelDebug)
	assert.True(t, core.Enabled(zapcore.DebugLevel), "debug level should be enabled")

	logger := New(&buf, "", slog.LevelDebug)
	logger.Debug("draft edited", "field", "fullName")
	assert.Contains(t, buf.String(), "draft edited")
	assert.Contains(t, buf.String(), "fullName")
}

func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	_, core := NewWithCore(&buf, "production", slog.LevelWarn)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.WarnLevel))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestContextWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	ctx := ContextWithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))

	base := context.Background()
	assert.Equal(t, base, ContextWithLogger(base, nil))
}
