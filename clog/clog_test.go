package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	opts = append(opts, WithWriter(buf))
	logger, err := New(&Config{Level: level, Format: "json"}, opts...)
	require.NoError(t, err)
	return logger, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNew_Unit(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "nil config", config: nil},
		{name: "json", config: &Config{Level: "info", Format: "json"}},
		{name: "console", config: &Config{Level: "debug", Format: "console", Output: "stderr"}},
		{name: "invalid level", config: &Config{Level: "verbose"}, wantErr: true},
		{name: "invalid format", config: &Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestLogger_Fields_Unit(t *testing.T) {
	logger, buf := newJSONLogger(t, "debug", WithNamespace("leaf"))

	logger.WithNamespace("segment").
		With(String("tag", "order")).
		Info("refill done", Int64("max_id", 2000), Error(errors.New("boom")))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "refill done", line["msg"])
	assert.Equal(t, "leaf.segment", line[NamespaceKey])
	assert.Equal(t, "order", line["tag"])
	assert.EqualValues(t, 2000, line["max_id"])
	assert.Equal(t, "boom", line["err_msg"])
}

func TestLogger_Level_Unit(t *testing.T) {
	logger, buf := newJSONLogger(t, "warn")

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.Len(t, decodeLines(t, buf), 1)

	require.NoError(t, logger.SetLevel(DebugLevel))
	buf.Reset()
	logger.Debug("now shown")
	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "DEBUG", lines[0]["level"])
}

func TestLogger_Context_Unit(t *testing.T) {
	logger, buf := newJSONLogger(t, "info", WithRequestIDContext(), WithTraceContext())

	ctx := ContextWithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "served")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request_id"])
	_, hasTrace := lines[0]["trace_id"]
	assert.False(t, hasTrace)

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestLogger_FileOutput_Unit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "leaf.log")
	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("to file", String("k", "v"))
	logger.Flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestParseLevel_Unit(t *testing.T) {
	for s, want := range map[string]Level{
		"debug": DebugLevel, "INFO": InfoLevel, "warning": WarnLevel,
		"error": ErrorLevel, "fatal": FatalLevel,
	} {
		got, err := ParseLevel(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("nope")
	assert.Error(t, err)
	assert.Equal(t, "warn", WarnLevel.String())
}

func TestDiscard_Unit(t *testing.T) {
	logger := Discard()
	logger.Info("nothing")
	assert.NotNil(t, logger.With(String("a", "b")).WithNamespace("x"))
	assert.NoError(t, logger.SetLevel(DebugLevel))
}
