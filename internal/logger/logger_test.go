package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestNewWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := Config{Level: "warn"}.NewWriter(&buf)
	lg.Info("hidden")
	lg.Warn("visible")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
}

func TestNewWithFileUsesJSONHandler(t *testing.T) {
	file := filepath.Join(t.TempDir(), "daemon.log")
	lg := Config{Level: "info", File: file}.New()
	lg.Info("started", "instance", "test")

	// lumberjack creates the file on first write.
	var data string
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(file)
		if err != nil {
			return false
		}
		data = string(b)
		return strings.Contains(data, "msg")
	}, 2*time.Second, 50*time.Millisecond)
	assert.Contains(t, data, `"msg":"started"`)
	assert.Contains(t, data, `"instance":"test"`)
}

func TestColorTextHandlerAddsLevelTag(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	require.NoError(t, h.Handle(context.Background(), r))
	assert.Contains(t, buf.String(), "ERROR")
	assert.Contains(t, buf.String(), "boom")
}

func TestValOr(t *testing.T) {
	assert.Equal(t, DefaultMaxSizeMB, valOr(0, DefaultMaxSizeMB))
	assert.Equal(t, 42, valOr(42, DefaultMaxSizeMB))
	assert.Equal(t, DefaultMaxBackups, valOr(-1, DefaultMaxBackups))
}
