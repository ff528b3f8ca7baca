package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestModuleScoping(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).Module("datastore").Module("mysql")

	log.Info("connected", String("host", "localhost"), Int("port", 3306))

	out := buf.String()
	assert.Contains(t, out, "module=datastore.mysql")
	assert.Contains(t, out, "host=localhost")
	assert.Contains(t, out, "port=3306")
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelWarn, time.UTC)

	log.Debug("hidden")
	log.Info("hidden too")
	log.Warn("shown")
	log.Log(LogLevelInfo, "explicit hidden")
	log.Log(LogLevelError, "explicit shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "explicit shown")
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	NewSlogLogger(buf, LogLevelTrace, time.UTC).Trace("sql query")

	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestWithFieldsDoNotLeakToParent(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	parent := NewSlogLogger(buf, LogLevelInfo, time.UTC)
	child := parent.With(String("plate", "ABC123"))

	parent.Info("parent")
	child.Info("child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "plate=")
	assert.Contains(t, lines[1], "plate=ABC123")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	ctx := WithTraceID(context.Background(), "frame-42")
	NewSlogLogger(buf, LogLevelInfo, time.UTC).WithContext(ctx).Info("processed")

	assert.Contains(t, buf.String(), "trace_id=frame-42")
}

func TestFieldRendering(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	NewSlogLogger(buf, LogLevelInfo, time.UTC).Info("detected",
		Float32("confidence", 0.87654),
		Duration("elapsed", 1234567*time.Microsecond),
		Error(nil))

	out := buf.String()
	assert.Contains(t, out, "confidence=0.877")
	assert.Contains(t, out, "elapsed=1.235s")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "platewatch.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"camera": "error"},
	})
	require.NoError(t, err)

	cl.Module("pipeline").Debug("frame processed", Int("frame", 10))
	cl.Module("camera").Info("suppressed by module level")
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "frame processed", entry["msg"])
	assert.Equal(t, "pipeline", entry["module"])
	assert.InDelta(t, 10, entry["frame"], 0)
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestGormAdapterLevels(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	adapter := NewGormLoggerAdapter(NewSlogLogger(buf, LogLevelInfo, time.UTC), 10*time.Millisecond)
	sqlFn := func() (string, int64) { return "SELECT 1", 1 }

	adapter.Trace(context.Background(), time.Now(), sqlFn, nil)
	assert.Empty(t, buf.String(), "normal queries stay at trace")

	adapter.Trace(context.Background(), time.Now(), sqlFn, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record not found is not a query error")

	adapter.Trace(context.Background(), time.Now().Add(-time.Second), sqlFn, nil)
	assert.Contains(t, buf.String(), "slow query")
}
