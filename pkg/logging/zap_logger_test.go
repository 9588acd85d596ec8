package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	return out
}

func TestZapLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLoggerTo(&buf, LevelInfo)

	logger.Info("task_completed",
		StringField("task", "set path"),
		IntField("sequence", 3),
	)
	logger.Debug("dropped")

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "task_completed", lines[0]["message"])
	assert.Equal(t, "set path", lines[0]["task"])
	assert.Equal(t, float64(3), lines[0]["sequence"])
	assert.NotEmpty(t, lines[0]["timestamp"])
}

func TestZapLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLoggerTo(&buf, LevelWarn)

	logger.Info("skip")
	logger.Warn("keep")
	logger.Error("keep too")

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 2)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "ERROR", lines[1]["level"])
}

func TestZapLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZapLoggerTo(&buf, LevelDebug)

	child := logger.WithFields(StringField("pass_id", "abc"))
	child.Debug("pass_started")

	lines := decodeLines(t, buf.Bytes())
	require.Len(t, lines, 1)
	assert.Equal(t, "abc", lines[0]["pass_id"])
	assert.NoError(t, child.Close())
}

func TestSetupLogging_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := SetupLogging(dir, true)
	require.NoError(t, err)

	logger.Debug("verbose entry")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(dir, "pass.log"))
	require.NoError(t, err)
	lines := decodeLines(t, data)
	require.Len(t, lines, 1)
	assert.Equal(t, "verbose entry", lines[0]["message"])
}

func TestNewZapLogger_DefaultFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	logger, err := NewZapLogger(LoggerConfig{
		OutputPath: path,
		Level:      LevelInfo,
		Fields:     []Field{StringField("host", "ws01")},
	})
	require.NoError(t, err)
	logger.Info("hi")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ws01", decodeLines(t, data)[0]["host"])
}
