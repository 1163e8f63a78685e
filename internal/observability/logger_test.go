package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/lazyvibe/websmith/internal/app"
)

func TestInitializeConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(app.LoggerConfig{Level: "debug", Format: "console"}, zapcore.AddSync(&buf))
	GetLogger().Named("store").Debug("Profiles restored")
	Sync()

	out := buf.String()
	assert.Contains(t, out, "DEBUG")
	assert.Contains(t, out, "websmith.store.")
	assert.Contains(t, out, "Profiles restored")
}

func TestInitializeJSONRespectsLevel(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var buf bytes.Buffer
	Initialize(app.LoggerConfig{Level: "warn", Format: "json"}, zapcore.AddSync(&buf))
	GetLogger().Info("hidden")
	GetLogger().Warn("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "shown", entry["msg"])
}

func TestInitializeFileOnly(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	path := filepath.Join(t.TempDir(), "websmith.log")
	InitializeFileOnly(app.LoggerConfig{Level: "info", LogFile: path, MaxSize: 1})
	GetLogger().Info("to file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	var first, second bytes.Buffer
	Initialize(app.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&first))
	Initialize(app.LoggerConfig{Level: "info", Format: "json"}, zapcore.AddSync(&second))
	GetLogger().Info("once")

	assert.NotEmpty(t, first.String())
	assert.Empty(t, second.String())
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	assert.NotNil(t, GetLogger())
}
