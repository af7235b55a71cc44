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
	"go.uber.org/zap"

	"github.com/xkilldash9x/sockpuppet-cli/internal/config"
)

// syncBuffer adapts bytes.Buffer to zapcore.WriteSyncer for capturing
// console output in tests.
type syncBuffer struct {
	bytes.Buffer
}

func (b *syncBuffer) Sync() error { return nil }

func initForTest(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)
	buf := &syncBuffer{}
	Initialize(cfg, buf)
	return buf
}

func TestInitializeConsoleWithColor(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "test-service",
		Color:       true,
	})

	GetLogger().Info("hello from the console core")

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "hello from the console core")
	assert.Contains(t, out, ansiGreen)
	assert.Contains(t, out, ansiReset)
}

func TestInitializeJSONFormat(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{
		Level:       "info",
		Format:      "json",
		ServiceName: "json-test",
	})

	GetLogger().Warn("structured entry", zap.String("key", "value"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output should be one JSON object")
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "json-test", entry["logger"])
	assert.Equal(t, "structured entry", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestInitializeWritesLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "sockpuppet.log")
	initForTest(t, config.LoggerConfig{
		Level:   "debug",
		Format:  "console",
		LogFile: logPath,
		MaxSize: 1,
	})

	GetLogger().Error("this belongs in the file")
	Sync()

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "this belongs in the file")
	// The file core is always JSON regardless of console format.
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(content), &entry))
	assert.Equal(t, "ERROR", entry["level"])
}

func TestInitializeRunsOnce(t *testing.T) {
	buf := initForTest(t, config.LoggerConfig{Level: "info", ServiceName: "first"})

	// A second initialization must be a no-op.
	Initialize(config.LoggerConfig{Level: "debug", ServiceName: "second"}, &syncBuffer{})

	first := GetLogger()
	second := GetLogger()
	assert.Same(t, first, second)

	second.Info("who am I")
	assert.True(t, strings.Contains(buf.String(), "first"))
	assert.False(t, strings.Contains(buf.String(), "second"))
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// Nothing was stored globally; the fallback is per-call.
	assert.Nil(t, globalLogger.Load())
}

func TestGetLoggerAfterInitialize(t *testing.T) {
	initForTest(t, config.LoggerConfig{Level: "info", ServiceName: "global-test"})
	assert.Same(t, globalLogger.Load(), GetLogger())
}
