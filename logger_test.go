package appidmiddleware

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSlogIsALogger(t *testing.T) {
	var _ Logger = slog.Default()
}

func TestZapLogger(t *testing.T) {
	// Create a zap logger that we can observe
	core, recorded := observer.New(zapcore.InfoLevel)
	logger := NewZapLogger(zap.New(core).Sugar())

	logger.Debug("debug message", "kid", "k1")
	assert.Equal(t, 0, recorded.Len(), "Debug message should not be recorded at Info level")

	logger.Info("info message", "kid", "k1")
	assert.Equal(t, 1, recorded.Len(), "Info message should be recorded")
	assert.Equal(t, "info message", recorded.All()[0].Message)
	assert.Equal(t, map[string]any{"kid": "k1"}, recorded.All()[0].ContextMap())

	logger.Warn("warn message", "status", 401)
	assert.Equal(t, 2, recorded.Len(), "Warn message should be recorded")
	assert.Equal(t, zapcore.WarnLevel, recorded.All()[1].Level)
	assert.Equal(t, int64(401), recorded.All()[1].ContextMap()["status"])

	logger.Error("error message")
	assert.Equal(t, 3, recorded.Len(), "Error message should be recorded")
	assert.Equal(t, "error message", recorded.All()[2].Message)
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf))

	logger.Debug("debug message", "kid", "k1")
	logger.Info("info message", "keys", 2)
	logger.Warn("warn message")
	logger.Error("error message", "error", "boom")

	logOutput := buf.String()
	assert.Contains(t, logOutput, `"message":"debug message"`)
	assert.Contains(t, logOutput, `"kid":"k1"`)
	assert.Contains(t, logOutput, `"keys":2`)
	assert.Contains(t, logOutput, `"level":"warn"`)
	assert.Contains(t, logOutput, `"error":"boom"`)
}

func TestLogrusLogger(t *testing.T) {
	var buf bytes.Buffer

	logrusLogger := logrus.New()
	logrusLogger.Out = &buf
	logrusLogger.Level = logrus.InfoLevel
	logrusLogger.Formatter = &logrus.JSONFormatter{}

	logger := NewLogrusLogger(logrusLogger)

	logger.Debug("debug message")
	logger.Info("info message", "kid", "k1")
	logger.Warn("warn message")
	logger.Error("error message", "dangling")

	output := buf.String()

	assert.NotContains(t, output, "debug message", "Debug messages should not be logged at Info level")
	assert.Contains(t, output, "info message")
	assert.Contains(t, output, `"kid":"k1"`)
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, `"!BADKEY":"dangling"`)

	buf.Reset()
	logrusLogger.Level = logrus.DebugLevel
	logger.Debug("debug message")
	assert.Contains(t, buf.String(), "debug message", "Debug messages should be logged at Debug level")
}

func TestFields(t *testing.T) {
	assert.Equal(t, logrus.Fields{}, fields(nil))
	assert.Equal(t, logrus.Fields{"a": 1, "b": "two"}, fields([]any{"a", 1, "b", "two"}))
	assert.Equal(t, logrus.Fields{"a": 1, "!BADKEY": "b"}, fields([]any{"a", 1, "b"}))
}
