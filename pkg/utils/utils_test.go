package utils

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")

	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "loud", OutputPath: "stdout"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestKVLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewKVLogger(zap.New(core))

	logger.Info("report dispatched", "report_id", int64(7), 42, "dropped", "sheet", "VL 06.12.2025")
	logger.Error("ledger write failed", "error", errors.New("quota"))

	entries := logs.All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, int64(7), fields["report_id"])
	assert.Equal(t, "VL 06.12.2025", fields["sheet"])
	assert.Len(t, fields, 2)

	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "quota", entries[1].ContextMap()["error"])
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Mijoz:\tAli\nVali", SanitizeString("Mijoz:\tAli\x00\nVa\x07li"))
}

func TestValidateTextField(t *testing.T) {
	assert.True(t, ValidateTextField("Ali", 2))
	assert.True(t, ValidateTextField("Ой", 2))
	assert.False(t, ValidateTextField("  a ", 2))
}
