package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Krishna78600/Samosa-Man-App/logger"
)

func TestNew(t *testing.T) {
	log, err := logger.New("debug", "console")
	require.NoError(t, err)

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.Same(t, log, zap.L())
}

func TestNew_DefaultsToInfo(t *testing.T) {
	log, err := logger.New("", "")
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_Rejects(t *testing.T) {
	_, err := logger.New("loud", "json")
	assert.Error(t, err)

	_, err = logger.New("info", "xml")
	assert.Error(t, err)
}
