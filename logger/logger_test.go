package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/krau/bloodgroup/config"
)

func TestNew(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		log := New(config.LogConfig{Level: "info", Format: "json"})

		assert.NotNil(t, log)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("console format", func(t *testing.T) {
		log := New(config.LogConfig{Level: "debug", Format: "console"})

		assert.NotNil(t, log)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		log := New(config.LogConfig{Level: "loud", Format: "json"})

		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("error level", func(t *testing.T) {
		log := New(config.LogConfig{Level: "error"})

		assert.False(t, log.Core().Enabled(zapcore.WarnLevel))
		assert.True(t, log.Core().Enabled(zapcore.ErrorLevel))
	})
}
