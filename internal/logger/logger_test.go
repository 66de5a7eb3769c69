package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/logger"
)

func TestNewLogger_Levels(t *testing.T) {
	app := &config.AppConfig{Name: "vtshop", Environment: "development"}

	log, err := logger.NewLogger(&config.LoggingConfig{Level: "debug", Format: "console"}, app)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	log, err = logger.NewLogger(&config.LoggingConfig{Level: "bogus", Format: "json"}, app)
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestWithUser(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := logger.WithUser(zap.New(core), "u-1", "a@b.c", "EMPLOYEE")

	log.Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "EMPLOYEE", fields["user_role"])
}
