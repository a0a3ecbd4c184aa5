package logging

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *test.Hook {
	t.Helper()
	prevLevel := logger.GetLevel()
	prevOut := logger.Out
	logger.SetOutput(io.Discard)
	hook := test.NewLocal(logger)
	t.Cleanup(func() {
		hook.Reset()
		logger.ReplaceHooks(make(logrus.LevelHooks))
		logger.SetLevel(prevLevel)
		logger.SetOutput(prevOut)
	})
	return hook
}

func TestConfigureLevel(t *testing.T) {
	hook := captureLogs(t)

	require.NoError(t, Configure("warn", "text"))
	Logf("dropped %d", 1)
	Warnf("kept %s", "this")

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "kept this", hook.LastEntry().Message)
	assert.Equal(t, GetRunID(), hook.LastEntry().Data["run"])
}

func TestConfigureDebug(t *testing.T) {
	hook := captureLogs(t)

	require.NoError(t, Configure("DEBUG", ""))
	assert.True(t, IsDebug())
	Debugf("[registry] split kind=%s", "host")

	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
}

func TestConfigureRejectsUnknownValues(t *testing.T) {
	captureLogs(t)

	assert.Error(t, Configure("loud", ""))
	assert.Error(t, Configure("", "xml"))
	assert.NoError(t, Configure("", "json"))
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.NoError(t, Configure("", "text"))
}
