package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerLevels(t *testing.T) {
	t.Setenv("DEBUG", "")

	var buf bytes.Buffer
	log := New(&buf, false)

	log.Info("hidden %d", 1)
	log.Debug("hidden too")
	log.Warn("file %s skipped", "a.go")
	log.Error("boom")
	log.Success("done")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "WARNING: file a.go skipped")
	assert.Contains(t, out, "ERROR: boom")
	assert.Contains(t, out, "SUCCESS: done")
}

func TestLoggerVerbose(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, true)

	log.Info("scanning %d files", 3)
	log.Debug("window cap %d", 100)

	assert.True(t, log.Verbose())
	assert.Contains(t, buf.String(), "INFO: scanning 3 files")
	assert.Contains(t, buf.String(), "DEBUG: window cap 100")
}

func TestDiscardAndNil(t *testing.T) {
	var nilLogger *Logger
	assert.NotPanics(t, func() {
		nilLogger.Warn("ignored")
		nilLogger.Info("ignored")
		Discard().Error("ignored")
	})
	assert.False(t, nilLogger.Verbose())
}
