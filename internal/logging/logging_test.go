package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "test", false)

	logger.Debug("hidden")
	logger.Info("installing", "package", "snapd")
	logger.Warn("refresh failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "installing")
	assert.Contains(t, out, "package=snapd")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "test")
}

func TestNew_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "test", true)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestLoggerInterface(t *testing.T) {
	var _ Logger = New(nil, "x", false)
	var _ Logger = Discard()
}
