package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, DEBUG, ParseLevel("Debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, CRITICAL, ParseLevel(" critical "))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}

func TestLoggerLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriterLogger(WARN, &buf)

	log.Debug("hidden %d", 1)
	log.Info("hidden too")
	log.Warn("shown %s", "a")
	log.Error("shown %s", "b")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown a")
	assert.Contains(t, out, "[ERROR] shown b")
}

func TestLoggerSetMinLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewWriterLogger(ERROR, &buf)

	log.Info("first")
	log.SetMinLevel(INFO)
	log.Info("second")

	assert.NotContains(t, buf.String(), "first")
	assert.Contains(t, buf.String(), "second")
}

func TestFileLoggerWritesAndCloses(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "run.log")
	log, err := NewFileLogger(p, INFO, false)
	require.NoError(t, err)

	log.Info("hello %s", "file")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] hello file")
}
