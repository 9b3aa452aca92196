package logger

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestWithFieldsAndError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.DebugLevel)

	log.WithFields(map[string]interface{}{"chat_id": 42}).WithError(errors.New("boom")).Warnf("send %s", "failed")

	line := buf.Bytes()
	assert.Equal(t, "warn", gjson.GetBytes(line, "level").String())
	assert.Equal(t, int64(42), gjson.GetBytes(line, "chat_id").Int())
	assert.Equal(t, "boom", gjson.GetBytes(line, "error").String())
	assert.Equal(t, "send failed", gjson.GetBytes(line, "message").String())
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, zerolog.InfoLevel)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	log, err := New(Config{
		LogDir:         dir,
		LogMaxFileSize: 1024,
		LogTimeFormat:  "2006-01-02",
		LogFilePattern: "bot_%s.log",
		Level:          "info",
	})
	require.NoError(t, err)

	log.Info("hello")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
