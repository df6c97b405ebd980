package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUtcMsg
func TestUtcMsg(t *testing.T) {
	msg := utcMsg([]byte("hello\n"))
	assert.True(t, strings.HasPrefix(msg, "["))
	assert.True(t, strings.HasSuffix(msg, "] hello\n"))
	stamp := msg[1:strings.Index(msg, "]")]
	_, err := time.Parse(time.RFC3339, stamp)
	assert.NoError(t, err)
}

// TestSetupLoggerFile
func TestSetupLoggerFile(t *testing.T) {
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(log.LstdFlags)
	})
	t.Setenv("MY_POD_NAME", "test")
	logFile := filepath.Join(t.TempDir(), "mushroom.log")
	require.NoError(t, setupLogger(1, logFile))
	logCommand("yolo", []string{"detect", "train"}, "", time.Now(), nil)

	files, err := filepath.Glob(logFile + "_test_*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "exec yolo detect train [dir: .]")
	assert.Contains(t, string(data), "[status: ok]")
}
