package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "scrape_errors.log")

	logger := NewLogger(tmpFile)
	logger.LogError("Cost Plus Drugs", errors.New("HTTP 503 - Page load failed"))
	logger.LogError("RxSaver", errors.New("Timeout waiting for selector"))

	data, err := os.ReadFile(tmpFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[Cost Plus Drugs] HTTP 503 - Page load failed")
	assert.Contains(t, lines[1], "[RxSaver]")

	// Info messages go to the structured logger, not the file
	logger.LogInfo("run finished: %d failed", 2)
	data, err = os.ReadFile(tmpFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "run finished")
}

func TestLoggerUnwritablePath(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "missing", "dir", "errors.log"))
	assert.NotPanics(t, func() { logger.LogError("x", errors.New("boom")) })
}
