package logsink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndFlushWritesAboveThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")

	s := New(path, WARN, 8)
	s.Add("below threshold", INFO)
	s.Add("at threshold", WARN)
	s.Add("above threshold", ERROR)
	s.Flush()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.NotContains(t, content, "below threshold")
	assert.Contains(t, content, "at threshold")
	assert.Contains(t, content, "above threshold")
}

func TestAddRetriesOnceWhenQueueFull(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	s := New(path, INFO, 2)

	s.Add("one", INFO)
	s.Add("two", INFO)
	// Queue is now full; Add must flush once and retry, succeeding.
	s.Add("three", INFO)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "one")
	assert.Contains(t, string(data), "two")
}
