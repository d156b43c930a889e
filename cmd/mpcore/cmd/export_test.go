package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunExportWritesGraphFiles(t *testing.T) {
	resetGlobals(t)

	scriptDir := t.TempDir()
	scriptPath := filepath.Join(scriptDir, "expr.txt")
	require.NoError(t, os.WriteFile(scriptPath, []byte("let a = 1\nlet b = 2\nadd c = a b\nformat c\n"), 0o644))

	outDir := t.TempDir()
	require.NoError(t, runExport(exportCmd, []string{scriptPath, outDir}))

	for _, name := range []string{"dag.json", "pro.json", "dag.json.gz", "pro.json.gz"} {
		_, err := os.Stat(filepath.Join(outDir, "daginfo", name))
		assert.NoError(t, err, "expected %s to exist", name)
	}
}

func TestUploadExportNoopsWithoutStorageConfig(t *testing.T) {
	resetGlobals(t)
	// No storage.type configured: uploadExport must return nil without touching
	// any backend rather than erroring on an unconfigured destination.
	assert.NoError(t, uploadExport(context.Background(), t.TempDir()))
}

func TestUploadExportUploadsGzipFiles(t *testing.T) {
	resetGlobals(t)

	scriptDir := t.TempDir()
	scriptPath := filepath.Join(scriptDir, "expr.txt")
	require.NoError(t, os.WriteFile(scriptPath, []byte("let a = 1\nlet b = 2\nadd c = a b\nformat c\n"), 0o644))

	outDir := t.TempDir()
	require.NoError(t, runExport(exportCmd, []string{scriptPath, outDir}))

	uploadRoot := t.TempDir()
	config.Storage.Type = "local"
	config.Storage.LocalPath = uploadRoot

	require.NoError(t, uploadExport(context.Background(), outDir))

	for _, name := range []string{"dag.json.gz", "pro.json.gz"} {
		_, err := os.Stat(filepath.Join(uploadRoot, "daginfo", name))
		assert.NoError(t, err, "expected uploaded %s to exist under the local storage root", name)
	}
}
