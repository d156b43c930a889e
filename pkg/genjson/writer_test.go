package genjson

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteCompactAndPretty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New[sample]().Write(sample{"a", 1}, &buf))
	assert.Equal(t, `{"name":"a","count":1}`+"\n", buf.String())

	buf.Reset()
	require.NoError(t, NewPretty[sample]().Write(sample{"a", 1}, &buf))
	assert.Contains(t, buf.String(), "\n  \"name\"")
}

func TestWriteToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	require.NoError(t, New[sample]().WriteToFile(sample{"b", 2}, path))
}

func TestGzipRoundTripsThroughCompressedReader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGzip[sample]().Write(sample{"c", 3}, &buf))
	assert.Greater(t, buf.Len(), 0)

	zr, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	var got sample
	require.NoError(t, json.NewDecoder(zr).Decode(&got))
	assert.Equal(t, sample{"c", 3}, got)
}
