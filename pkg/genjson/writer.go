// Package genjson provides generic JSON (and gzipped JSON) writers used to export the
// engine's DAG diagnostics (dag.json / pro.json).
package genjson

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Writer writes data as JSON.
type Writer[T any] struct {
	// Indent specifies the indentation for pretty printing. Empty means compact.
	Indent string
}

// New creates a writer with compact output.
func New[T any]() *Writer[T] {
	return &Writer[T]{}
}

// NewPretty creates a writer with two-space indentation.
func NewPretty[T any]() *Writer[T] {
	return &Writer[T]{Indent: "  "}
}

// Write encodes data as JSON to w.
func (wr *Writer[T]) Write(data T, w io.Writer) error {
	enc := json.NewEncoder(w)
	if wr.Indent != "" {
		enc.SetIndent("", wr.Indent)
	}
	return enc.Encode(data)
}

// WriteToFile creates (or truncates) path and writes data as JSON to it.
func (wr *Writer[T]) WriteToFile(data T, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return wr.Write(data, f)
}

// GzipWriter writes data as gzip-compressed JSON, for exports large enough that
// archiving them ahead of an objstore upload is worthwhile.
type GzipWriter[T any] struct {
	CompressionLevel int
}

// NewGzip creates a gzip writer at the default compression level.
func NewGzip[T any]() *GzipWriter[T] {
	return &GzipWriter[T]{CompressionLevel: gzip.DefaultCompression}
}

// Write encodes data as gzipped JSON to w.
func (wr *GzipWriter[T]) Write(data T, w io.Writer) error {
	gz, err := gzip.NewWriterLevel(w, wr.CompressionLevel)
	if err != nil {
		return fmt.Errorf("new gzip writer: %w", err)
	}
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return gz.Close()
}

// WriteToFile creates (or truncates) path and writes data as gzipped JSON to it.
func (wr *GzipWriter[T]) WriteToFile(data T, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return wr.Write(data, f)
}
