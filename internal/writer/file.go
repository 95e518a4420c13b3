// Package writer commits transformed chunks to their output target.
package writer

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/caseyshiring/MediaTranscoder/internal/chunk"
	"github.com/caseyshiring/MediaTranscoder/internal/pipeline"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// FileWriter writes transformed chunks to a local file. Bytes accumulate in
// "<path>.partial"; Finalize renames the artifact into place, so a failed or
// cancelled run never leaves a finalized output. Chunks arrive pre-ordered
// from the pipeline and are appended sequentially.
type FileWriter struct {
	path    string
	file    *os.File
	buf     *bufio.Writer
	written int64
}

// NewFileWriter creates a writer targeting path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

func (w *FileWriter) partialPath() string {
	return w.path + ".partial"
}

// Init opens the partial output file. Called once before any chunk work.
func (w *FileWriter) Init(_ context.Context, _ models.TranscodeOptions, _ *models.MediaDescriptor) error {
	if w.path == "" {
		return fmt.Errorf("%w: output path is empty", pipeline.ErrInvalidConfiguration)
	}

	file, err := os.Create(w.partialPath())
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	w.file = file
	w.buf = bufio.NewWriterSize(file, 1<<20)
	return nil
}

// WriteChunk appends one transformed chunk. The payload is written in full,
// whatever its length relative to the source range.
func (w *FileWriter) WriteChunk(_ context.Context, _ chunk.Range, payload []byte) error {
	if w.file == nil {
		return fmt.Errorf("writer not initialized")
	}

	n, err := w.buf.Write(payload)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write chunk: %w", err)
	}
	return nil
}

// Finalize flushes, closes, and renames the partial file into place,
// returning the output size. Runs to completion once started.
func (w *FileWriter) Finalize(_ context.Context) (int64, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer not initialized")
	}

	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return 0, fmt.Errorf("failed to flush output: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return 0, fmt.Errorf("failed to close output: %w", err)
	}
	if err := os.Rename(w.partialPath(), w.path); err != nil {
		return 0, fmt.Errorf("failed to finalize output: %w", err)
	}

	w.file = nil
	return w.written, nil
}

// Abort closes and removes the partial artifact.
func (w *FileWriter) Abort() error {
	if w.file == nil {
		return nil
	}
	w.file.Close()
	w.file = nil
	return os.Remove(w.partialPath())
}

// BytesWritten returns the number of bytes accepted so far.
func (w *FileWriter) BytesWritten() int64 {
	return w.written
}
