// Package source provides pipeline inputs backed by local files and object
// storage.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/caseyshiring/MediaTranscoder/internal/pipeline"
	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// Prober derives a media descriptor from a file on disk.
type Prober interface {
	Probe(ctx context.Context, path string) (*models.MediaDescriptor, error)
}

// FileSource reads chunk ranges from a local file. Analysis runs at most
// once; concurrent ReadRange calls are safe because ReadAt carries no shared
// cursor.
type FileSource struct {
	path   string
	file   *os.File
	size   int64
	prober Prober

	analyzeOnce sync.Once
	desc        *models.MediaDescriptor
	analyzeErr  error
}

// OpenFile opens path as a pipeline source.
func OpenFile(path string, prober Prober) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", pipeline.ErrSourceNotFound, path)
		}
		return nil, fmt.Errorf("failed to open source: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat source: %w", err)
	}

	return &FileSource{
		path:   path,
		file:   file,
		size:   info.Size(),
		prober: prober,
	}, nil
}

// Analyze probes the file once and caches the descriptor.
func (s *FileSource) Analyze(ctx context.Context) (*models.MediaDescriptor, error) {
	s.analyzeOnce.Do(func() {
		s.desc, s.analyzeErr = s.prober.Probe(ctx, s.path)
	})
	return s.desc, s.analyzeErr
}

// Size returns the file size in bytes.
func (s *FileSource) Size() int64 {
	return s.size
}

// ReadRange fills p with the bytes at offset.
func (s *FileSource) ReadRange(ctx context.Context, offset int64, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := s.file.ReadAt(p, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read range [%d, %d): %w", offset, offset+int64(len(p)), err)
	}
	if n != len(p) {
		return fmt.Errorf("short read at offset %d: got %d of %d bytes", offset, n, len(p))
	}
	return nil
}

// Close releases the underlying file handle.
func (s *FileSource) Close() error {
	return s.file.Close()
}
