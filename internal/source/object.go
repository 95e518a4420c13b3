package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caseyshiring/MediaTranscoder/pkg/models"
)

// ObjectStore is the slice of the storage client the object source needs.
type ObjectStore interface {
	StatSize(ctx context.Context, objectName string) (int64, error)
	ReadRange(ctx context.Context, objectName string, offset, length int64) ([]byte, error)
	DownloadFile(ctx context.Context, objectName, filePath string) error
}

// probeHeadBytes bounds how much of an object is fetched for analysis.
// ffprobe reads format headers, which live at the front of the file.
const probeHeadBytes = 2 << 20

// ObjectSource reads chunk ranges directly from object storage via HTTP
// range requests, so a transcode never needs the whole source on local disk.
type ObjectSource struct {
	store   ObjectStore
	key     string
	size    int64
	prober  Prober
	tempDir string

	analyzeOnce sync.Once
	desc        *models.MediaDescriptor
	analyzeErr  error
}

// OpenObject stats the object and returns it as a pipeline source.
func OpenObject(ctx context.Context, store ObjectStore, key string, prober Prober, tempDir string) (*ObjectSource, error) {
	size, err := store.StatSize(ctx, key)
	if err != nil {
		return nil, err
	}

	return &ObjectSource{
		store:   store,
		key:     key,
		size:    size,
		prober:  prober,
		tempDir: tempDir,
	}, nil
}

// Analyze fetches the object's head, probes it locally, and caches the
// descriptor.
func (s *ObjectSource) Analyze(ctx context.Context) (*models.MediaDescriptor, error) {
	s.analyzeOnce.Do(func() {
		s.desc, s.analyzeErr = s.probeHead(ctx)
	})
	return s.desc, s.analyzeErr
}

func (s *ObjectSource) probeHead(ctx context.Context) (*models.MediaDescriptor, error) {
	head := s.size
	if head > probeHeadBytes {
		head = probeHeadBytes
	}
	if head == 0 {
		return &models.MediaDescriptor{}, nil
	}

	payload, err := s.store.ReadRange(ctx, s.key, 0, head)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object head: %w", err)
	}

	tmp, err := os.CreateTemp(s.tempDir, "probe-*"+filepath.Ext(s.key))
	if err != nil {
		return nil, fmt.Errorf("failed to create probe file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to write probe file: %w", err)
	}

	return s.prober.Probe(ctx, tmp.Name())
}

// Size returns the object size in bytes.
func (s *ObjectSource) Size() int64 {
	return s.size
}

// ReadRange fills p with the object bytes at offset.
func (s *ObjectSource) ReadRange(ctx context.Context, offset int64, p []byte) error {
	payload, err := s.store.ReadRange(ctx, s.key, offset, int64(len(p)))
	if err != nil {
		return err
	}
	copy(p, payload)
	return nil
}
