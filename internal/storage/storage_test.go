package storage

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/caseyshiring/MediaTranscoder/internal/config"
)

// newFakeObjectServer serves a single object over the S3 path-style layout,
// enough for stat and ranged reads.
func newFakeObjectServer(t *testing.T, bucket, key string, data []byte) *httptest.Server {
	t.Helper()
	modTime := time.Now()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/"+bucket+"/"+key:
			http.ServeContent(w, r, key, modTime, bytes.NewReader(data))
		case strings.TrimSuffix(r.URL.Path, "/") == "/"+bucket:
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "not found", http.StatusNotFound)
		}
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestStorage(t *testing.T, srv *httptest.Server, bucket string) *Storage {
	t.Helper()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("Failed to parse server URL: %v", err)
	}

	store, err := New(config.StorageConfig{
		Endpoint:        u.Host,
		AccessKeyID:     "test",
		SecretAccessKey: "testsecret",
		BucketName:      bucket,
		Region:          "us-east-1",
		UseSSL:          false,
	})
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}
	return store
}

func TestStorageStatSize(t *testing.T) {
	data := []byte("0123456789abcdef")
	srv := newFakeObjectServer(t, "media", "videos/in.mp4", data)
	store := newTestStorage(t, srv, "media")

	size, err := store.StatSize(context.Background(), "videos/in.mp4")
	if err != nil {
		t.Fatalf("StatSize failed: %v", err)
	}
	if size != int64(len(data)) {
		t.Errorf("StatSize = %d, want %d", size, len(data))
	}
}

func TestStorageStatSizeMissing(t *testing.T) {
	srv := newFakeObjectServer(t, "media", "videos/in.mp4", []byte("x"))
	store := newTestStorage(t, srv, "media")

	if _, err := store.StatSize(context.Background(), "videos/absent.mp4"); err == nil {
		t.Error("Expected error for missing object")
	}
}

func TestStorageReadRangeExactLength(t *testing.T) {
	data := []byte("0123456789abcdef")
	srv := newFakeObjectServer(t, "media", "videos/in.mp4", data)
	store := newTestStorage(t, srv, "media")

	buf, err := store.ReadRange(context.Background(), "videos/in.mp4", 3, 5)
	if err != nil {
		t.Fatalf("ReadRange failed: %v", err)
	}
	if !bytes.Equal(buf, data[3:8]) {
		t.Errorf("ReadRange = %q, want %q", buf, data[3:8])
	}

	// Range ending exactly at the object boundary.
	buf, err = store.ReadRange(context.Background(), "videos/in.mp4", 12, 4)
	if err != nil {
		t.Fatalf("ReadRange at tail failed: %v", err)
	}
	if !bytes.Equal(buf, data[12:]) {
		t.Errorf("ReadRange at tail = %q, want %q", buf, data[12:])
	}
}

func TestStorageReadRangeBeyondObject(t *testing.T) {
	data := []byte("0123456789")
	srv := newFakeObjectServer(t, "media", "videos/in.mp4", data)
	store := newTestStorage(t, srv, "media")

	if _, err := store.ReadRange(context.Background(), "videos/in.mp4", 8, 8); err == nil {
		t.Error("Expected error for range past the end of the object")
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		filePath string
		wantType string
	}{
		{"video.mp4", "video/mp4"},
		{"video.mov", "video/quicktime"},
		{"video.mkv", "video/x-matroska"},
		{"video.webm", "video/webm"},
		{"video.avi", "video/x-msvideo"},
		{"unknown.xyz", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.filePath, func(t *testing.T) {
			if got := contentType(tt.filePath); got != tt.wantType {
				t.Errorf("contentType(%q) = %q, want %q", tt.filePath, got, tt.wantType)
			}
		})
	}
}
