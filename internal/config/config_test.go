package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	content := `
server:
  port: 9090
  host: "127.0.0.1"

pipeline:
  maxParallelism: 8
  fixedChunkBytes: 2097152
  memoryBudgetBytes: 536870912

storage:
  bucketName: "test-media"
`

	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}

	if cfg.Pipeline.MaxParallelism != 8 {
		t.Errorf("Expected maxParallelism 8, got %d", cfg.Pipeline.MaxParallelism)
	}

	if cfg.Pipeline.FixedChunkBytes != 2097152 {
		t.Errorf("Expected fixedChunkBytes 2097152, got %d", cfg.Pipeline.FixedChunkBytes)
	}

	if cfg.Storage.BucketName != "test-media" {
		t.Errorf("Expected bucket test-media, got %s", cfg.Storage.BucketName)
	}
}

func TestLoadDefaults(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte("server:\n  port: 8081\n")); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Pipeline.MaxParallelism < 1 {
		t.Errorf("Expected positive default parallelism, got %d", cfg.Pipeline.MaxParallelism)
	}

	if cfg.Pipeline.MemoryBudgetBytes < 1 {
		t.Errorf("Expected positive default memory budget, got %d", cfg.Pipeline.MemoryBudgetBytes)
	}

	if cfg.Pipeline.FixedChunkBytes != 0 {
		t.Errorf("Expected auto chunk sizing by default, got %d", cfg.Pipeline.FixedChunkBytes)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error when loading nonexistent file")
	}
}
