package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	def := Default()
	if cfg.Coordinator.MaxParallelActions != def.Coordinator.MaxParallelActions {
		t.Errorf("Expected default coordinator settings, got %+v", cfg.Coordinator)
	}
	if cfg.Store.Path != def.Store.Path {
		t.Errorf("Expected default store path, got %q", cfg.Store.Path)
	}
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
coordinator:
  max_parallel_actions: 5
  retry_attempts: 1
ollama:
  model: llama3
browser:
  headless: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Coordinator.MaxParallelActions != 5 {
		t.Errorf("Expected max_parallel_actions 5, got %d", cfg.Coordinator.MaxParallelActions)
	}
	if cfg.Coordinator.RetryAttempts != 1 {
		t.Errorf("Expected retry_attempts 1, got %d", cfg.Coordinator.RetryAttempts)
	}
	if cfg.Ollama.Model != "llama3" {
		t.Errorf("Expected model llama3, got %q", cfg.Ollama.Model)
	}
	// Unset sections keep their defaults.
	if cfg.Tokens.DailyLimit != Default().Tokens.DailyLimit {
		t.Errorf("Expected default token budget, got %+v", cfg.Tokens)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
coordinator:
  max_parallel_actions: -2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation error for negative max_parallel_actions")
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("coordinator: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidateDefaults(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("Default config must validate, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Ollama.Model = "qwen2"
	cfg.Coordinator.RetryAttempts = 7

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Ollama.Model != "qwen2" || loaded.Coordinator.RetryAttempts != 7 {
		t.Errorf("Round trip lost values: %+v", loaded.Coordinator)
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(Default(), path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reloads int32
	var gotModel atomic.Value
	err := Watch(ctx, path, zerolog.Nop(), func(cfg *Config) {
		atomic.AddInt32(&reloads, 1)
		gotModel.Store(cfg.Ollama.Model)
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	cfg := Default()
	cfg.Ollama.Model = "changed"
	if err := Save(cfg, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for atomic.LoadInt32(&reloads) == 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for reload")
		case <-time.After(20 * time.Millisecond):
		}
	}
	if got, _ := gotModel.Load().(string); got != "changed" {
		t.Errorf("Expected reloaded model, got %q", got)
	}
}
