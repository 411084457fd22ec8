package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPipelineDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_TREE_DEPTH", "")
	t.Setenv("QUESTION_ATTEMPTS", "")
	t.Setenv("CHUNK_WORDS", "")
	t.Setenv("NATS_RUN_SUBJECT", "")

	cfg := Load()
	if cfg.MaxTreeDepth != 5 {
		t.Fatalf("expected default max tree depth 5, got %d", cfg.MaxTreeDepth)
	}
	if cfg.QuestionAttempts != 1 {
		t.Fatalf("expected single question attempt by default, got %d", cfg.QuestionAttempts)
	}
	if cfg.ChunkWords != 750 {
		t.Fatalf("expected default chunk words 750, got %d", cfg.ChunkWords)
	}
	if cfg.NATSRunSubject != "runs.requested" {
		t.Fatalf("unexpected default run subject %q", cfg.NATSRunSubject)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MAX_TREE_DEPTH", "3")
	t.Setenv("QUESTION_ATTEMPTS", "2")
	t.Setenv("QUESTIONS_PER_SECOND", "0.5")

	cfg := Load()
	if cfg.MaxTreeDepth != 3 {
		t.Fatalf("expected max tree depth 3, got %d", cfg.MaxTreeDepth)
	}
	if cfg.QuestionAttempts != 2 {
		t.Fatalf("expected question attempts 2, got %d", cfg.QuestionAttempts)
	}
	if cfg.QuestionsPerSecond != 0.5 {
		t.Fatalf("expected questions per second 0.5, got %v", cfg.QuestionsPerSecond)
	}
}

func TestLoadYAMLOverlayLosesToEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("max_tree_depth: 4\napi_port: \"9999\"\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("MAX_TREE_DEPTH", "2")
	t.Setenv("API_PORT", "")

	cfg := Load()
	if cfg.MaxTreeDepth != 2 {
		t.Fatalf("env should win over file, got depth %d", cfg.MaxTreeDepth)
	}
	if cfg.APIPort != "9999" {
		t.Fatalf("expected file port 9999, got %q", cfg.APIPort)
	}
}
