package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8787 {
		t.Fatalf("default port: want=8787 got=%d", cfg.Server.Port)
	}
	if cfg.AI.Provider != "auto" {
		t.Fatalf("default provider: want=auto got=%s", cfg.AI.Provider)
	}
	if cfg.AI.Review.MaxRevisions != 20 {
		t.Fatalf("default max revisions: want=20 got=%d", cfg.AI.Review.MaxRevisions)
	}
}

func TestLoadFileThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "senseboard.toml")
	body := `
[server]
port = 9000

[ai]
provider = "deterministic"

[ai.review]
confidence_threshold = 9.8
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SENSEBOARD_SERVER_PORT", "9100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("env override: want=9100 got=%d", cfg.Server.Port)
	}
	if cfg.AI.Provider != "deterministic" {
		t.Fatalf("file provider: want=deterministic got=%s", cfg.AI.Provider)
	}
	// 9.8 on the 0-10 scale normalizes to 0.98.
	if cfg.AI.Review.ConfidenceThreshold != 0.98 {
		t.Fatalf("threshold normalization: want=0.98 got=%v", cfg.AI.Review.ConfidenceThreshold)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("SENSEBOARD_AI_PROVIDER", "banana")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("SENSEBOARD_AI_REVIEW_CONFIDENCE_THRESHOLD", "42")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for out of range threshold")
	}
}
