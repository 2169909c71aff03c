package personalization

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development", "debug")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func runStoreSuite(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if p, err := s.Get(ctx, "alex"); err != nil || p != nil {
		t.Fatalf("missing profile: p=%v err=%v", p, err)
	}
	if lines := s.ProfileLines(ctx, "alex"); lines != nil {
		t.Fatalf("missing profile lines: %v", lines)
	}

	p, err := s.Append(ctx, "alex", "Alex", []string{"prefers trees top-down", "  ", "prefers trees top-down"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(p.ContextLines) != 1 {
		t.Fatalf("dedupe failed: %v", p.ContextLines)
	}

	p, err = s.Append(ctx, "alex", "", []string{"label edges"})
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if p.DisplayName != "Alex" {
		t.Fatalf("display name lost: %q", p.DisplayName)
	}
	if len(p.ContextLines) != 2 {
		t.Fatalf("merge failed: %v", p.ContextLines)
	}

	lines := s.ProfileLines(ctx, "alex")
	if len(lines) != 2 || lines[1] != "label edges" {
		t.Fatalf("profile lines: %v", lines)
	}
}

func TestMemoryStore(t *testing.T) {
	runStoreSuite(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLite(mustTestLogger(t), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	runStoreSuite(t, s)
}

func TestMergeCapsLines(t *testing.T) {
	var lines []string
	for i := 0; i < MaxContextLines+10; i++ {
		lines = append(lines, string(rune('a'+i%26))+"-"+string(rune('0'+i%10)))
	}
	merged := mergeLines(nil, lines)
	if len(merged) > MaxContextLines {
		t.Fatalf("cap exceeded: %d", len(merged))
	}
}
