package ai

import (
	"context"
	"errors"
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

type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Preflight(ctx context.Context) error { return nil }

func (p *scriptedProvider) Generate(ctx context.Context, system, user string) (string, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return "", p.errs[i]
	}
	if i >= len(p.replies) {
		return "", errors.New("script exhausted")
	}
	return p.replies[i], nil
}

func TestEngineRevisesUntilThreshold(t *testing.T) {
	low := `{"topic":"t","diagramType":"tree","confidence":0.4,
		"actions":[{"type":"upsertNode","id":"a","label":"A"}]}`
	high := `{"topic":"t","diagramType":"tree","confidence":0.99,
		"actions":[{"type":"upsertNode","id":"a","label":"A"},{"type":"upsertNode","id":"c1","label":"C1"}]}`
	p := &scriptedProvider{replies: []string{low, high}}
	e := NewEngine(mustTestLogger(t), p, 3, 0.98)

	gen, err := e.Generate(context.Background(), inputFromLines("tree with root A"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if p.calls != 2 {
		t.Fatalf("provider calls: want=2 got=%d", p.calls)
	}
	if gen.Confidence < 0.98 || gen.Patch == nil || gen.Patch.NodeCount() != 2 {
		t.Fatalf("accepted candidate: conf=%v patch=%+v", gen.Confidence, gen.Patch)
	}
	if gen.Revisions != 1 {
		t.Fatalf("revisions: want=1 got=%d", gen.Revisions)
	}
}

func TestEngineKeepsBestBelowThreshold(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		`{"confidence":0.6,"actions":[{"type":"upsertNode","id":"a","label":"A"}]}`,
		`{"confidence":0.3,"actions":[{"type":"upsertNode","id":"b","label":"B"}]}`,
	}}
	e := NewEngine(mustTestLogger(t), p, 1, 0.98)

	gen, err := e.Generate(context.Background(), inputFromLines("tree with root A"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.Confidence != 0.6 {
		t.Fatalf("best candidate must win: conf=%v", gen.Confidence)
	}
	if gen.Fallback {
		t.Fatalf("a parseable reply must not count as fallback")
	}
}

func TestEngineFallsBackOffline(t *testing.T) {
	p := &scriptedProvider{errs: []error{errors.New("upstream 500")}}
	e := NewEngine(mustTestLogger(t), p, 2, 0.98)

	gen, err := e.Generate(context.Background(), inputFromLines("tree with root A and children B and C"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !gen.Fallback || gen.Patch == nil {
		t.Fatalf("expected offline fallback, got %+v", gen)
	}
	if gen.Patch.NodeCount() < 3 {
		t.Fatalf("fallback patch too small: %d nodes", gen.Patch.NodeCount())
	}
}

func TestEngineOpsReply(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		"```json\n" + `{"ops":[{"type":"clearBoard"}],"confidence":0.99}` + "\n```",
	}}
	e := NewEngine(mustTestLogger(t), p, 2, 0.98)

	gen, err := e.Generate(context.Background(), inputFromLines("clear the board please, draw nothing"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(gen.Ops) != 1 || gen.Patch != nil {
		t.Fatalf("ops reply mishandled: %+v", gen)
	}
}

func TestEngineRejectsUnknownOpType(t *testing.T) {
	p := &scriptedProvider{replies: []string{
		`{"ops":[{"type":"explodeBoard"}],"confidence":0.99}`,
	}}
	e := NewEngine(mustTestLogger(t), p, 0, 0.98)

	gen, err := e.Generate(context.Background(), inputFromLines("tree with root A"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !gen.Fallback {
		t.Fatalf("invalid ops must fall back offline")
	}
}

func TestEngineContextCancelPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedProvider{errs: []error{context.Canceled}}
	e := NewEngine(mustTestLogger(t), p, 2, 0.98)

	if _, err := e.Generate(ctx, inputFromLines("tree with root A")); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancellation must propagate, got %v", err)
	}
}

func TestFingerprintTracksInputs(t *testing.T) {
	a := inputFromLines("tree with root A")
	b := inputFromLines("tree with root B")
	acts := []string{`{"type":"upsertNode","id":"a"}`}
	if Fingerprint(a, acts) == Fingerprint(b, acts) {
		t.Fatalf("different transcripts must fingerprint differently")
	}
	if Fingerprint(a, acts) != Fingerprint(a, append([]string(nil), acts...)) {
		t.Fatalf("fingerprint must be stable for identical input")
	}
}
