package provider

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/diagram"
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

func TestDeterministicRoundTrip(t *testing.T) {
	in := &ai.Input{
		RoomID:        "T1",
		WindowSeconds: 30,
		TranscriptWindow: []ai.TranscriptLine{
			{Text: "tree with root A and children B and C"},
		},
	}
	user, err := ai.BuildUserPrompt(in)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}

	d := NewDeterministic()
	raw, err := d.Generate(context.Background(), "", user)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var p diagram.Patch
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("reply is not a patch: %v", err)
	}
	if p.DiagramType != diagram.TypeTree || p.NodeCount() != 3 {
		t.Fatalf("patch: type=%s nodes=%d", p.DiagramType, p.NodeCount())
	}
	if p.Confidence < 1 {
		t.Fatalf("deterministic patch must be fully confident, got %v", p.Confidence)
	}
}

func TestDeterministicIgnoresRevisionDirective(t *testing.T) {
	in := &ai.Input{TranscriptWindow: []ai.TranscriptLine{{Text: "tree with root A"}}}
	user, err := ai.BuildUserPrompt(in)
	if err != nil {
		t.Fatalf("build prompt: %v", err)
	}
	user += "\n\nYour previous reply scored confidence 0.10, below the acceptance threshold."

	if _, err := NewDeterministic().Generate(context.Background(), "", user); err != nil {
		t.Fatalf("trailing directive must not break the decoder: %v", err)
	}
}

func TestResolveExplicitProviders(t *testing.T) {
	log := mustTestLogger(t)

	if _, err := Resolve(log, config.AIConfig{Provider: "openai"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("openai without key: %v", err)
	}
	if _, err := Resolve(log, config.AIConfig{Provider: "anthropic"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("anthropic without key: %v", err)
	}
	if _, err := Resolve(log, config.AIConfig{Provider: "nope"}); err == nil {
		t.Fatalf("unknown provider must error")
	}

	p, err := Resolve(log, config.AIConfig{Provider: "deterministic"})
	if err != nil || p.Name() != "deterministic" {
		t.Fatalf("deterministic resolve: p=%v err=%v", p, err)
	}
}

func TestResolveAutoPrefersAnthropic(t *testing.T) {
	log := mustTestLogger(t)
	p, err := Resolve(log, config.AIConfig{Provider: "auto", AnthropicAPIKey: "k", OpenAIAPIKey: "k"})
	if err != nil {
		t.Fatalf("auto resolve: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Fatalf("auto must prefer anthropic, got %s", p.Name())
	}
}

func TestResolveAutoFallsThroughToOpenAI(t *testing.T) {
	log := mustTestLogger(t)
	p, err := Resolve(log, config.AIConfig{Provider: "auto", OpenAIAPIKey: "k"})
	if err != nil {
		t.Fatalf("auto resolve: %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("auto with only an openai key: got %s", p.Name())
	}
}
