package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/ai"
)

// Deterministic answers prompts with the offline generator. It decodes the
// engine's own prompt envelope back into an input, so the contract stays the
// same as for model providers: prompt in, JSON reply out.
type Deterministic struct{}

func NewDeterministic() *Deterministic { return &Deterministic{} }

func (d *Deterministic) Name() string { return "deterministic" }

func (d *Deterministic) Preflight(ctx context.Context) error { return nil }

func (d *Deterministic) Generate(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// A revision directive may trail the envelope; the decoder stops at the
	// end of the first JSON value.
	var in ai.Input
	if err := json.NewDecoder(strings.NewReader(user)).Decode(&in); err != nil {
		return "", fmt.Errorf("decode prompt envelope: %w", err)
	}
	patch := ai.GenerateOffline(&in)
	b, err := json.Marshal(patch)
	if err != nil {
		return "", fmt.Errorf("marshal patch: %w", err)
	}
	return string(b), nil
}
