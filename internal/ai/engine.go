package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/board"
	"github.com/yungbote/senseboard-backend/internal/diagram"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

// Provider turns a prompt pair into a raw model reply. Implementations live
// in internal/ai/provider.
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, user string) (string, error)
	Preflight(ctx context.Context) error
}

// Generation is one accepted engine output. Exactly one of Ops or Patch is
// populated; a Patch still has to pass through the diagram adapter against
// the live board before it can be applied.
type Generation struct {
	Ops         []board.Op
	Patch       *diagram.Patch
	Confidence  float64
	Revisions   int
	Fingerprint uint64
	Provider    string
	Fallback    bool
}

// Engine runs the provider with a confidence-driven revision loop and falls
// back to the offline generator when the provider cannot produce a usable
// reply.
type Engine struct {
	log          *logger.Logger
	provider     Provider
	maxRevisions int
	threshold    float64
}

func NewEngine(log *logger.Logger, provider Provider, maxRevisions int, threshold float64) *Engine {
	if maxRevisions < 0 {
		maxRevisions = 0
	}
	if threshold <= 0 || threshold > 1 {
		threshold = 0.98
	}
	return &Engine{
		log:          log.With("service", "AIEngine"),
		provider:     provider,
		maxRevisions: maxRevisions,
		threshold:    threshold,
	}
}

func (e *Engine) Preflight(ctx context.Context) error {
	return e.provider.Preflight(ctx)
}

type candidate struct {
	ops        []board.Op
	patch      *diagram.Patch
	confidence float64
	raw        string
}

// Generate prompts the provider, revising while the reply's self-reported
// confidence sits below the threshold. The best candidate seen wins; if no
// parseable reply arrives at all, the offline patch is returned instead of an
// error so a room tick always has something to apply.
func (e *Engine) Generate(ctx context.Context, in *Input) (*Generation, error) {
	user, err := BuildUserPrompt(in)
	if err != nil {
		return nil, err
	}

	reference := GenerateOffline(in)
	referenceJSON, _ := json.Marshal(reference)

	var best *candidate
	var prev *candidate
	revisions := 0

	for attempt := 0; attempt <= e.maxRevisions; attempt++ {
		prompt := user
		if prev != nil {
			prompt += revisionDirective(prev.raw, prev.confidence, string(referenceJSON))
		}

		raw, genErr := e.provider.Generate(ctx, systemPrompt, prompt)
		if genErr != nil {
			if errors.Is(genErr, context.Canceled) || errors.Is(genErr, context.DeadlineExceeded) {
				return nil, genErr
			}
			e.log.Warn("provider generate failed", "provider", e.provider.Name(), "attempt", attempt, "error", genErr)
			break
		}

		cand, parseErr := parseReply(raw)
		if parseErr != nil {
			e.log.Warn("unparseable provider reply", "provider", e.provider.Name(), "attempt", attempt, "error", parseErr)
			prev = &candidate{raw: raw}
			revisions = attempt
			continue
		}

		if best == nil || cand.confidence > best.confidence {
			best = cand
		}
		revisions = attempt
		if cand.confidence >= e.threshold {
			break
		}
		prev = cand
	}

	gen := &Generation{Revisions: revisions, Provider: e.provider.Name()}
	if best != nil {
		gen.Ops = best.ops
		gen.Patch = best.patch
		gen.Confidence = best.confidence
	} else {
		gen.Patch = reference
		gen.Confidence = reference.Confidence
		gen.Fallback = true
	}
	gen.Fingerprint = Fingerprint(in, actionStrings(gen))
	return gen, nil
}

// parseReply decodes a provider reply into a candidate, accepting either the
// ops envelope or a diagram patch (wrapped or bare).
func parseReply(raw string) (*candidate, error) {
	body := stripFence(raw)
	var env struct {
		Ops         []board.Op       `json:"ops"`
		Confidence  *float64         `json:"confidence"`
		Patch       *diagram.Patch   `json:"patch"`
		Topic       string           `json:"topic"`
		DiagramType diagram.Type     `json:"diagramType"`
		Actions     []diagram.Action `json:"actions"`
	}
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}

	conf := 0.5
	if env.Confidence != nil {
		conf = *env.Confidence
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	switch {
	case len(env.Ops) > 0:
		if err := validateOps(env.Ops); err != nil {
			return nil, err
		}
		return &candidate{ops: env.Ops, confidence: conf, raw: body}, nil
	case env.Patch != nil:
		return &candidate{patch: env.Patch, confidence: env.Patch.Confidence, raw: body}, nil
	case len(env.Actions) > 0:
		p := &diagram.Patch{
			Topic:       env.Topic,
			DiagramType: env.DiagramType,
			Confidence:  conf,
			Actions:     env.Actions,
		}
		return &candidate{patch: p, confidence: conf, raw: body}, nil
	default:
		return nil, errors.New("reply carries neither ops nor actions")
	}
}

var knownOpTypes = map[board.OpType]bool{
	board.OpUpsertElement: true, board.OpDeleteElement: true,
	board.OpAppendStrokePoints: true, board.OpOffsetElement: true,
	board.OpSetElementGeometry: true, board.OpSetElementStyle: true,
	board.OpSetElementText: true, board.OpDuplicateElement: true,
	board.OpSetElementZIndex: true, board.OpAlignElements: true,
	board.OpDistributeElements: true, board.OpClearBoard: true,
	board.OpSetViewport: true, board.OpBatch: true,
}

func validateOps(ops []board.Op) error {
	for _, op := range ops {
		if !knownOpTypes[op.Type] {
			return fmt.Errorf("unknown op type %q", op.Type)
		}
		if op.Type == board.OpBatch {
			if err := validateOps(op.Ops); err != nil {
				return err
			}
		}
	}
	return nil
}

// stripFence removes a markdown code fence if the model wrapped its JSON in
// one, and trims any prose before the first brace.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if i := strings.IndexByte(s, '{'); i > 0 {
		s = s[i:]
	}
	return s
}

// actionStrings flattens a generation into comparable strings for the
// fingerprint.
func actionStrings(gen *Generation) []string {
	var out []string
	if gen.Patch != nil {
		for _, a := range gen.Patch.Actions {
			b, _ := json.Marshal(a)
			out = append(out, string(b))
		}
		return out
	}
	for _, op := range gen.Ops {
		b, _ := json.Marshal(op)
		out = append(out, string(b))
	}
	return out
}
