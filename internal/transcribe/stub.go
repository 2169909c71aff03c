package transcribe

import (
	"context"
	"hash/fnv"
)

// stubPhrases feed the downstream pipeline during development: every phrase
// clears the transcript signal filter and exercises a different diagram
// shape.
var stubPhrases = []string{
	"let's draw a tree with root A and children B and C",
	"client -> gateway -> service -> database",
	"step 1: collect input, step 2: generate, step 3: apply to the board",
	"actually make C a child of B instead",
	"walk the tree in post-order please",
}

// Stub deterministically maps audio bytes to a canned phrase. Same chunk,
// same text, so tests and local demos are reproducible.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Close() error { return nil }

func (s *Stub) Transcribe(ctx context.Context, audio []byte, mimeType string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	h := fnv.New32a()
	h.Write(audio)
	phrase := stubPhrases[int(h.Sum32())%len(stubPhrases)]
	return Result{Text: phrase, Confidence: 1, Provider: s.Name()}, nil
}
