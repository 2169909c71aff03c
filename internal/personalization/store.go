// Package personalization persists per-member context lines keyed by
// normalized member name. The scheduler folds these lines into prompts for
// personal boards, so a member's stated preferences survive reconnects and
// restarts.
package personalization

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MaxContextLines bounds a profile; older lines age out first.
const MaxContextLines = 200

type Profile struct {
	NameKey      string    `json:"nameKey"`
	DisplayName  string    `json:"displayName,omitempty"`
	ContextLines []string  `json:"contextLines"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Store interface {
	Get(ctx context.Context, nameKey string) (*Profile, error)
	// Append merges new context lines into the profile, creating it when
	// absent. Duplicate lines are dropped.
	Append(ctx context.Context, nameKey, displayName string, lines []string) (*Profile, error)
	// ProfileLines is the prompt-side accessor; missing profiles yield nil.
	ProfileLines(ctx context.Context, nameKey string) []string
	Close() error
}

func mergeLines(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	out := append([]string(nil), existing...)
	for _, l := range existing {
		seen[strings.ToLower(strings.TrimSpace(l))] = true
	}
	for _, l := range incoming {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	if len(out) > MaxContextLines {
		out = out[len(out)-MaxContextLines:]
	}
	return out
}

// Memory is the in-process store used in tests and when no database path is
// configured.
type Memory struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]*Profile)}
}

func (m *Memory) Get(ctx context.Context, nameKey string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[nameKey]
	if !ok {
		return nil, nil
	}
	cp := *p
	cp.ContextLines = append([]string(nil), p.ContextLines...)
	return &cp, nil
}

func (m *Memory) Append(ctx context.Context, nameKey, displayName string, lines []string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[nameKey]
	if !ok {
		p = &Profile{NameKey: nameKey}
		m.profiles[nameKey] = p
	}
	if displayName != "" {
		p.DisplayName = displayName
	}
	p.ContextLines = mergeLines(p.ContextLines, lines)
	p.UpdatedAt = time.Now()

	cp := *p
	cp.ContextLines = append([]string(nil), p.ContextLines...)
	return &cp, nil
}

func (m *Memory) ProfileLines(ctx context.Context, nameKey string) []string {
	p, _ := m.Get(ctx, nameKey)
	if p == nil {
		return nil
	}
	return p.ContextLines
}

func (m *Memory) Close() error { return nil }
