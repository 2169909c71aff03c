package room

import (
	"strings"
	"sync"
	"time"

	"github.com/yungbote/senseboard-backend/internal/board"
)

// Bounded collection caps. Older entries are truncated from the head.
const (
	MaxChatMessages   = 300
	MaxContextItems   = 200
	MaxTranscript     = 500
	MaxAIHistory      = 20
	MaxPinnedGroupIDs = 50
)

type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type TranscriptChunk struct {
	ID      string    `json:"id"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

type ChatMessage struct {
	ID     string    `json:"id"`
	Author string    `json:"author"`
	Text   string    `json:"text"`
	Kind   string    `json:"kind,omitempty"`
	At     time.Time `json:"at"`
}

type ContextItem struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Body     string    `json:"body,omitempty"`
	Pinned   bool      `json:"pinned,omitempty"`
	Priority int       `json:"priority,omitempty"`
	At       time.Time `json:"at"`
}

type FocusBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AIStatus reflects what the patch pipeline is doing for a room.
type AIStatus string

const (
	AIStatusIdle      AIStatus = "idle"
	AIStatusListening AIStatus = "listening"
	AIStatusUpdating  AIStatus = "updating"
	AIStatusFrozen    AIStatus = "frozen"
)

type AIConfig struct {
	Frozen         bool      `json:"frozen"`
	FocusMode      bool      `json:"focusMode"`
	FocusBox       *FocusBox `json:"focusBox,omitempty"`
	PinnedGroupIDs []string  `json:"pinnedGroupIds"`
	Status         AIStatus  `json:"status"`
}

type DiagramGroup struct {
	ID          string    `json:"id"`
	Topic       string    `json:"topic"`
	DiagramType string    `json:"diagramType"`
	Pinned      bool      `json:"pinned,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type AIHistoryEntry struct {
	At          time.Time `json:"at"`
	OpCount     int       `json:"opCount"`
	Fingerprint uint64    `json:"fingerprint"`
	Revision    int64     `json:"revision"`
	Personal    string    `json:"personal,omitempty"`
}

// PersonalBoard is a per-member canvas that mirrors the shared pipeline with
// its own fingerprint and pacing state.
type PersonalBoard struct {
	Board       *board.State `json:"board"`
	LastPatchAt time.Time    `json:"lastPatchAt"`
	Fingerprint uint64       `json:"-"`
}

// Room holds all live state for one whiteboard session. All mutation goes
// through the store or the scheduler while holding the room lock; snapshots
// are deep clones so serialization never races mutation.
type Room struct {
	mu sync.Mutex

	ID        string
	CreatedAt time.Time

	Members  []*Member
	sessions map[string]int // member id -> open session count

	Transcript []TranscriptChunk
	Chat       []ChatMessage
	Context    []ContextItem
	VisualHint string

	AIConfig AIConfig

	Groups         map[string]*DiagramGroup
	ActiveGroupID  string
	ArchivedGroups []*DiagramGroup
	AIHistory      []AIHistoryEntry

	LastAiPatchAt     time.Time
	LastAiFingerprint uint64

	Board          *board.State
	UndoBoard      *board.State // shared board as it was before the last AI patch
	PersonalBoards map[string]*PersonalBoard
}

func newRoom(id string) *Room {
	return &Room{
		ID:        id,
		CreatedAt: time.Now(),
		Members:   make([]*Member, 0),
		sessions:  make(map[string]int),
		AIConfig: AIConfig{
			PinnedGroupIDs: make([]string, 0),
			Status:         AIStatusIdle,
		},
		Groups:         make(map[string]*DiagramGroup),
		Board:          board.NewState(),
		PersonalBoards: make(map[string]*PersonalBoard),
	}
}

// WithLock runs fn while holding the room lock. All three mutation paths
// (store dispatch, scheduler worker, transcript trigger) funnel through it.
func (r *Room) WithLock(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}

// NormalizeMemberName produces the stable key used for personalization and
// personal-board lookups.
func NormalizeMemberName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// MemberNameKeys returns the distinct normalized names of currently
// connected members. Callers must hold the room lock or accept staleness.
func (r *Room) MemberNameKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(r.Members))
	out := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		key := NormalizeMemberName(m.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

// PersonalBoardFor returns the member's personal board, creating it when
// absent. Callers must hold the room lock.
func (r *Room) PersonalBoardFor(nameKey string) *PersonalBoard {
	pb, ok := r.PersonalBoards[nameKey]
	if !ok {
		pb = &PersonalBoard{Board: board.NewState()}
		r.PersonalBoards[nameKey] = pb
	}
	return pb
}

// RecordAIPatch stamps the fingerprint bookkeeping after an applied patch
// and keeps a bounded history trail. Callers must hold the room lock.
func (r *Room) RecordAIPatch(fingerprint uint64, opCount int, personal string) {
	now := time.Now()
	entry := AIHistoryEntry{
		At:          now,
		OpCount:     opCount,
		Fingerprint: fingerprint,
		Personal:    personal,
	}
	if personal == "" {
		r.LastAiPatchAt = now
		r.LastAiFingerprint = fingerprint
		entry.Revision = r.Board.Revision
	} else if pb, ok := r.PersonalBoards[personal]; ok {
		pb.LastPatchAt = now
		pb.Fingerprint = fingerprint
		entry.Revision = pb.Board.Revision
	}
	r.AIHistory = append(r.AIHistory, entry)
	if len(r.AIHistory) > MaxAIHistory {
		r.AIHistory = r.AIHistory[len(r.AIHistory)-MaxAIHistory:]
	}
}

// Snapshot is the wire form of a room broadcast to every session.
type Snapshot struct {
	RoomID        string                    `json:"roomId"`
	CreatedAt     time.Time                 `json:"createdAt"`
	Members       []*Member                 `json:"members"`
	Transcript    []TranscriptChunk         `json:"transcript"`
	Chat          []ChatMessage             `json:"chat"`
	Context       []ContextItem             `json:"context"`
	VisualHint    string                    `json:"visualHint,omitempty"`
	AIConfig      AIConfig                  `json:"aiConfig"`
	Groups        map[string]*DiagramGroup  `json:"groups"`
	ActiveGroupID string                    `json:"activeGroupId,omitempty"`
	Archived      []*DiagramGroup           `json:"archivedGroups,omitempty"`
	AIHistory     []AIHistoryEntry          `json:"aiHistory,omitempty"`
	LastAiPatchAt time.Time                 `json:"lastAiPatchAt,omitempty"`
	Board         *board.State              `json:"board"`
}

// Snapshot deep-clones the room state for serialization.
func (r *Room) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		RoomID:        r.ID,
		CreatedAt:     r.CreatedAt,
		Members:       make([]*Member, len(r.Members)),
		Transcript:    append([]TranscriptChunk(nil), r.Transcript...),
		Chat:          append([]ChatMessage(nil), r.Chat...),
		Context:       append([]ContextItem(nil), r.Context...),
		VisualHint:    r.VisualHint,
		AIConfig:      r.AIConfig,
		Groups:        make(map[string]*DiagramGroup, len(r.Groups)),
		ActiveGroupID: r.ActiveGroupID,
		Archived:      make([]*DiagramGroup, len(r.ArchivedGroups)),
		AIHistory:     append([]AIHistoryEntry(nil), r.AIHistory...),
		LastAiPatchAt: r.LastAiPatchAt,
		Board:         r.Board.Clone(),
	}
	for i, m := range r.Members {
		cp := *m
		snap.Members[i] = &cp
	}
	for id, g := range r.Groups {
		cp := *g
		snap.Groups[id] = &cp
	}
	for i, g := range r.ArchivedGroups {
		cp := *g
		snap.Archived[i] = &cp
	}
	if r.AIConfig.FocusBox != nil {
		fb := *r.AIConfig.FocusBox
		snap.AIConfig.FocusBox = &fb
	}
	snap.AIConfig.PinnedGroupIDs = append([]string(nil), r.AIConfig.PinnedGroupIDs...)
	return snap
}
