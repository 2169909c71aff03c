package room

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/board"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

// Sender is the write half of a connected session. Sessions hold a room id
// token; the store holds the send handle. Neither side references the other,
// which keeps the object graph acyclic.
type Sender interface {
	Send(msg ServerMessage) error
}

// TranscriptListener fires after a transcript chunk is accepted into a room.
// The scheduler registers its debounced trigger here.
type TranscriptListener func(r *Room)

// SnapshotListener fires after every broadcast, with the serialized snapshot.
// The cross-instance bus registers here.
type SnapshotListener func(roomID string, snap *Snapshot)

// Store owns every room in the process. All access to the room map goes
// through it.
type Store struct {
	log *logger.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
	conns map[string]map[Sender]string // room id -> sender -> member id

	onTranscript TranscriptListener
	onSnapshot   SnapshotListener
}

func NewStore(log *logger.Logger) *Store {
	return &Store{
		log:   log.With("component", "room.Store"),
		rooms: make(map[string]*Room),
		conns: make(map[string]map[Sender]string),
	}
}

func (s *Store) SetTranscriptListener(fn TranscriptListener) { s.onTranscript = fn }
func (s *Store) SetSnapshotListener(fn SnapshotListener)     { s.onSnapshot = fn }

// NormalizeRoomID canonicalizes a client-supplied room id.
func NormalizeRoomID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// GetOrCreate returns the room for id, creating it on first reference.
func (s *Store) GetOrCreate(id string) *Room {
	norm := NormalizeRoomID(id)
	if norm == "" {
		norm = NewRoomID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[norm]
	if !ok {
		r = newRoom(norm)
		s.rooms[norm] = r
		s.log.Info("room created", "room_id", norm)
	}
	return r
}

// Get returns the room for id without creating it.
func (s *Store) Get(id string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[NormalizeRoomID(id)]
	return r, ok
}

// NewRoomID mints a short shareable room code.
func NewRoomID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// Attach registers a session for a member and broadcasts the resulting
// membership. Multiple sessions per member are counted; only the first one
// appends a Member entry.
func (s *Store) Attach(roomID, memberID, name string, sender Sender) *Room {
	r := s.GetOrCreate(roomID)

	r.WithLock(func() {
		r.sessions[memberID]++
		if r.sessions[memberID] == 1 {
			r.Members = append(r.Members, &Member{
				ID:       memberID,
				Name:     strings.TrimSpace(name),
				JoinedAt: time.Now(),
			})
		}
	})

	s.mu.Lock()
	if s.conns[r.ID] == nil {
		s.conns[r.ID] = make(map[Sender]string)
	}
	s.conns[r.ID][sender] = memberID
	s.mu.Unlock()

	s.Broadcast(r.ID)
	return r
}

// Detach drops a session. When the member's last session closes, the member
// leaves the room.
func (s *Store) Detach(roomID string, sender Sender) {
	norm := NormalizeRoomID(roomID)

	s.mu.Lock()
	memberID, ok := s.conns[norm][sender]
	if ok {
		delete(s.conns[norm], sender)
		if len(s.conns[norm]) == 0 {
			delete(s.conns, norm)
		}
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	r, found := s.Get(norm)
	if !found {
		return
	}
	r.WithLock(func() {
		r.sessions[memberID]--
		if r.sessions[memberID] <= 0 {
			delete(r.sessions, memberID)
			for i, m := range r.Members {
				if m.ID == memberID {
					r.Members = append(r.Members[:i], r.Members[i+1:]...)
					break
				}
			}
		}
	})
	s.Broadcast(norm)
}

// Broadcast serializes the room snapshot and writes it to every open
// session. A failed write never aborts the loop. No-op for unknown rooms.
func (s *Store) Broadcast(roomID string) {
	norm := NormalizeRoomID(roomID)
	r, ok := s.Get(norm)
	if !ok {
		return
	}
	snap := r.Snapshot()
	frame := SnapshotFrame(snap)

	s.mu.RLock()
	targets := make([]Sender, 0, len(s.conns[norm]))
	for sender := range s.conns[norm] {
		targets = append(targets, sender)
	}
	s.mu.RUnlock()

	for _, sender := range targets {
		if err := sender.Send(frame); err != nil {
			s.log.Debug("snapshot write failed", "room_id", norm, "err", err)
		}
	}
	if s.onSnapshot != nil {
		s.onSnapshot(norm, snap)
	}
}

// ForwardSnapshot delivers a snapshot that originated on another instance to
// the local sessions of the room, without re-publishing it.
func (s *Store) ForwardSnapshot(roomID string, snap *Snapshot) {
	norm := NormalizeRoomID(roomID)
	frame := SnapshotFrame(snap)

	s.mu.RLock()
	targets := make([]Sender, 0, len(s.conns[norm]))
	for sender := range s.conns[norm] {
		targets = append(targets, sender)
	}
	s.mu.RUnlock()

	for _, sender := range targets {
		if err := sender.Send(frame); err != nil {
			s.log.Debug("forwarded snapshot write failed", "room_id", norm, "err", err)
		}
	}
}

// AppendTranscript validates and appends a transcript chunk, fires the
// transcript listener and broadcasts. Returns false when the chunk fails the
// informational threshold.
func (s *Store) AppendTranscript(r *Room, speaker, text string) bool {
	if !MeaningfulTranscript(text) {
		return false
	}
	r.WithLock(func() {
		r.Transcript = append(r.Transcript, TranscriptChunk{
			ID:      uuid.NewString(),
			Speaker: strings.TrimSpace(speaker),
			Text:    strings.TrimSpace(text),
			At:      time.Now(),
		})
		if len(r.Transcript) > MaxTranscript {
			r.Transcript = r.Transcript[len(r.Transcript)-MaxTranscript:]
		}
		if !r.AIConfig.Frozen && r.AIConfig.Status == AIStatusIdle {
			r.AIConfig.Status = AIStatusListening
		}
	})
	if s.onTranscript != nil {
		s.onTranscript(r)
	}
	s.Broadcast(r.ID)
	return true
}

// Apply dispatches a client frame against the room. Accepted mutations
// broadcast a fresh snapshot; dropped payloads return nil without
// broadcasting; protocol violations return an error for the session to
// surface as room:error.
func (s *Store) Apply(r *Room, senderName string, msg ClientMessage) error {
	changed := false

	switch msg.Type {
	case MsgChatAdd:
		p, err := decodePayload[ChatAddPayload](msg.Payload)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(p.Text)
		if text == "" {
			return nil
		}
		r.WithLock(func() {
			r.Chat = append(r.Chat, ChatMessage{
				ID:     uuid.NewString(),
				Author: senderName,
				Text:   text,
				Kind:   strings.TrimSpace(p.Kind),
				At:     time.Now(),
			})
			if len(r.Chat) > MaxChatMessages {
				r.Chat = r.Chat[len(r.Chat)-MaxChatMessages:]
			}
		})
		changed = true

	case MsgContextAdd:
		p, err := decodePayload[ContextAddPayload](msg.Payload)
		if err != nil {
			return err
		}
		title := strings.TrimSpace(p.Title)
		if title == "" {
			title = "Untitled context"
		}
		r.WithLock(func() {
			r.Context = append(r.Context, ContextItem{
				ID:       uuid.NewString(),
				Title:    title,
				Body:     strings.TrimSpace(p.Body),
				Pinned:   p.Pinned,
				Priority: p.Priority,
				At:       time.Now(),
			})
			if len(r.Context) > MaxContextItems {
				r.Context = r.Context[len(r.Context)-MaxContextItems:]
			}
		})
		changed = true

	case MsgContextUpdate:
		p, err := decodePayload[ContextUpdatePayload](msg.Payload)
		if err != nil {
			return err
		}
		r.WithLock(func() {
			for i := range r.Context {
				if r.Context[i].ID != p.ID {
					continue
				}
				if p.Title != nil && strings.TrimSpace(*p.Title) != "" {
					r.Context[i].Title = strings.TrimSpace(*p.Title)
				}
				if p.Body != nil {
					r.Context[i].Body = strings.TrimSpace(*p.Body)
				}
				if p.Pinned != nil {
					r.Context[i].Pinned = *p.Pinned
				}
				if p.Priority != nil {
					r.Context[i].Priority = *p.Priority
				}
				changed = true
				break
			}
		})

	case MsgContextDelete:
		p, err := decodePayload[ContextDeletePayload](msg.Payload)
		if err != nil {
			return err
		}
		r.WithLock(func() {
			for i := range r.Context {
				if r.Context[i].ID == p.ID {
					r.Context = append(r.Context[:i], r.Context[i+1:]...)
					changed = true
					break
				}
			}
		})

	case MsgTranscriptAdd:
		p, err := decodePayload[TranscriptAddPayload](msg.Payload)
		if err != nil {
			return err
		}
		speaker := p.Speaker
		if speaker == "" {
			speaker = senderName
		}
		// AppendTranscript broadcasts on its own.
		s.AppendTranscript(r, speaker, p.Text)
		return nil

	case MsgVisualHintSet:
		p, err := decodePayload[VisualHintPayload](msg.Payload)
		if err != nil {
			return err
		}
		text := strings.TrimSpace(p.Text)
		if text == "" {
			return nil
		}
		r.WithLock(func() {
			r.VisualHint = text
		})
		changed = true

	case MsgAIConfigUpdate:
		p, err := decodePayload[AIConfigUpdatePayload](msg.Payload)
		if err != nil {
			return err
		}
		r.WithLock(func() {
			applyAIConfigUpdate(&r.AIConfig, p)
		})
		changed = true

	case MsgPinCurrent:
		r.WithLock(func() {
			g, ok := r.Groups[r.ActiveGroupID]
			if !ok {
				return
			}
			g.Pinned = true
			for _, id := range r.AIConfig.PinnedGroupIDs {
				if id == g.ID {
					changed = true
					return
				}
			}
			r.AIConfig.PinnedGroupIDs = append(r.AIConfig.PinnedGroupIDs, g.ID)
			if len(r.AIConfig.PinnedGroupIDs) > MaxPinnedGroupIDs {
				r.AIConfig.PinnedGroupIDs = r.AIConfig.PinnedGroupIDs[1:]
			}
			changed = true
		})

	case MsgUndoAI:
		r.WithLock(func() {
			changed = r.restoreUndoLocked()
		})

	case MsgRestoreArchived:
		p, err := decodePayload[GroupRefPayload](msg.Payload)
		if err != nil {
			return err
		}
		r.WithLock(func() {
			for i, g := range r.ArchivedGroups {
				if g.ID == p.GroupID {
					r.ArchivedGroups = append(r.ArchivedGroups[:i], r.ArchivedGroups[i+1:]...)
					r.Groups[g.ID] = g
					r.ActiveGroupID = g.ID
					changed = true
					break
				}
			}
		})

	case MsgClearBoard:
		r.WithLock(func() {
			res := board.Apply(r.Board, board.Op{Type: board.OpClearBoard})
			changed = res.Changed
		})

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}

	if changed {
		s.Broadcast(r.ID)
	}
	return nil
}

// applyAIConfigUpdate merges a partial update, enforcing the freeze/status
// coupling and clearing the focus box when focus mode turns off.
func applyAIConfigUpdate(cfg *AIConfig, p AIConfigUpdatePayload) {
	if p.FocusMode != nil {
		cfg.FocusMode = *p.FocusMode
		if !cfg.FocusMode {
			cfg.FocusBox = nil
		}
	}
	if p.FocusBox != nil && cfg.FocusMode {
		fb := *p.FocusBox
		cfg.FocusBox = &fb
	}
	if p.PinnedGroupIDs != nil {
		cfg.PinnedGroupIDs = append([]string(nil), (*p.PinnedGroupIDs)...)
	}
	if p.Status != nil {
		switch AIStatus(*p.Status) {
		case AIStatusIdle, AIStatusListening, AIStatusUpdating, AIStatusFrozen:
			cfg.Status = AIStatus(*p.Status)
			cfg.Frozen = cfg.Status == AIStatusFrozen
		}
	}
	if p.Frozen != nil {
		cfg.Frozen = *p.Frozen
		if cfg.Frozen {
			cfg.Status = AIStatusFrozen
		} else if cfg.Status == AIStatusFrozen {
			cfg.Status = AIStatusIdle
		}
	}
}

// restoreUndoLocked swaps the board back to the pre-patch snapshot while
// keeping the revision strictly increasing.
func (r *Room) restoreUndoLocked() bool {
	if r.UndoBoard == nil {
		return false
	}
	rev := r.Board.Revision
	restored := r.UndoBoard
	r.UndoBoard = nil
	restored.Revision = rev + 1
	if restored.LastUpdatedAt.Before(r.Board.LastUpdatedAt) {
		restored.LastUpdatedAt = r.Board.LastUpdatedAt
	}
	now := time.Now()
	if now.After(restored.LastUpdatedAt) {
		restored.LastUpdatedAt = now
	}
	r.Board = restored
	return true
}
