package ai

import (
	"sort"
	"time"

	"github.com/yungbote/senseboard-backend/internal/room"
)

// DefaultWindowSeconds is how far back the transcript window reaches when a
// request does not specify one.
const DefaultWindowSeconds = 30

// maxContextItems caps how many context items ride along in a prompt.
const maxContextItems = 12

// maxChatLines caps the chat tail included in a prompt.
const maxChatLines = 20

type TranscriptLine struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

type ChatLine struct {
	Author string `json:"author,omitempty"`
	Text   string `json:"text"`
	Kind   string `json:"kind,omitempty"`
}

type ContextLine struct {
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Pinned   bool   `json:"pinned,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

type ActiveElement struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Text string `json:"text,omitempty"`
}

// Input is everything the engine packages into a provider prompt.
type Input struct {
	RoomID           string           `json:"roomId"`
	WindowSeconds    int              `json:"windowSeconds"`
	TranscriptWindow []TranscriptLine `json:"transcriptWindow"`
	Corrections      []string         `json:"corrections"`
	Chat             []ChatLine       `json:"chat"`
	ContextItems     []ContextLine    `json:"contextItems"`
	VisualHint       string           `json:"visualHint,omitempty"`
	AIConfig         room.AIConfig    `json:"aiConfig"`
	ActiveBoard      []ActiveElement  `json:"activeBoard"`
	ProfileLines     []string         `json:"profileLines,omitempty"`
}

// CollectInput assembles the prompt input from a room: the filtered
// transcript window, the chat tail, context items ordered pinned first then
// by priority, the visual hint, the AI config, and the active board content
// for identity-stable updates. For personalized boards, profileLines carries
// the member's stored context and personal selects which board's elements
// anchor identity.
func CollectInput(r *room.Room, windowSeconds int, personal string, profileLines []string) *Input {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}
	in := &Input{
		RoomID:        r.ID,
		WindowSeconds: windowSeconds,
		ProfileLines:  profileLines,
	}

	cutoff := time.Now().Add(-time.Duration(windowSeconds) * time.Second)

	r.WithLock(func() {
		for _, c := range r.Transcript {
			if c.At.Before(cutoff) {
				continue
			}
			if !room.MeaningfulTranscript(c.Text) {
				continue
			}
			in.TranscriptWindow = append(in.TranscriptWindow, TranscriptLine{Speaker: c.Speaker, Text: c.Text})
			if room.CorrectionCue(c.Text) {
				in.Corrections = append(in.Corrections, c.Text)
			}
		}

		chat := r.Chat
		if len(chat) > maxChatLines {
			chat = chat[len(chat)-maxChatLines:]
		}
		for _, m := range chat {
			in.Chat = append(in.Chat, ChatLine{Author: m.Author, Text: m.Text, Kind: m.Kind})
			if room.CorrectionCue(m.Text) {
				in.Corrections = append(in.Corrections, m.Text)
			}
		}

		items := append([]room.ContextItem(nil), r.Context...)
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Pinned != items[j].Pinned {
				return items[i].Pinned
			}
			return items[i].Priority > items[j].Priority
		})
		if len(items) > maxContextItems {
			items = items[:maxContextItems]
		}
		for _, it := range items {
			in.ContextItems = append(in.ContextItems, ContextLine{
				Title: it.Title, Body: it.Body, Pinned: it.Pinned, Priority: it.Priority,
			})
		}

		in.VisualHint = r.VisualHint
		in.AIConfig = r.AIConfig

		boardState := r.Board
		if personal != "" {
			boardState = r.PersonalBoardFor(personal).Board
		}
		for _, id := range boardState.Order {
			el := boardState.Elements[id]
			if el == nil {
				continue
			}
			in.ActiveBoard = append(in.ActiveBoard, ActiveElement{
				ID:   id,
				Kind: string(el.Kind),
				Text: el.Text,
			})
		}
	})
	return in
}

// HasSignal reports whether a tick for this room would have anything to work
// with: a non-empty filtered transcript window, or chat/context newer than
// the last applied patch.
func HasSignal(r *room.Room, windowSeconds int) bool {
	if windowSeconds <= 0 {
		windowSeconds = DefaultWindowSeconds
	}
	cutoff := time.Now().Add(-time.Duration(windowSeconds) * time.Second)

	signal := false
	r.WithLock(func() {
		for _, c := range r.Transcript {
			if !c.At.Before(cutoff) && room.MeaningfulTranscript(c.Text) {
				signal = true
				return
			}
		}
		since := r.LastAiPatchAt
		for _, m := range r.Chat {
			if m.At.After(since) {
				signal = true
				return
			}
		}
		for _, it := range r.Context {
			if it.At.After(since) {
				signal = true
				return
			}
		}
	})
	return signal
}

// TranscriptText flattens the transcript window for the offline generator.
func (in *Input) TranscriptText() string {
	var out string
	for _, l := range in.TranscriptWindow {
		if out != "" {
			out += "\n"
		}
		out += l.Text
	}
	for _, c := range in.Chat {
		if out != "" {
			out += "\n"
		}
		out += c.Text
	}
	return out
}
