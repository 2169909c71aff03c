package room

import (
	"encoding/json"
	"fmt"
)

// WebSocket protocol version exchanged during the handshake.
const ProtocolVersion = "senseboard-ws-v1"

// Client -> server frame types.
const (
	MsgClientAck       = "client:ack"
	MsgChatAdd         = "chat:add"
	MsgContextAdd      = "context:add"
	MsgContextUpdate   = "context:update"
	MsgContextDelete   = "context:delete"
	MsgTranscriptAdd   = "transcript:add"
	MsgVisualHintSet   = "visualHint:set"
	MsgAIConfigUpdate  = "aiConfig:update"
	MsgPinCurrent      = "diagram:pinCurrent"
	MsgUndoAI          = "diagram:undoAi"
	MsgRestoreArchived = "diagram:restoreArchived"
	MsgClearBoard      = "diagram:clearBoard"
)

// Server -> client frame types.
const (
	MsgServerAck    = "server:ack"
	MsgRoomSnapshot = "room:snapshot"
	MsgRoomError    = "room:error"
)

// ClientMessage is the envelope for every client frame. Payload stays raw
// until the dispatcher knows the type.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage is the envelope for every server frame.
type ServerMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func ErrorFrame(message string) ServerMessage {
	return ServerMessage{Type: MsgRoomError, Payload: map[string]string{"message": message}}
}

func SnapshotFrame(snap *Snapshot) ServerMessage {
	return ServerMessage{Type: MsgRoomSnapshot, Payload: snap}
}

// Payload shapes for the client message union.

type AckPayload struct {
	Protocol string `json:"protocol"`
	SentAt   int64  `json:"sentAt,omitempty"`
}

type ChatAddPayload struct {
	Text string `json:"text"`
	Kind string `json:"kind,omitempty"`
}

type ContextAddPayload struct {
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	Pinned   bool   `json:"pinned,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

type ContextUpdatePayload struct {
	ID       string  `json:"id"`
	Title    *string `json:"title,omitempty"`
	Body     *string `json:"body,omitempty"`
	Pinned   *bool   `json:"pinned,omitempty"`
	Priority *int    `json:"priority,omitempty"`
}

type ContextDeletePayload struct {
	ID string `json:"id"`
}

type TranscriptAddPayload struct {
	Speaker string `json:"speaker,omitempty"`
	Text    string `json:"text"`
}

type VisualHintPayload struct {
	Text string `json:"text"`
}

type AIConfigUpdatePayload struct {
	Frozen         *bool     `json:"frozen,omitempty"`
	FocusMode      *bool     `json:"focusMode,omitempty"`
	FocusBox       *FocusBox `json:"focusBox,omitempty"`
	PinnedGroupIDs *[]string `json:"pinnedGroupIds,omitempty"`
	Status         *string   `json:"status,omitempty"`
}

type GroupRefPayload struct {
	GroupID string `json:"groupId"`
}

func decodePayload[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}
