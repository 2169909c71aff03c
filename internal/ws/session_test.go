package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
)

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) (*httptest.Server, *room.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development", "debug")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)

	store := room.NewStore(log)
	h := NewHandler(log, store, nil)

	engine := gin.New()
	engine.GET("/ws", h.Serve)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, store
}

func dial(t *testing.T, srv *httptest.Server, roomID, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?roomId=" + roomID + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func sendFrame(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(room.ClientMessage{Type: typ, Payload: raw}); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func handshake(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	sendFrame(t, conn, room.MsgClientAck, room.AckPayload{Protocol: room.ProtocolVersion})
	if f := readFrame(t, conn); f.Type != room.MsgServerAck {
		t.Fatalf("expected server ack, got %q", f.Type)
	}
}

func TestHandshakeDeliversSnapshot(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "HANDSHK1", "Alex")

	handshake(t, conn)

	f := readFrame(t, conn)
	if f.Type != room.MsgRoomSnapshot {
		t.Fatalf("expected snapshot after ack, got %q", f.Type)
	}
	var snap room.Snapshot
	if err := json.Unmarshal(f.Payload, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.RoomID != "HANDSHK1" {
		t.Fatalf("room id = %q", snap.RoomID)
	}
	if len(snap.Members) != 1 || snap.Members[0].Name != "Alex" {
		t.Fatalf("members = %+v", snap.Members)
	}
}

func TestPreAckMessageRejected(t *testing.T) {
	srv, store := newTestServer(t)
	conn := dial(t, srv, "PREACK01", "Alex")

	sendFrame(t, conn, room.MsgChatAdd, room.ChatAddPayload{Text: "hello"})

	f := readFrame(t, conn)
	if f.Type != room.MsgRoomError {
		t.Fatalf("expected room:error, got %q", f.Type)
	}

	// The dropped message must not have touched the room.
	if r, ok := store.Get("PREACK01"); ok {
		snap := r.Snapshot()
		if len(snap.Chat) != 0 {
			t.Fatalf("pre-ack chat landed: %+v", snap.Chat)
		}
	}
}

func TestChatMutationRebroadcasts(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "CHAT0001", "Alex")

	handshake(t, conn)
	if f := readFrame(t, conn); f.Type != room.MsgRoomSnapshot {
		t.Fatalf("expected join snapshot, got %q", f.Type)
	}

	sendFrame(t, conn, room.MsgChatAdd, room.ChatAddPayload{Text: "draw the tree"})

	f := readFrame(t, conn)
	if f.Type != room.MsgRoomSnapshot {
		t.Fatalf("expected snapshot after chat, got %q", f.Type)
	}
	var snap room.Snapshot
	if err := json.Unmarshal(f.Payload, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Chat) != 1 || snap.Chat[0].Text != "draw the tree" || snap.Chat[0].Author != "Alex" {
		t.Fatalf("chat = %+v", snap.Chat)
	}
}

func TestMalformedPayloadGetsError(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := dial(t, srv, "BADMSG01", "Alex")

	handshake(t, conn)
	if f := readFrame(t, conn); f.Type != room.MsgRoomSnapshot {
		t.Fatalf("expected join snapshot, got %q", f.Type)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	f := readFrame(t, conn)
	if f.Type != room.MsgRoomError {
		t.Fatalf("expected room:error, got %q", f.Type)
	}
}

func TestMissingQueryParamsRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?roomId=NONAME01"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial succeeded without name")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("resp = %+v", resp)
	}
}
