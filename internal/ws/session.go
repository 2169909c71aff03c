// Package ws carries the realtime protocol: one websocket session per
// connected member, a handshake before any mutation is accepted, and
// snapshot fan-out through the room store.
package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/yungbote/senseboard-backend/internal/observability"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
)

const (
	writeTimeout   = 10 * time.Second
	ackTimeout     = 15 * time.Second
	outboundBuffer = 64
)

type Handler struct {
	log      *logger.Logger
	store    *room.Store
	metrics  *observability.Metrics
	upgrader *websocket.Upgrader
}

func NewHandler(log *logger.Logger, store *room.Store, metrics *observability.Metrics) *Handler {
	return &Handler{
		log:     log.With("service", "WSHandler"),
		store:   store,
		metrics: metrics,
		upgrader: &websocket.Upgrader{
			// Joins come from whatever host serves the frontend.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// session is the per-connection state. The store addresses it only through
// the room.Sender interface; writes go through the outbound channel so the
// broadcast path never blocks on a slow peer.
type session struct {
	conn     *websocket.Conn
	outbound chan room.ServerMessage
	done     chan struct{}
	once     sync.Once
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		conn:     conn,
		outbound: make(chan room.ServerMessage, outboundBuffer),
		done:     make(chan struct{}),
	}
}

func (s *session) Send(msg room.ServerMessage) error {
	select {
	case <-s.done:
		return errors.New("session closed")
	case s.outbound <- msg:
		return nil
	default:
		return errors.New("outbound buffer full")
	}
}

func (s *session) close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *session) writePump() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.outbound:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.close()
				return
			}
		}
	}
}

// Serve upgrades the connection and runs the read loop until the peer goes
// away. Query params carry identity: roomId is the shareable code, name the
// display name used for chat attribution and personalization.
func (h *Handler) Serve(c *gin.Context) {
	roomID := room.NormalizeRoomID(c.Query("roomId"))
	name := strings.TrimSpace(c.Query("name"))
	if roomID == "" || name == "" {
		c.String(http.StatusBadRequest, "roomId and name query params required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "room_id", roomID, "error", err)
		return
	}

	sess := newSession(conn)
	go sess.writePump()

	ctx := c.Request.Context()
	h.metrics.SessionOpened(ctx)
	h.log.Info("session opened", "room_id", roomID, "name", name)

	memberID := uuid.NewString()
	attached := false
	defer func() {
		if attached {
			h.store.Detach(roomID, sess)
		}
		sess.close()
		h.metrics.SessionClosed(ctx)
		h.log.Info("session closed", "room_id", roomID, "name", name)
	}()

	// Sessions that never complete the handshake get dropped by the read
	// deadline instead of idling forever.
	_ = conn.SetReadDeadline(time.Now().Add(ackTimeout))

	var r *room.Room
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg room.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			_ = sess.Send(room.ErrorFrame("Invalid websocket message payload."))
			continue
		}

		if !attached {
			if msg.Type != room.MsgClientAck {
				_ = sess.Send(room.ErrorFrame("Handshake required before sending messages."))
				continue
			}
			ack, err := decodeAck(msg.Payload)
			if err != nil || ack.Protocol != room.ProtocolVersion {
				_ = sess.Send(room.ErrorFrame("Unsupported protocol version."))
				continue
			}
			_ = sess.Send(room.ServerMessage{
				Type: room.MsgServerAck,
				Payload: map[string]any{
					"protocol":   room.ProtocolVersion,
					"roomId":     roomID,
					"memberId":   memberID,
					"receivedAt": time.Now().UnixMilli(),
				},
			})
			r = h.store.Attach(roomID, memberID, name, sess)
			attached = true
			_ = conn.SetReadDeadline(time.Time{})
			continue
		}

		if err := h.store.Apply(r, name, msg); err != nil {
			_ = sess.Send(room.ErrorFrame(err.Error()))
		}
	}
}

func decodeAck(raw json.RawMessage) (room.AckPayload, error) {
	var p room.AckPayload
	if len(raw) == 0 {
		return p, errors.New("empty ack payload")
	}
	err := json.Unmarshal(raw, &p)
	return p, err
}
