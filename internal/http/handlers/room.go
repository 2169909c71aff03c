package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/http/response"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
)

type RoomHandler struct {
	log   *logger.Logger
	store *room.Store
}

func NewRoomHandler(log *logger.Logger, store *room.Store) *RoomHandler {
	return &RoomHandler{log: log.With("service", "RoomHandler"), store: store}
}

// CreateRoom mints a fresh room code and materializes the room so the first
// websocket join sees it populated.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	r := h.store.GetOrCreate(room.NewRoomID())
	h.log.Info("room created via api", "room_id", r.ID)
	response.RespondOK(c, gin.H{"roomId": r.ID, "room": r.Snapshot()})
}

// GetRoom returns the room snapshot, creating the room when the code has not
// been seen yet. Joining by shared link must work before anyone connects.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	id := room.NormalizeRoomID(c.Param("id"))
	if id == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", errors.New("room id required"))
		return
	}
	r := h.store.GetOrCreate(id)
	response.RespondOK(c, gin.H{"room": r.Snapshot()})
}
