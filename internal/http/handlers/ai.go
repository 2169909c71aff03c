package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/ai/scheduler"
	"github.com/yungbote/senseboard-backend/internal/board"
	"github.com/yungbote/senseboard-backend/internal/http/response"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
)

type AIHandler struct {
	log   *logger.Logger
	store *room.Store
	sched *scheduler.Scheduler
	eng   *ai.Engine
}

func NewAIHandler(log *logger.Logger, store *room.Store, sched *scheduler.Scheduler, eng *ai.Engine) *AIHandler {
	return &AIHandler{
		log:   log.With("service", "AIHandler"),
		store: store,
		sched: sched,
		eng:   eng,
	}
}

// Preflight reports whether the configured provider is reachable, so the
// frontend can surface a degraded-mode banner before anyone speaks.
func (h *AIHandler) Preflight(c *gin.Context) {
	if err := h.eng.Preflight(c.Request.Context()); err != nil {
		response.RespondError(c, http.StatusServiceUnavailable, "provider_unavailable", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

type patchRequest struct {
	Reason        string `json:"reason,omitempty"`
	Regenerate    bool   `json:"regenerate,omitempty"`
	WindowSeconds int    `json:"windowSeconds,omitempty"`
}

// PatchRoom requests a patch of the shared board and a personalized tick for
// every connected member. Regenerate bypasses the frozen, signal and
// fingerprint gates. Blocks until the main job resolves.
func (h *AIHandler) PatchRoom(c *gin.Context) {
	id := room.NormalizeRoomID(c.Param("id"))
	if id == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", errors.New("room id required"))
		return
	}
	var req patchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	if req.Reason == "" {
		req.Reason = scheduler.TriggerManual
	}
	r := h.store.GetOrCreate(id)
	h.log.Info("patch requested", "room_id", id, "reason", req.Reason, "regenerate", req.Regenerate)

	for _, nameKey := range r.MemberNameKeys() {
		h.sched.TriggerTick(id, nameKey)
	}

	res := h.sched.Enqueue(c.Request.Context(), scheduler.Request{
		RoomID:        id,
		Regenerate:    req.Regenerate,
		Reason:        req.Reason,
		WindowSeconds: req.WindowSeconds,
	})
	response.RespondOK(c, res)
}

type personalBoardView struct {
	Board     *board.State `json:"board"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// GetPersonalBoard returns the member's personal canvas, creating an empty
// one on first access.
func (h *AIHandler) GetPersonalBoard(c *gin.Context) {
	id := room.NormalizeRoomID(c.Param("id"))
	nameKey := room.NormalizeMemberName(c.Query("name"))
	if id == "" || nameKey == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_name", errors.New("room id and name required"))
		return
	}
	r := h.store.GetOrCreate(id)

	var view personalBoardView
	r.WithLock(func() {
		pb := r.PersonalBoardFor(nameKey)
		view.Board = pb.Board.Clone()
		view.UpdatedAt = pb.LastPatchAt
	})
	response.RespondOK(c, view)
}

// PatchPersonalBoard queues a personalized regeneration and returns
// immediately; the result lands on the personal board and the member polls
// or refetches it.
func (h *AIHandler) PatchPersonalBoard(c *gin.Context) {
	id := room.NormalizeRoomID(c.Param("id"))
	nameKey := room.NormalizeMemberName(c.Query("name"))
	if id == "" || nameKey == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_name", errors.New("room id and name required"))
		return
	}
	h.store.GetOrCreate(id)

	go h.sched.Enqueue(context.Background(), scheduler.Request{
		RoomID:     id,
		Personal:   nameKey,
		Regenerate: true,
	})
	response.RespondAccepted(c, scheduler.Result{Applied: false, Reason: scheduler.ReasonQueued})
}
