package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/http/response"
	"github.com/yungbote/senseboard-backend/internal/personalization"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
)

type PersonalizationHandler struct {
	log      *logger.Logger
	profiles personalization.Store
}

func NewPersonalizationHandler(log *logger.Logger, profiles personalization.Store) *PersonalizationHandler {
	return &PersonalizationHandler{
		log:      log.With("service", "PersonalizationHandler"),
		profiles: profiles,
	}
}

// GetContext returns the stored profile for a member name. Unknown names get
// an empty profile rather than a 404 so the frontend can render the editor
// unconditionally.
func (h *PersonalizationHandler) GetContext(c *gin.Context) {
	nameKey := room.NormalizeMemberName(c.Query("name"))
	if nameKey == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_name", errors.New("name required"))
		return
	}
	p, err := h.profiles.Get(c.Request.Context(), nameKey)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "profile_lookup_failed", err)
		return
	}
	if p == nil {
		p = &personalization.Profile{NameKey: nameKey, ContextLines: []string{}}
	}
	response.RespondOK(c, p)
}

type appendContextRequest struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName,omitempty"`
	Lines       []string `json:"lines"`
}

// AppendContext merges new context lines into the member's profile.
func (h *PersonalizationHandler) AppendContext(c *gin.Context) {
	var req appendContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	nameKey := room.NormalizeMemberName(req.Name)
	if nameKey == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_name", errors.New("name required"))
		return
	}
	p, err := h.profiles.Append(c.Request.Context(), nameKey, req.DisplayName, req.Lines)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "profile_update_failed", err)
		return
	}
	h.log.Info("profile updated", "name_key", nameKey, "lines", len(p.ContextLines))
	response.RespondOK(c, p)
}
