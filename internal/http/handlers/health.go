package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/http/response"
)

type HealthHandler struct {
	instanceID string
	startedAt  time.Time
}

func NewHealthHandler(instanceID string) *HealthHandler {
	return &HealthHandler{instanceID: instanceID, startedAt: time.Now()}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response.RespondOK(c, gin.H{
		"status":            "ok",
		"now":               time.Now(),
		"instanceStartedAt": h.startedAt,
		"instanceId":        h.instanceID,
	})
}
