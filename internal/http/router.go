package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/senseboard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/senseboard-backend/internal/http/middleware"
	"github.com/yungbote/senseboard-backend/internal/ws"
)

type RouterConfig struct {
	HealthHandler          *httpH.HealthHandler
	RoomHandler            *httpH.RoomHandler
	AIHandler              *httpH.AIHandler
	TranscribeHandler      *httpH.TranscribeHandler
	PersonalizationHandler *httpH.PersonalizationHandler
	WSHandler              *ws.Handler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	// AI preflight
	if cfg.AIHandler != nil {
		r.GET("/ai/preflight", cfg.AIHandler.Preflight)
	}

	// Rooms
	if cfg.RoomHandler != nil {
		r.POST("/rooms", cfg.RoomHandler.CreateRoom)
		r.GET("/rooms/:id", cfg.RoomHandler.GetRoom)
	}

	// Patch pipeline
	if cfg.AIHandler != nil {
		r.POST("/rooms/:id/ai-patch", cfg.AIHandler.PatchRoom)
		r.GET("/rooms/:id/personal-board", cfg.AIHandler.GetPersonalBoard)
		r.POST("/rooms/:id/personal-board/ai-patch", cfg.AIHandler.PatchPersonalBoard)
	}

	// Transcription
	if cfg.TranscribeHandler != nil {
		r.POST("/rooms/:id/transcribe", cfg.TranscribeHandler.TranscribeChunk)
	}

	// Personalization
	if cfg.PersonalizationHandler != nil {
		r.GET("/personalization/context", cfg.PersonalizationHandler.GetContext)
		r.POST("/personalization/context", cfg.PersonalizationHandler.AppendContext)
	}

	// Realtime
	if cfg.WSHandler != nil {
		r.GET("/ws", cfg.WSHandler.Serve)
	}

	return r
}
