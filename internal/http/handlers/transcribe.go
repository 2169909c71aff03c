package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/http/response"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
	"github.com/yungbote/senseboard-backend/internal/room"
	"github.com/yungbote/senseboard-backend/internal/transcribe"
)

type TranscribeHandler struct {
	log      *logger.Logger
	store    *room.Store
	provider transcribe.Provider
	capture  *transcribe.Capture
}

func NewTranscribeHandler(log *logger.Logger, store *room.Store, provider transcribe.Provider, capture *transcribe.Capture) *TranscribeHandler {
	return &TranscribeHandler{
		log:      log.With("service", "TranscribeHandler"),
		store:    store,
		provider: provider,
		capture:  capture,
	}
}

// TranscribeChunk accepts one multipart audio chunk, runs it through the
// transcription provider and appends the text to the room transcript. The
// append fires the scheduler's debounced tick on its own.
func (h *TranscribeHandler) TranscribeChunk(c *gin.Context) {
	id := room.NormalizeRoomID(c.Param("id"))
	if id == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_room_id", errors.New("room id required"))
		return
	}

	speaker := strings.TrimSpace(c.PostForm("speaker"))
	if speaker == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_name", errors.New("speaker required"))
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_audio", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_audio", err)
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unreadable_audio", err)
		return
	}

	// Sub-threshold chunks are silence or connection churn; skipping them
	// keeps the provider bill and the transcript clean. Not an error: the
	// client streams chunks continuously and just moves on.
	if len(audio) < transcribe.MinAudioBytes {
		response.RespondOK(c, gin.H{
			"ok":       true,
			"accepted": false,
			"reason":   "audio_too_small",
		})
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if captured := h.capture.Save(id, audio, mimeType); captured != "" {
		h.log.Debug("captured audio chunk", "room_id", id, "path", captured)
	}

	res, err := h.provider.Transcribe(c.Request.Context(), audio, mimeType)
	if err != nil {
		h.log.Warn("transcription failed", "room_id", id, "provider", h.provider.Name(), "error", err)
		response.RespondError(c, http.StatusBadGateway, "transcription_failed", err)
		return
	}

	r := h.store.GetOrCreate(id)
	accepted := h.store.AppendTranscript(r, speaker, res.Text)

	out := gin.H{
		"ok":         true,
		"text":       res.Text,
		"confidence": res.Confidence,
		"provider":   res.Provider,
		"accepted":   accepted,
	}
	if !accepted {
		out["reason"] = "empty_transcript"
	}
	response.RespondOK(c, out)
}
