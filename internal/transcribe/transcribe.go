// Package transcribe turns captured audio chunks into text. Providers are
// interchangeable behind one interface; the room store applies its own
// signal filter to whatever comes back.
package transcribe

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

// MinAudioBytes is the smallest chunk worth sending to a provider. Tiny
// uploads are silence or clipped starts and only waste a round trip.
const MinAudioBytes = 1024

// ErrAudioTooSmall is returned by handlers for sub-threshold chunks.
var ErrAudioTooSmall = errors.New("audio chunk below minimum size")

type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Provider   string  `json:"provider"`
}

type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, mimeType string) (Result, error)
	Close() error
}

// Resolve builds the transcription provider named by the config.
func Resolve(log *logger.Logger, cfg config.Config) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transcription.Provider)) {
	case "stub", "":
		return NewStub(), nil
	case "openai":
		return NewOpenAI(log, cfg.AI)
	case "gcp":
		return NewGCP(log)
	default:
		return nil, errors.New("unknown transcription provider " + cfg.Transcription.Provider)
	}
}
