package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

// Capture optionally persists raw audio chunks to disk for debugging a
// provider. Disabled captures are no-ops so call sites stay unconditional.
type Capture struct {
	log     *logger.Logger
	enabled bool
	dir     string
}

func NewCapture(log *logger.Logger, cfg config.CaptureChunksConfig) *Capture {
	return &Capture{
		log:     log.With("service", "ChunkCapture"),
		enabled: cfg.Enabled,
		dir:     cfg.Directory,
	}
}

// Save writes one chunk to a timestamped file and returns its path. Failures
// are logged, never propagated: capture must not break transcription.
func (c *Capture) Save(roomID string, audio []byte, mimeType string) string {
	if c == nil || !c.enabled || len(audio) == 0 {
		return ""
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		c.log.Warn("capture dir", "dir", c.dir, "error", err)
		return ""
	}
	name := fmt.Sprintf("%s_%s%s", roomID, time.Now().UTC().Format("20060102T150405.000"), extForMime(mimeType))
	path := filepath.Join(c.dir, name)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Warn("capture write", "path", path, "error", err)
		return ""
	}
	return path
}
