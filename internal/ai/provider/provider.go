// Package provider implements the diagram model backends. Every provider
// satisfies the ai.Provider interface: it takes a system/user prompt pair and
// returns the raw model reply for the engine to parse.
package provider

import (
	"errors"
	"os/exec"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

// ErrUnavailable marks a provider that cannot run in this environment, for
// example a missing API key or CLI binary.
var ErrUnavailable = errors.New("provider unavailable")

// Resolve picks the provider named by the config. "auto" walks the chain
// anthropic, openai, codex_cli, deterministic and settles on the first one
// whose credentials or binary are present, so a bare environment still gets a
// working board.
func Resolve(log *logger.Logger, cfg config.AIConfig) (ai.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "deterministic":
		return NewDeterministic(), nil
	case "openai":
		return NewOpenAI(log, cfg)
	case "anthropic":
		return NewAnthropic(log, cfg)
	case "codex_cli":
		return NewCodexCLI(log, cfg)
	case "auto", "":
		if cfg.AnthropicAPIKey != "" {
			return NewAnthropic(log, cfg)
		}
		if cfg.OpenAIAPIKey != "" {
			return NewOpenAI(log, cfg)
		}
		if _, err := exec.LookPath(codexBinary); err == nil {
			return NewCodexCLI(log, cfg)
		}
		log.Info("no model credentials found, using deterministic provider")
		return NewDeterministic(), nil
	default:
		return nil, errors.New("unknown ai provider " + cfg.Provider)
	}
}
