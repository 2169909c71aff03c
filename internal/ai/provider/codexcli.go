package provider

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/pkg/envutil"
	"github.com/yungbote/senseboard-backend/internal/pkg/logger"
)

const codexBinary = "codex"

// CodexCLI shells out to a locally installed codex binary. The prompt goes in
// over stdin and the reply comes back on stdout, so no API key has to reach
// this process.
type CodexCLI struct {
	log     *logger.Logger
	bin     string
	model   string
	timeout time.Duration
}

func NewCodexCLI(log *logger.Logger, cfg config.AIConfig) (*CodexCLI, error) {
	bin := envutil.String("CODEX_BIN", codexBinary)
	return &CodexCLI{
		log:     log.With("service", "CodexCLIProvider"),
		bin:     bin,
		model:   strings.TrimSpace(cfg.CodexModel),
		timeout: time.Duration(envutil.Int("CODEX_TIMEOUT_SECONDS", 180)) * time.Second,
	}, nil
}

func (c *CodexCLI) Name() string { return "codex_cli" }

func (c *CodexCLI) Preflight(ctx context.Context) error {
	if _, err := exec.LookPath(c.bin); err != nil {
		return fmt.Errorf("%w: %s not on PATH", ErrUnavailable, c.bin)
	}
	return nil
}

func (c *CodexCLI) Generate(ctx context.Context, system, user string) (string, error) {
	if err := c.Preflight(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := []string{"exec", "--skip-git-repo-check", "-"}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdin = strings.NewReader(system + "\n\n" + user)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("codex exec: %s", msg)
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("codex exec produced no output")
	}
	return out, nil
}
