package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"sematube/internal/logging"
)

// Binary defaults.
const (
	DefaultFFmpegBinary  = "ffmpeg"
	DefaultFFprobeBinary = "ffprobe"
)

// CommandRunner executes name with args and returns its standard output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Config selects binaries and limits.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	MuxTimeout    time.Duration
}

// Tool runs ffmpeg and ffprobe.
type Tool struct {
	cfg           Config
	commandRunner CommandRunner
	logger        *slog.Logger
}

// New creates a Tool.
func New(cfg Config, logger *slog.Logger) *Tool {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = DefaultFFmpegBinary
	}
	if strings.TrimSpace(cfg.FFprobeBinary) == "" {
		cfg.FFprobeBinary = DefaultFFprobeBinary
	}
	return &Tool{cfg: cfg, logger: logging.NewComponentLogger(logger, "media")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (t *Tool) WithCommandRunner(runner CommandRunner) {
	t.commandRunner = runner
}

// FFmpegBinary returns the configured ffmpeg executable.
func (t *Tool) FFmpegBinary() string { return t.cfg.FFmpegBinary }

// FFprobeBinary returns the configured ffprobe executable.
func (t *Tool) FFprobeBinary() string { return t.cfg.FFprobeBinary }

func (t *Tool) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if t.commandRunner != nil {
		return t.commandRunner(ctx, name, args...)
	}
	return ExecRunner(ctx, name, args...)
}

// waitDelay bounds how long a canceled command may hold its output pipes
// open through surviving child processes.
var waitDelay = 5 * time.Second

// ExecRunner runs the command and returns stdout. Stderr is folded into the
// error when the command fails.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
