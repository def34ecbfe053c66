package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Whisper CLI defaults.
const (
	DefaultWhisperBinary = "whisper"
	whisperBestOf        = "5"
	whisperOutputFormat  = "json"
)

// waitDelay bounds cancellation when the whisper process leaves children
// holding its output open.
var waitDelay = 5 * time.Second

// WhisperConfig captures runtime settings for the whisper CLI engine.
type WhisperConfig struct {
	Binary string
	// Device is passed through as --device when set ("cpu" or "cuda").
	Device string
	// Language pins the spoken language; empty lets whisper detect it.
	Language string
	// TempDir is where per-invocation output directories are created.
	TempDir string
}

// WhisperCLI runs the openai-whisper command line tool for one model size.
type WhisperCLI struct {
	cfg           WhisperConfig
	model         string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperCLI creates an engine bound to model.
func NewWhisperCLI(cfg WhisperConfig, model string) *WhisperCLI {
	if cfg.Binary == "" {
		cfg.Binary = DefaultWhisperBinary
	}
	return &WhisperCLI{cfg: cfg, model: model}
}

// WhisperLoader returns a Loader producing WhisperCLI engines. The optional
// runner replaces process execution in tests.
func WhisperLoader(cfg WhisperConfig, runner func(ctx context.Context, name string, args ...string) error) Loader {
	return func(_ context.Context, size string) (Engine, error) {
		engine := NewWhisperCLI(cfg, size)
		if runner != nil {
			engine.WithCommandRunner(runner)
		}
		return engine, nil
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperCLI) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Model returns the model size this engine runs.
func (w *WhisperCLI) Model() string {
	return w.model
}

// Transcribe runs whisper on audioPath and parses its JSON output.
func (w *WhisperCLI) Transcribe(ctx context.Context, audioPath string, mode Mode) (RawOutput, error) {
	var out RawOutput
	if audioPath == "" {
		return out, fmt.Errorf("whisper: audio path required")
	}
	outputDir, err := os.MkdirTemp(w.cfg.TempDir, "whisper-")
	if err != nil {
		return out, fmt.Errorf("whisper: create output dir: %w", err)
	}
	defer os.RemoveAll(outputDir)

	if err := w.run(ctx, w.cfg.Binary, w.buildArgs(audioPath, outputDir, mode)...); err != nil {
		return out, fmt.Errorf("whisper: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	data, err := os.ReadFile(filepath.Join(outputDir, baseName+".json"))
	if err != nil {
		return out, fmt.Errorf("whisper: read output: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("whisper: parse output: %w", err)
	}
	return out, nil
}

func (w *WhisperCLI) buildArgs(audioPath, outputDir string, mode Mode) []string {
	args := []string{
		audioPath,
		"--model", w.model,
		"--task", mode.String(),
		"--best_of", whisperBestOf,
		"--output_format", whisperOutputFormat,
		"--output_dir", outputDir,
		"--word_timestamps", "True",
		"--verbose", "False",
	}
	switch w.cfg.Device {
	case "":
	case "cuda":
		args = append(args, "--device", "cuda")
	default:
		args = append(args, "--device", w.cfg.Device, "--fp16", "False")
	}
	if lang := strings.TrimSpace(w.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

func (w *WhisperCLI) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
