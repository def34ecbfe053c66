// Package testsupport builds isolated configurations for command tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sematube/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig returns a config whose directories live under a fresh temp dir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithTranslationURL points the translation client at url.
func WithTranslationURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Translation.BaseURL = url
	}
}

// WithStubbedBinaries writes executables that exit 0 for the provided
// names and points the config at them. With no names, ffmpeg, ffprobe,
// yt-dlp and whisper are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "yt-dlp", "whisper"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			switch name {
			case "ffmpeg":
				b.cfg.Media.FFmpegBinary = target
			case "ffprobe":
				b.cfg.Media.FFprobeBinary = target
			case "yt-dlp":
				b.cfg.Media.YTDLPBinary = target
			case "whisper":
				b.cfg.Transcription.WhisperBinary = target
			}
		}
	}
}

// BaseDir returns the temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}

// WriteConfig serializes the fields a command test relies on to path.
func WriteConfig(t testing.TB, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	content := "[paths]\n" +
		"work_dir = " + quote(cfg.Paths.WorkDir) + "\n" +
		"output_dir = " + quote(cfg.Paths.OutputDir) + "\n" +
		"log_dir = " + quote(cfg.Paths.LogDir) + "\n\n" +
		"[transcription]\n" +
		"whisper_binary = " + quote(cfg.Transcription.WhisperBinary) + "\n\n" +
		"[translation]\n" +
		"base_url = " + quote(cfg.Translation.BaseURL) + "\n\n" +
		"[media]\n" +
		"ffmpeg_binary = " + quote(cfg.Media.FFmpegBinary) + "\n" +
		"ffprobe_binary = " + quote(cfg.Media.FFprobeBinary) + "\n" +
		"ytdlp_binary = " + quote(cfg.Media.YTDLPBinary) + "\n\n" +
		"[server]\n" +
		"bind = " + quote(cfg.Server.Bind) + "\n\n" +
		"[logging]\n" +
		"level = \"error\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func quote(value string) string {
	return "'" + value + "'"
}
