package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sematube/internal/logging"
	"sematube/internal/services"
)

// MuxRequest names the inputs and destination of a caption burn-in.
type MuxRequest struct {
	VideoPath   string
	AudioPath   string
	CaptionPath string
	OutputPath  string
}

// Mux renders CaptionPath onto the video stream of VideoPath, pairs it with
// the audio of AudioPath and writes OutputPath. On failure the returned path
// is VideoPath so callers can still offer the uncaptioned media.
func (t *Tool) Mux(ctx context.Context, req MuxRequest) (string, error) {
	if err := checkReadable(req.VideoPath, "video"); err != nil {
		return req.VideoPath, err
	}
	if err := checkReadable(req.AudioPath, "audio"); err != nil {
		return req.VideoPath, err
	}
	if err := checkReadable(req.CaptionPath, "captions"); err != nil {
		return req.VideoPath, err
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return req.VideoPath, services.Wrap(services.ErrMuxFailed, "media", "mux", "output path required", nil)
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return req.VideoPath, services.Wrap(services.ErrMuxFailed, "media", "mux", "create output directory", err)
	}

	if t.cfg.MuxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.MuxTimeout)
		defer cancel()
	}

	partial := partialPath(req.OutputPath)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", req.VideoPath,
		"-i", req.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-vf", "subtitles=" + escapeFilterPath(req.CaptionPath),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "aac",
		"-shortest",
		partial,
	}
	t.logger.Debug("muxing captions",
		logging.String("video", req.VideoPath),
		logging.String("captions", req.CaptionPath),
		logging.String("output", req.OutputPath),
	)
	if _, err := t.run(ctx, t.cfg.FFmpegBinary, args...); err != nil {
		_ = os.Remove(partial)
		return req.VideoPath, services.Wrap(services.ErrMuxFailed, "media", "mux", "ffmpeg burn-in", err)
	}
	if err := os.Rename(partial, req.OutputPath); err != nil {
		_ = os.Remove(partial)
		return req.VideoPath, services.Wrap(services.ErrMuxFailed, "media", "mux", "finalize output", err)
	}
	return req.OutputPath, nil
}

func checkReadable(path, what string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrMuxFailed, "media", "mux", what+" path required", nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrMuxFailed, "media", "mux", fmt.Sprintf("open %s", what), err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return services.Wrap(services.ErrMuxFailed, "media", "mux", fmt.Sprintf("stat %s", what), err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrMuxFailed, "media", "mux", fmt.Sprintf("%s is a directory", path), nil)
	}
	return nil
}

// escapeFilterPath escapes a filename for use as a filter option value
// inside an ffmpeg filtergraph. Two levels apply: the option value, then the
// graph itself.
func escapeFilterPath(path string) string {
	value := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`).Replace(path)
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`).Replace(value)
}
