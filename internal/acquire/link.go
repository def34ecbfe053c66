package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sematube/internal/logging"
	"sematube/internal/media"
	"sematube/internal/memo"
	"sematube/internal/services"
)

// DefaultYTDLPBinary is the downloader invoked for links.
const DefaultYTDLPBinary = "yt-dlp"

const (
	progressiveFormat = "best[ext=mp4][acodec!=none][vcodec!=none]"
	audioFormat       = "bestaudio"
	titleFile         = "title.txt"
	videoFile         = "video.mp4"
	audioStem         = "audio"
	pcmFile           = "speech.wav"
)

// LinkConfig configures the link downloader.
type LinkConfig struct {
	Binary  string
	Timeout time.Duration
}

// LinkStrategy downloads linked media with yt-dlp. Downloads are memoized by
// link identity and stored under deterministic paths, so files already on
// disk are reused.
type LinkStrategy struct {
	cfg       LinkConfig
	pcm       pcmExtractor
	run       media.CommandRunner
	downloads *memo.Cache[string, Artifacts]
	logger    *slog.Logger
}

// NewLinkStrategy constructs a LinkStrategy.
func NewLinkStrategy(cfg LinkConfig, tool *media.Tool, logger *slog.Logger) *LinkStrategy {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultYTDLPBinary
	}
	return &LinkStrategy{
		cfg:       cfg,
		pcm:       newPCMExtractor(tool),
		run:       media.ExecRunner,
		downloads: memo.New[string, Artifacts](),
		logger:    logging.NewComponentLogger(logger, "acquire.link"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *LinkStrategy) WithCommandRunner(runner media.CommandRunner) {
	if runner != nil {
		s.run = runner
	}
}

// NormalizeLink canonicalizes a link for identity purposes: lowercased scheme
// and host, no fragment, sorted query parameters.
func NormalizeLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", services.Wrap(services.ErrInvalidArgument, "fetch", "normalize link", "empty link", nil)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", services.Wrap(services.ErrInvalidArgument, "fetch", "normalize link", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", services.Wrap(services.ErrInvalidArgument, "fetch", "normalize link", fmt.Sprintf("%q is not an http(s) link", raw), nil)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.RawQuery = u.Query().Encode()
	return u.String(), nil
}

func linkID(raw string) (string, error) {
	normalized, err := NormalizeLink(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:]), nil
}

// Identity hashes the normalized link, plus caption content when supplied.
func (s *LinkStrategy) Identity(_ context.Context, src Source) (string, error) {
	id, err := linkID(src.Link)
	if err != nil {
		return "", err
	}
	combined, err := identity(id, src.CaptionPath)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisitionFailed, "fetch", "hash captions", src.CaptionPath, err)
	}
	return combined, nil
}

// Acquire downloads the progressive video and best audio of src.Link and
// extracts PCM unless captions were supplied.
func (s *LinkStrategy) Acquire(ctx context.Context, src Source, dir string) (Artifacts, error) {
	id, err := linkID(src.Link)
	if err != nil {
		return Artifacts{}, err
	}
	target := storageDir(dir, id)
	artifacts, cached, err := s.downloads.Do(ctx, id, func(ctx context.Context) (Artifacts, error) {
		return s.download(ctx, src.Link, target)
	})
	if err != nil {
		return Artifacts{}, err
	}
	if cached {
		s.logger.Debug("reusing link download", logging.String("link", src.Link))
	}
	if strings.TrimSpace(src.CaptionPath) == "" {
		pcm, err := s.pcm.ensure(ctx, artifacts.AudioPath, filepath.Join(target, pcmFile))
		if err != nil {
			return Artifacts{}, err
		}
		artifacts.PCMPath = pcm
	}
	if name := strings.TrimSpace(src.Name); name != "" {
		artifacts.Title = name
	}
	return artifacts, nil
}

func (s *LinkStrategy) download(ctx context.Context, link, target string) (Artifacts, error) {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return Artifacts{}, services.Wrap(services.ErrAcquisitionFailed, "fetch", "create download directory", target, err)
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	title, err := s.title(ctx, link, filepath.Join(target, titleFile))
	if err != nil {
		return Artifacts{}, err
	}

	video := filepath.Join(target, videoFile)
	if !nonEmptyFile(video) {
		s.logger.Info("downloading video", logging.String("link", link))
		if _, err := s.fetch(ctx, link, progressiveFormat, target, ".video.partial.%(ext)s", video); err != nil {
			return Artifacts{}, err
		}
	}

	audio := existingAudio(target)
	if audio == "" {
		s.logger.Info("downloading audio", logging.String("link", link))
		fetched, err := s.fetch(ctx, link, audioFormat, target, ".audio.partial.%(ext)s", "")
		if err != nil {
			return Artifacts{}, err
		}
		audio = fetched
	}

	return Artifacts{
		MediaPath: video,
		AudioPath: audio,
		Title:     title,
		HasVideo:  true,
	}, nil
}

func (s *LinkStrategy) title(ctx context.Context, link, cachePath string) (string, error) {
	if data, err := os.ReadFile(cachePath); err == nil {
		if title := strings.TrimSpace(string(data)); title != "" {
			return title, nil
		}
	}
	out, err := s.run(ctx, s.cfg.Binary, "--no-playlist", "--no-warnings", "--skip-download", "--print", "title", link)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisitionFailed, "fetch", "read metadata", link, err)
	}
	title := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if title == "" {
		title = "video"
	}
	if err := os.WriteFile(cachePath, []byte(title+"\n"), 0o644); err != nil {
		s.logger.Warn("title cache write failed",
			logging.String("path", cachePath),
			logging.Error(err),
			logging.String(logging.FieldEventType, "title_cache_write_failed"),
			logging.String(logging.FieldErrorHint, "check work directory permissions"),
			logging.String(logging.FieldImpact, "metadata is fetched again on next run"),
		)
	}
	return title, nil
}

// fetch downloads one format through a hidden partial template and renames
// the result. When dest is empty the final name keeps yt-dlp's extension
// under the audio stem.
func (s *LinkStrategy) fetch(ctx context.Context, link, format, target, template, dest string) (string, error) {
	pattern := filepath.Join(target, strings.Replace(template, "%(ext)s", "*", 1))
	removePartials(pattern)
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"-f", format,
		"-o", filepath.Join(target, template),
		link,
	}
	if _, err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		removePartials(pattern)
		return "", services.Wrap(services.ErrAcquisitionFailed, "fetch", "download "+format, link, err)
	}
	matches, _ := filepath.Glob(pattern)
	if len(matches) == 0 {
		return "", services.Wrap(services.ErrAcquisitionFailed, "fetch", "download "+format, "downloader produced no file", nil)
	}
	partial := matches[0]
	if dest == "" {
		dest = filepath.Join(target, audioStem+filepath.Ext(partial))
	}
	if err := os.Rename(partial, dest); err != nil {
		removePartials(pattern)
		return "", services.Wrap(services.ErrAcquisitionFailed, "fetch", "finalize download", dest, err)
	}
	return dest, nil
}

func removePartials(pattern string) {
	matches, _ := filepath.Glob(pattern)
	for _, m := range matches {
		_ = os.Remove(m)
	}
}

func existingAudio(target string) string {
	matches, _ := filepath.Glob(filepath.Join(target, audioStem+".*"))
	for _, m := range matches {
		if nonEmptyFile(m) {
			return m
		}
	}
	return ""
}

// pcmExtractor produces speech audio once per destination path.
type pcmExtractor struct {
	tool *media.Tool
	done *memo.Cache[string, string]
}

func newPCMExtractor(tool *media.Tool) pcmExtractor {
	return pcmExtractor{tool: tool, done: memo.New[string, string]()}
}

// ensure extracts and validates speech audio unless a valid file exists.
func (p pcmExtractor) ensure(ctx context.Context, src, dest string) (string, error) {
	path, _, err := p.done.Do(ctx, dest, func(ctx context.Context) (string, error) {
		if nonEmptyFile(dest) {
			if _, err := media.ValidatePCM(dest); err == nil {
				return dest, nil
			}
			_ = os.Remove(dest)
		}
		if err := p.tool.ExtractPCM(ctx, src, dest); err != nil {
			return "", err
		}
		if _, err := media.ValidatePCM(dest); err != nil {
			_ = os.Remove(dest)
			return "", err
		}
		return dest, nil
	})
	return path, err
}
