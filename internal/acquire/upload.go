package acquire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sematube/internal/fileutil"
	"sematube/internal/logging"
	"sematube/internal/media"
	"sematube/internal/services"
)

// UploadStrategy persists caller-supplied files under a content-addressed
// directory.
type UploadStrategy struct {
	media  *media.Tool
	pcm    pcmExtractor
	logger *slog.Logger
}

// NewUploadStrategy constructs an UploadStrategy.
func NewUploadStrategy(tool *media.Tool, logger *slog.Logger) *UploadStrategy {
	return &UploadStrategy{media: tool, pcm: newPCMExtractor(tool), logger: logging.NewComponentLogger(logger, "acquire.upload")}
}

func contentID(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", services.Wrap(services.ErrInvalidArgument, "fetch", "hash upload", "upload path required", nil)
	}
	h := sha256.New()
	if err := hashFile(h, path); err != nil {
		return "", services.Wrap(services.ErrAcquisitionFailed, "fetch", "hash upload", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Identity hashes the uploaded content, plus caption content when supplied.
func (s *UploadStrategy) Identity(_ context.Context, src Source) (string, error) {
	id, err := contentID(src.UploadPath)
	if err != nil {
		return "", err
	}
	combined, err := identity(id, src.CaptionPath)
	if err != nil {
		return "", services.Wrap(services.ErrAcquisitionFailed, "fetch", "hash captions", src.CaptionPath, err)
	}
	return combined, nil
}

// Acquire copies the upload to <dir>/<id>/input<ext> (skipped when present),
// probes it, and extracts PCM unless captions were supplied.
func (s *UploadStrategy) Acquire(ctx context.Context, src Source, dir string) (Artifacts, error) {
	id, err := contentID(src.UploadPath)
	if err != nil {
		return Artifacts{}, err
	}
	target := storageDir(dir, id)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return Artifacts{}, services.Wrap(services.ErrAcquisitionFailed, "fetch", "create upload directory", target, err)
	}

	name := src.Name
	if strings.TrimSpace(name) == "" {
		name = src.UploadPath
	}
	input := filepath.Join(target, "input"+strings.ToLower(filepath.Ext(name)))
	if !nonEmptyFile(input) {
		if _, err := fileutil.CopyVerified(src.UploadPath, input); err != nil {
			return Artifacts{}, services.Wrap(services.ErrAcquisitionFailed, "fetch", "persist upload", input, err)
		}
		s.logger.Debug("upload persisted", logging.String("path", input))
	}

	info, err := s.media.Probe(ctx, input)
	if err != nil {
		return Artifacts{}, err
	}
	if !info.HasAudio {
		return Artifacts{}, services.Wrap(services.ErrAcquisitionFailed, "fetch", "probe upload", fmt.Sprintf("%s has no audio stream", filepath.Base(name)), nil)
	}

	artifacts := Artifacts{
		MediaPath: input,
		AudioPath: input,
		Title:     uploadTitle(src),
		HasVideo:  info.HasVideo,
	}
	if strings.TrimSpace(src.CaptionPath) == "" {
		pcm, err := s.pcm.ensure(ctx, input, filepath.Join(target, pcmFile))
		if err != nil {
			return Artifacts{}, err
		}
		artifacts.PCMPath = pcm
	}
	return artifacts, nil
}

func uploadTitle(src Source) string {
	if name := strings.TrimSpace(src.Name); name != "" {
		return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	return media.Title(src.UploadPath)
}
