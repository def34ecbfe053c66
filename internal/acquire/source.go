// Package acquire turns a caller-supplied source (a link or an uploaded
// file) into local working artifacts: the playable media, the audio track to
// pair with captions, and mono 16 kHz PCM for the speech engine.
//
// Each source kind has a Strategy. Strategies derive a stable identity from
// the source so identical inputs share downloads, extracted audio, and
// pipeline cache entries for the lifetime of the process.
package acquire

import (
	"context"
	"path/filepath"
	"strings"

	"sematube/internal/services"
)

// Kind classifies a source.
type Kind string

// Source kinds.
const (
	KindLink  Kind = "link"
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

var audioExtensions = map[string]struct{}{
	".aac": {}, ".aiff": {}, ".flac": {}, ".m4a": {}, ".mp3": {},
	".oga": {}, ".ogg": {}, ".opus": {}, ".wav": {}, ".wma": {},
}

// Source names the input of a pipeline run. Exactly one of Link or
// UploadPath is set. CaptionPath, when set, supplies ready-made captions and
// no speech input is prepared.
type Source struct {
	Link        string
	UploadPath  string
	CaptionPath string
	Name        string
}

// Kind reports the source kind. Upload kinds are derived from the file
// extension; unknown extensions are treated as video and probed later.
func (s Source) Kind() Kind {
	if strings.TrimSpace(s.Link) != "" {
		return KindLink
	}
	name := s.Name
	if strings.TrimSpace(name) == "" {
		name = s.UploadPath
	}
	if _, ok := audioExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return KindAudio
	}
	return KindVideo
}

// Validate checks that the source names exactly one input.
func (s Source) Validate() error {
	link := strings.TrimSpace(s.Link)
	upload := strings.TrimSpace(s.UploadPath)
	switch {
	case link == "" && upload == "":
		return services.Wrap(services.ErrInvalidArgument, "fetch", "validate source", "a link or an uploaded file is required", nil)
	case link != "" && upload != "":
		return services.Wrap(services.ErrInvalidArgument, "fetch", "validate source", "link and upload are mutually exclusive", nil)
	}
	return nil
}

// Artifacts are the local files produced by acquisition.
type Artifacts struct {
	// MediaPath is the playable input (video, or audio for audio-only sources).
	MediaPath string
	// AudioPath is the audio track paired with burned-in captions.
	AudioPath string
	// PCMPath is mono 16 kHz PCM for the speech engine. Empty when the source
	// supplied its own captions.
	PCMPath  string
	Title    string
	HasVideo bool
}

// Strategy acquires one kind of source.
type Strategy interface {
	// Identity returns a stable content identity for src.
	Identity(ctx context.Context, src Source) (string, error)
	// Acquire materializes src under dir.
	Acquire(ctx context.Context, src Source, dir string) (Artifacts, error)
}
