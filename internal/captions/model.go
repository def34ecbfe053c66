package captions

import (
	"fmt"
	"path/filepath"
	"strings"

	"sematube/internal/services"
)

const (
	// DefaultMaxLineWidth is the line width used when callers do not choose one.
	DefaultMaxLineWidth = 80
	// DefaultMaxLines caps lines per cue; overflow moves into continuation cues.
	DefaultMaxLines = 2
)

// Word is a timed sub-span of a segment.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is one block of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Cue is a renderable caption unit.
type Cue struct {
	Start float64  `json:"start"`
	End   float64  `json:"end"`
	Lines []string `json:"lines"`
}

// Text joins the cue lines with single spaces.
func (c Cue) Text() string {
	return strings.Join(c.Lines, " ")
}

// Options controls cue layout.
type Options struct {
	MaxLineWidth int
	// MaxLines caps lines per cue. Zero or negative means one cue per segment.
	MaxLines int
}

// Format names a caption serialization.
type Format string

const (
	VTT Format = "vtt"
	SRT Format = "srt"
)

// ParseFormat accepts "vtt", "webvtt", "srt", or "subrip" in any case.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(value, "."))) {
	case "vtt", "webvtt":
		return VTT, nil
	case "srt", "subrip":
		return SRT, nil
	default:
		return "", services.Wrap(services.ErrInvalidArgument, "captions", "parse format", fmt.Sprintf("unknown caption format %q", value), nil)
	}
}

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// DetectFormat infers the caption format from a file extension.
func DetectFormat(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", services.Wrap(services.ErrInvalidArgument, "captions", "detect format", fmt.Sprintf("%s has no extension", path), nil)
	}
	return ParseFormat(ext)
}
