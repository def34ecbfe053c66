package transcription

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"sematube/internal/captions"
	"sematube/internal/config"
	"sematube/internal/language"
	"sematube/internal/logging"
	"sematube/internal/services"
)

// Transcript is normalized engine output.
type Transcript struct {
	Text     string
	Segments []captions.Segment
	Language language.Speech
}

// Adapter resolves engines through a ModelCache and normalizes their output.
type Adapter struct {
	models *ModelCache
	logger *slog.Logger
}

// NewAdapter wraps models.
func NewAdapter(models *ModelCache, logger *slog.Logger) *Adapter {
	return &Adapter{models: models, logger: logging.NewComponentLogger(logger, "transcription")}
}

// Transcribe runs the engine for size over audioPath. Engine failures wrap
// ErrTranscriptionFailed; a detected language missing from the speech table
// yields ErrUnsupportedLanguage. Nothing is retried.
func (a *Adapter) Transcribe(ctx context.Context, audioPath, size string, mode Mode) (Transcript, error) {
	size = strings.ToLower(strings.TrimSpace(size))
	if !config.ValidModelSize(size) {
		return Transcript{}, services.Wrap(services.ErrInvalidArgument, "transcription", "validate model", fmt.Sprintf("unknown model size %q", size), nil)
	}
	logger := logging.WithContext(ctx, a.logger)

	engine, err := a.models.Get(ctx, size)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscriptionFailed, "transcription", "load model", size, err)
	}

	started := time.Now()
	raw, err := engine.Transcribe(ctx, audioPath, mode)
	if err != nil {
		return Transcript{}, services.Wrap(services.ErrTranscriptionFailed, "transcription", mode.String(), audioPath, err)
	}

	lang, ok := language.LookupSpeech(raw.Language)
	if !ok {
		return Transcript{}, services.Wrap(services.ErrUnsupportedLanguage, "transcription", "resolve language", fmt.Sprintf("engine reported %q", raw.Language), nil)
	}

	transcript := Normalize(raw)
	transcript.Language = lang
	logger.Info("transcription complete",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.String("model_size", size),
		logging.String("mode", mode.String()),
		logging.String("language", lang.Code),
		logging.Int("segments", len(transcript.Segments)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return transcript, nil
}

// Normalize trims and orders raw segments. Empty segments are dropped, an end
// before its start is raised to the start, and word spans are clamped into
// their segment. Language is left for the caller to resolve.
func Normalize(raw RawOutput) Transcript {
	segments := make([]captions.Segment, 0, len(raw.Segments))
	for _, rs := range raw.Segments {
		text := strings.Join(strings.Fields(rs.Text), " ")
		if text == "" {
			continue
		}
		seg := captions.Segment{Start: max(rs.Start, 0), End: rs.End, Text: text}
		if seg.End < seg.Start {
			seg.End = seg.Start
		}
		for _, w := range rs.Words {
			word := strings.TrimSpace(w.Word)
			if word == "" {
				continue
			}
			start := clampTo(w.Start, seg.Start, seg.End)
			end := clampTo(w.End, start, seg.End)
			seg.Words = append(seg.Words, captions.Word{Text: word, Start: start, End: end})
		}
		segments = append(segments, seg)
	}
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })

	text := strings.TrimSpace(raw.Text)
	if text == "" {
		parts := make([]string, len(segments))
		for i, s := range segments {
			parts[i] = s.Text
		}
		text = strings.Join(parts, " ")
	}
	return Transcript{Text: text, Segments: segments}
}

func clampTo(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
