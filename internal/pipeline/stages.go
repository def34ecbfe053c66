package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sematube/internal/acquire"
	"sematube/internal/captions"
	"sematube/internal/language"
	"sematube/internal/logging"
	"sematube/internal/services"
)

// Artifact names inside a run directory.
const (
	vttName  = "captions.vtt"
	srtName  = "captions.srt"
	textName = "transcript.txt"
)

func runFile(dir, name string) string { return filepath.Join(dir, name) }

// transcribe returns the transcript for key, computing it at most once per
// transcript identity.
func (o *Orchestrator) transcribe(ctx context.Context, key CacheKey, req Request, artifacts acquire.Artifacts) (transcriptOutcome, error) {
	if key.Task == TaskBurn {
		return loadSuppliedCaptions(req.Source.CaptionPath)
	}
	out, reused, err := o.transcripts.Do(ctx, key.transcript(), func(ctx context.Context) (transcriptOutcome, error) {
		return o.recognize(ctx, key, artifacts)
	})
	if err != nil {
		return transcriptOutcome{}, err
	}
	if reused {
		o.metrics.transcriptReuse.Inc()
		logging.Decision(logging.WithContext(ctx, o.logger), "transcript reused",
			"transcript_reuse", "reused", "same input, task, model and source language")
	}
	return out, nil
}

func (o *Orchestrator) recognize(ctx context.Context, key CacheKey, artifacts acquire.Artifacts) (transcriptOutcome, error) {
	if o.opts.Transcriber == nil {
		return transcriptOutcome{}, services.Wrap(services.ErrTranscriptionFailed, "transcribe", "select engine", "no speech engine configured", nil)
	}
	if artifacts.PCMPath == "" {
		return transcriptOutcome{}, services.Wrap(services.ErrAcquisitionFailed, "transcribe", "locate audio", "acquisition produced no speech audio", nil)
	}
	transcript, err := o.opts.Transcriber.Transcribe(ctx, artifacts.PCMPath, key.ModelSize, key.Task.mode())
	if err != nil {
		return transcriptOutcome{}, err
	}
	out := transcriptOutcome{
		Text:             transcript.Text,
		Segments:         transcript.Segments,
		DetectedLanguage: transcript.Language.Code,
	}
	if key.Task != TaskSema {
		return out, nil
	}
	if o.opts.Translator == nil {
		return transcriptOutcome{}, services.Wrap(services.ErrTranslationFailed, "transcribe", "translate", "no translation service configured", nil)
	}

	source, reason := key.SourceLanguage, "requested"
	if source == "" {
		// Map the detected speech language to the translation code space by
		// name; unknown names fall back to service-side detection.
		if lang, ok := language.LookupTranslation(transcript.Language.Name); ok {
			source, reason = lang.Code, "mapped from detected speech language "+transcript.Language.Code
		} else {
			reason = "no translation code for detected speech language " + transcript.Language.Code
		}
	}
	result := source
	if result == "" {
		result = "detect"
	}
	logging.Decision(logging.WithContext(ctx, o.logger), "translation source selected",
		"translation_source", result, reason, logging.String("target_language", key.Target))
	translated, from, err := o.opts.Translator.TranslateSegments(ctx, transcript.Segments, key.Target, source)
	if err != nil {
		return transcriptOutcome{}, err
	}
	out.Segments = translated
	out.Text = joinText(translated)
	out.TranslatedFrom = from
	return out, nil
}

func loadSuppliedCaptions(path string) (transcriptOutcome, error) {
	segments, err := captions.ParseFile(path)
	if err != nil {
		return transcriptOutcome{}, err
	}
	if len(segments) == 0 {
		return transcriptOutcome{}, services.Wrap(services.ErrInvalidArgument, "transcribe", "load captions",
			fmt.Sprintf("%s contains no cues", filepath.Base(path)), nil)
	}
	return transcriptOutcome{Text: joinText(segments), Segments: segments}, nil
}

// caption renders both caption formats and writes the run's text artifacts.
func (o *Orchestrator) caption(_ context.Context, r *run, transcript transcriptOutcome, result *Result) error {
	cues, err := captions.WrapWithOptions(transcript.Segments, captions.Options{
		MaxLineWidth: r.key.MaxLineWidth,
		MaxLines:     r.key.MaxLines,
	})
	if err != nil {
		return err
	}
	result.CaptionVTT = captions.RenderVTT(cues)
	result.CaptionSRT = captions.RenderSRT(cues)

	if err := os.RemoveAll(r.dir); err != nil {
		return fmt.Errorf("reset run directory: %w", err)
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}
	files := []struct {
		path *string
		name string
		body string
	}{
		{&result.VTTPath, vttName, result.CaptionVTT},
		{&result.SRTPath, srtName, result.CaptionSRT},
		{&result.TextPath, textName, result.RawText + "\n"},
	}
	for _, f := range files {
		path := runFile(r.dir, f.name)
		if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
		*f.path = path
	}
	return nil
}

func joinText(segments []captions.Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
