package transcription

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible audio endpoint.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	// Model names the remote model. A "{size}" placeholder is replaced with
	// the requested model size, e.g. "whisper-{size}" for LocalAI galleries.
	Model    string
	Language string
	Timeout  time.Duration
}

// OpenAI transcribes through /audio/transcriptions and /audio/translations.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
}

// NewOpenAI creates an engine bound to the model for size.
func NewOpenAI(cfg OpenAIConfig, size string) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		clientCfg.BaseURL = base
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    strings.ReplaceAll(model, "{size}", size),
		language: strings.TrimSpace(cfg.Language),
	}
}

// OpenAILoader returns a Loader producing OpenAI engines.
func OpenAILoader(cfg OpenAIConfig) Loader {
	return func(_ context.Context, size string) (Engine, error) {
		return NewOpenAI(cfg, size), nil
	}
}

// Transcribe uploads audioPath and converts the verbose JSON response.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string, mode Mode) (RawOutput, error) {
	req := openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: []openai.TranscriptionTimestampGranularity{
			openai.TranscriptionTimestampGranularitySegment,
			openai.TranscriptionTimestampGranularityWord,
		},
	}

	var (
		resp openai.AudioResponse
		err  error
	)
	switch mode {
	case ModeTranslateToEnglish:
		resp, err = o.client.CreateTranslation(ctx, req)
	default:
		req.Language = o.language
		resp, err = o.client.CreateTranscription(ctx, req)
	}
	if err != nil {
		return RawOutput{}, fmt.Errorf("openai %s: %w", mode, err)
	}
	return convertAudioResponse(resp), nil
}

// convertAudioResponse attaches top-level words to the segment whose span
// contains the word start.
func convertAudioResponse(resp openai.AudioResponse) RawOutput {
	out := RawOutput{Text: resp.Text, Language: resp.Language}
	out.Segments = make([]RawSegment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		out.Segments = append(out.Segments, RawSegment{Start: s.Start, End: s.End, Text: s.Text})
	}
	seg := 0
	for _, w := range resp.Words {
		for seg < len(out.Segments)-1 && w.Start >= out.Segments[seg].End {
			seg++
		}
		if seg >= len(out.Segments) {
			break
		}
		out.Segments[seg].Words = append(out.Segments[seg].Words, RawWord{Word: w.Word, Start: w.Start, End: w.End})
	}
	return out
}
