package pipeline

import (
	"fmt"
	"strings"
	"time"

	"sematube/internal/acquire"
	"sematube/internal/config"
	"sematube/internal/language"
	"sematube/internal/services"
)

// Request describes one pipeline invocation.
type Request struct {
	Source    acquire.Source
	Task      Task
	ModelSize string
	// TargetLanguage and SourceLanguage apply to TaskSema. Either accepts a
	// translation-service code or a language name.
	TargetLanguage string
	SourceLanguage string
	// MaxLineWidth of zero selects the orchestrator default.
	MaxLineWidth int
	Mux          bool
}

// Result is the published outcome of a run.
type Result struct {
	Key              CacheKey  `json:"key"`
	RawText          string    `json:"raw_text"`
	CaptionVTT       string    `json:"caption_vtt"`
	CaptionSRT       string    `json:"caption_srt"`
	DetectedLanguage string    `json:"detected_language,omitempty"`
	TranslatedFrom   string    `json:"translated_from,omitempty"`
	MediaPath        string    `json:"media_path"`
	AudioPath        string    `json:"audio_path"`
	VTTPath          string    `json:"vtt_path"`
	SRTPath          string    `json:"srt_path"`
	TextPath         string    `json:"text_path"`
	OutputPath       string    `json:"output_path,omitempty"`
	Title            string    `json:"title"`
	RequestID        string    `json:"request_id"`
	CompletedAt      time.Time `json:"completed_at"`
}

// normalize validates req against the orchestrator defaults and returns the
// canonical form used to derive a CacheKey.
func (o *Orchestrator) normalize(req Request) (Request, error) {
	if err := req.Source.Validate(); err != nil {
		return Request{}, err
	}
	task, err := ParseTask(string(req.Task))
	if err != nil {
		return Request{}, err
	}
	req.Task = task

	hasCaptions := strings.TrimSpace(req.Source.CaptionPath) != ""
	switch {
	case task == TaskBurn && !hasCaptions:
		return Request{}, invalid("the burn task needs a caption file")
	case task != TaskBurn && hasCaptions:
		return Request{}, invalid(fmt.Sprintf("caption files are only accepted by the burn task, not %s", task))
	}

	if task.usesSpeechModel() {
		size := strings.ToLower(strings.TrimSpace(req.ModelSize))
		if size == "" {
			size = o.opts.DefaultModel
		}
		if !config.ValidModelSize(size) {
			return Request{}, invalid(fmt.Sprintf("unknown model size %q", size))
		}
		req.ModelSize = size
	} else {
		req.ModelSize = ""
	}

	if task == TaskSema {
		target := req.TargetLanguage
		if strings.TrimSpace(target) == "" {
			target = o.opts.DefaultTarget
		}
		lang, err := resolveTranslation(target)
		if err != nil {
			return Request{}, err
		}
		req.TargetLanguage = lang.Code
		if strings.TrimSpace(req.SourceLanguage) != "" {
			src, err := resolveTranslation(req.SourceLanguage)
			if err != nil {
				return Request{}, err
			}
			req.SourceLanguage = src.Code
		}
	} else {
		req.TargetLanguage = ""
		req.SourceLanguage = ""
	}

	switch {
	case req.MaxLineWidth == 0:
		req.MaxLineWidth = o.opts.MaxLineWidth
	case req.MaxLineWidth < 0:
		return Request{}, invalid(fmt.Sprintf("max line width must be positive, got %d", req.MaxLineWidth))
	}
	return req, nil
}

func resolveTranslation(value string) (language.Translation, error) {
	lang, ok := language.LookupTranslation(value)
	if ok {
		return lang, nil
	}
	msg := fmt.Sprintf("%q is not a supported translation language", value)
	if suggestions := language.Suggest(value, 3); len(suggestions) > 0 {
		msg += "; did you mean " + strings.Join(suggestions, ", ") + "?"
	}
	return language.Translation{}, services.Wrap(services.ErrUnsupportedLanguage, "pipeline", "resolve language", msg, nil)
}

func invalid(msg string) error {
	return services.Wrap(services.ErrInvalidArgument, "pipeline", "validate request", msg, nil)
}
