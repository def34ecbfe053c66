package transcription

import "context"

// Mode selects between same-language recognition and translation to English.
type Mode int

const (
	ModeRecognize Mode = iota
	ModeTranslateToEnglish
)

// String returns the whisper task name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeTranslateToEnglish:
		return "translate"
	default:
		return "transcribe"
	}
}

// RawWord is a word span as reported by an engine.
type RawWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// RawSegment is a segment as reported by an engine.
type RawSegment struct {
	Start float64   `json:"start"`
	End   float64   `json:"end"`
	Text  string    `json:"text"`
	Words []RawWord `json:"words"`
}

// RawOutput is the unnormalized engine result. Language may be a code or a
// name depending on the engine.
type RawOutput struct {
	Text     string       `json:"text"`
	Language string       `json:"language"`
	Segments []RawSegment `json:"segments"`
}

// Engine is a loaded speech model.
type Engine interface {
	Transcribe(ctx context.Context, audioPath string, mode Mode) (RawOutput, error)
}

// Loader loads the engine for a model size.
type Loader func(ctx context.Context, size string) (Engine, error)
