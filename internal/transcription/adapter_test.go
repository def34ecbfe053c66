package transcription

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"sematube/internal/captions"
	"sematube/internal/logging"
	"sematube/internal/services"
)

type fakeEngine struct {
	out    RawOutput
	err    error
	modes  []Mode
	closed atomic.Bool
}

func (f *fakeEngine) Transcribe(_ context.Context, _ string, mode Mode) (RawOutput, error) {
	f.modes = append(f.modes, mode)
	return f.out, f.err
}

func (f *fakeEngine) Close() error {
	f.closed.Store(true)
	return nil
}

func newTestAdapter(t *testing.T, engine Engine) *Adapter {
	t.Helper()
	cache, err := NewModelCache(func(context.Context, string) (Engine, error) { return engine, nil }, 1, logging.NewNop())
	if err != nil {
		t.Fatalf("NewModelCache: %v", err)
	}
	return NewAdapter(cache, logging.NewNop())
}

func TestAdapterNormalizesSegments(t *testing.T) {
	engine := &fakeEngine{out: RawOutput{
		Language: "en",
		Segments: []RawSegment{
			{Start: 2, End: 5, Text: "  this is   a test "},
			{Start: 0, End: 2, Text: " Hello world", Words: []RawWord{{Word: " Hello", Start: -1, End: 0.8}, {Word: " world", Start: 0.9, End: 9}}},
			{Start: 5, End: 6, Text: "   "},
			{Start: 7, End: 6.5, Text: "backwards"},
		},
	}}
	adapter := newTestAdapter(t, engine)

	got, err := adapter.Transcribe(context.Background(), "audio.wav", "base", ModeRecognize)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	want := []captions.Segment{
		{Start: 0, End: 2, Text: "Hello world", Words: []captions.Word{{Text: "Hello", Start: 0, End: 0.8}, {Text: "world", Start: 0.9, End: 2}}},
		{Start: 2, End: 5, Text: "this is a test"},
		{Start: 7, End: 7, Text: "backwards"},
	}
	if !reflect.DeepEqual(got.Segments, want) {
		t.Fatalf("segments = %+v\nwant %+v", got.Segments, want)
	}
	if got.Text != "Hello world this is a test backwards" {
		t.Fatalf("text = %q", got.Text)
	}
	if got.Language.Code != "en" || got.Language.Name != "english" {
		t.Fatalf("language = %+v", got.Language)
	}
}

func TestAdapterAcceptsLanguageNames(t *testing.T) {
	engine := &fakeEngine{out: RawOutput{Language: "French", Text: "Bonjour", Segments: []RawSegment{{Start: 0, End: 1, Text: "Bonjour"}}}}
	got, err := newTestAdapter(t, engine).Transcribe(context.Background(), "a.wav", "small", ModeTranslateToEnglish)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.Language.Code != "fr" {
		t.Fatalf("language = %+v", got.Language)
	}
	if engine.modes[0] != ModeTranslateToEnglish {
		t.Fatalf("mode not passed through: %v", engine.modes)
	}
}

func TestAdapterErrors(t *testing.T) {
	tests := []struct {
		name   string
		engine *fakeEngine
		size   string
		want   error
	}{
		{"unknown size", &fakeEngine{}, "gigantic", services.ErrInvalidArgument},
		{"engine failure", &fakeEngine{err: errors.New("model crashed")}, "base", services.ErrTranscriptionFailed},
		{"unresolvable language", &fakeEngine{out: RawOutput{Language: "zz"}}, "base", services.ErrUnsupportedLanguage},
		{"missing language", &fakeEngine{out: RawOutput{}}, "tiny", services.ErrUnsupportedLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAdapter(t, tt.engine).Transcribe(context.Background(), "a.wav", tt.size, ModeRecognize)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAdapterWrapsLoadFailure(t *testing.T) {
	cache, err := NewModelCache(func(context.Context, string) (Engine, error) { return nil, errors.New("no gpu") }, 1, nil)
	if err != nil {
		t.Fatalf("NewModelCache: %v", err)
	}
	_, err = NewAdapter(cache, nil).Transcribe(context.Background(), "a.wav", "base", ModeRecognize)
	if !errors.Is(err, services.ErrTranscriptionFailed) {
		t.Fatalf("expected ErrTranscriptionFailed, got %v", err)
	}
}
