package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sematube/internal/acquire"
	"sematube/internal/captions"
	"sematube/internal/language"
	"sematube/internal/logging"
	"sematube/internal/media"
	"sematube/internal/transcription"
	"sematube/internal/workspace"
)

var scenarioSegments = []captions.Segment{
	{Start: 0, End: 2, Text: "Hello world"},
	{Start: 2, End: 5, Text: "this is a test"},
}

type fakeStrategy struct {
	mediaPath string
	hasVideo  bool
	err       error
	acquires  atomic.Int32
}

func (f *fakeStrategy) Identity(_ context.Context, src acquire.Source) (string, error) {
	id := src.Link + src.UploadPath
	if src.CaptionPath != "" {
		id += "+" + src.CaptionPath
	}
	return id, nil
}

func (f *fakeStrategy) Acquire(_ context.Context, src acquire.Source, _ string) (acquire.Artifacts, error) {
	f.acquires.Add(1)
	if f.err != nil {
		return acquire.Artifacts{}, f.err
	}
	art := acquire.Artifacts{
		MediaPath: f.mediaPath,
		AudioPath: f.mediaPath,
		Title:     "Clip",
		HasVideo:  f.hasVideo,
	}
	if src.CaptionPath == "" {
		art.PCMPath = f.mediaPath + ".wav"
	}
	return art, nil
}

type fakeTranscriber struct {
	mu    sync.Mutex
	calls atomic.Int32
	sizes []string
	modes []transcription.Mode
	block chan struct{}
	errs  []error
	// killedErr, when set, is returned on cancellation in place of
	// ctx.Err(), the way an exec'd engine reports its killed process.
	killedErr error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ string, size string, mode transcription.Mode) (transcription.Transcript, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	f.sizes = append(f.sizes, size)
	f.modes = append(f.modes, mode)
	var err error
	if int(n) <= len(f.errs) {
		err = f.errs[n-1]
	}
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			if f.killedErr != nil {
				return transcription.Transcript{}, f.killedErr
			}
			return transcription.Transcript{}, ctx.Err()
		}
	}
	if err != nil {
		return transcription.Transcript{}, err
	}
	speech, _ := language.LookupSpeech("en")
	return transcription.Transcript{
		Text:     "Hello world this is a test",
		Segments: append([]captions.Segment(nil), scenarioSegments...),
		Language: speech,
	}, nil
}

type fakeTranslator struct {
	mu      sync.Mutex
	targets []string
	sources []string
}

func (f *fakeTranslator) TranslateSegments(_ context.Context, segs []captions.Segment, target, source string) ([]captions.Segment, string, error) {
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.sources = append(f.sources, source)
	f.mu.Unlock()
	out := make([]captions.Segment, len(segs))
	for i, seg := range segs {
		out[i] = captions.Segment{Start: seg.Start, End: seg.End, Text: "fr: " + seg.Text}
	}
	return out, source, nil
}

type fakeMuxer struct {
	calls    atomic.Int32
	err      error
	captions []string
	mu       sync.Mutex
}

func (f *fakeMuxer) Mux(_ context.Context, req media.MuxRequest) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.captions = append(f.captions, req.CaptionPath)
	f.mu.Unlock()
	if f.err != nil {
		return req.VideoPath, f.err
	}
	if err := os.WriteFile(req.OutputPath, []byte("muxed"), 0o644); err != nil {
		return req.VideoPath, err
	}
	return req.OutputPath, nil
}

type harness struct {
	orch        *Orchestrator
	strategy    *fakeStrategy
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	muxer       *fakeMuxer
	workspace   *workspace.Workspace
	metrics     *Metrics
	logger      *slog.Logger

	mu     sync.Mutex
	events []Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	ws, err := workspace.Open(filepath.Join(root, "work"))
	if err != nil {
		t.Fatalf("workspace: %v", err)
	}
	mediaPath := filepath.Join(root, "clip.mp4")
	if err := os.WriteFile(mediaPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := &harness{
		strategy:    &fakeStrategy{mediaPath: mediaPath, hasVideo: true},
		transcriber: &fakeTranscriber{},
		translator:  &fakeTranslator{},
		muxer:       &fakeMuxer{},
		workspace:   ws,
		metrics:     NewMetrics(prometheus.NewRegistry()),
	}
	h.orch = h.build(t)
	return h
}

// build (re)creates the orchestrator with the harness collaborators.
func (h *harness) build(t *testing.T) *Orchestrator {
	t.Helper()
	logger := h.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	orch, err := New(Options{
		Strategies: map[acquire.Kind]acquire.Strategy{
			acquire.KindLink:  h.strategy,
			acquire.KindVideo: h.strategy,
			acquire.KindAudio: h.strategy,
		},
		Transcriber: h.transcriber,
		Translator:  h.translator,
		Muxer:       h.muxer,
		Workspace:   h.workspace,
		Logger:      logger,
		Metrics:     h.metrics,
		Observers:   []Observer{h.observe},
		MaxLines:    captions.DefaultMaxLines,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch
}

// captureLogs rebuilds the orchestrator with a JSON logger and returns a
// reader for the entries written so far.
func (h *harness) captureLogs(t *testing.T) func() []map[string]any {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.log")
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h.logger = logger
	h.orch = h.build(t)
	return func() []map[string]any {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		var entries []map[string]any
		for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
			if line == "" {
				continue
			}
			var entry map[string]any
			if err := json.Unmarshal([]byte(line), &entry); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			entries = append(entries, entry)
		}
		return entries
	}
}

// decision returns the first decision entry of decisionType.
func decision(entries []map[string]any, decisionType string) (map[string]any, bool) {
	for _, entry := range entries {
		if entry[logging.FieldDecisionType] == decisionType {
			return entry, true
		}
	}
	return nil, false
}

func (h *harness) observe(ev Event) {
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
}

func (h *harness) statesFor(requestID string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, ev := range h.events {
		if ev.RequestID != requestID {
			continue
		}
		label := string(ev.State)
		if ev.Skipped {
			label += "(skipped)"
		}
		out = append(out, label)
	}
	return out
}

func linkRequest(task Task) Request {
	return Request{
		Source: acquire.Source{Link: "https://example.com/watch?v=1"},
		Task:   task,
		Mux:    true,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func assertKind(t *testing.T, err error, marker error) {
	t.Helper()
	if !errors.Is(err, marker) {
		t.Fatalf("err = %v, want %v", err, marker)
	}
}

func writeCaptionFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(strings.TrimLeft(body, "\n")), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
