package transcription

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

const whisperJSON = `{
  "text": " Hola mundo.",
  "language": "es",
  "segments": [
    {"id": 0, "seek": 0, "start": 0.0, "end": 1.2, "text": " Hola mundo.",
     "words": [{"word": " Hola", "start": 0.0, "end": 0.5, "probability": 0.9},
               {"word": " mundo.", "start": 0.6, "end": 1.2, "probability": 0.8}]}
  ]
}`

func argValue(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestWhisperCLITranscribe(t *testing.T) {
	var gotName string
	var gotArgs []string
	runner := func(_ context.Context, name string, args ...string) error {
		gotName, gotArgs = name, args
		out := argValue(args, "--output_dir")
		return os.WriteFile(filepath.Join(out, "clip.json"), []byte(whisperJSON), 0o644)
	}
	engine := NewWhisperCLI(WhisperConfig{Binary: "/opt/whisper", Device: "cpu", Language: "es", TempDir: t.TempDir()}, "small")
	engine.WithCommandRunner(runner)

	out, err := engine.Transcribe(context.Background(), "/work/clip.wav", ModeTranslateToEnglish)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotName != "/opt/whisper" || gotArgs[0] != "/work/clip.wav" {
		t.Fatalf("unexpected command %s %v", gotName, gotArgs)
	}
	for flag, want := range map[string]string{
		"--model": "small", "--task": "translate", "--best_of": "5",
		"--output_format": "json", "--word_timestamps": "True",
		"--device": "cpu", "--fp16": "False", "--language": "es",
	} {
		if got := argValue(gotArgs, flag); got != want {
			t.Errorf("%s = %q, want %q", flag, got, want)
		}
	}
	if out.Language != "es" || len(out.Segments) != 1 || len(out.Segments[0].Words) != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}
	if _, err := os.Stat(argValue(gotArgs, "--output_dir")); !os.IsNotExist(err) {
		t.Fatal("expected per-invocation output dir removed")
	}
}

func TestWhisperCLIOmitsOptionalFlags(t *testing.T) {
	engine := NewWhisperCLI(WhisperConfig{}, "base")
	args := engine.buildArgs("a.wav", "/tmp/out", ModeRecognize)
	joined := strings.Join(args, " ")
	for _, flag := range []string{"--device", "--language", "--fp16"} {
		if strings.Contains(joined, flag) {
			t.Fatalf("unexpected %s in %v", flag, args)
		}
	}
	if argValue(args, "--task") != "transcribe" {
		t.Fatalf("task = %q", argValue(args, "--task"))
	}
	if engine.cfg.Binary != DefaultWhisperBinary {
		t.Fatalf("binary = %q", engine.cfg.Binary)
	}
}

func TestWhisperCLIPropagatesFailures(t *testing.T) {
	engine := NewWhisperCLI(WhisperConfig{TempDir: t.TempDir()}, "base")
	engine.WithCommandRunner(func(context.Context, string, ...string) error { return errors.New("exit status 1") })
	if _, err := engine.Transcribe(context.Background(), "a.wav", ModeRecognize); err == nil {
		t.Fatal("expected runner failure")
	}

	engine.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	if _, err := engine.Transcribe(context.Background(), "a.wav", ModeRecognize); err == nil {
		t.Fatal("expected error when whisper writes no output")
	}
}

func TestWhisperLoaderUsesRunner(t *testing.T) {
	called := false
	load := WhisperLoader(WhisperConfig{TempDir: t.TempDir()}, func(_ context.Context, _ string, args ...string) error {
		called = true
		return os.WriteFile(filepath.Join(argValue(args, "--output_dir"), "a.json"), []byte(whisperJSON), 0o644)
	})
	engine, err := load(context.Background(), "tiny")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if engine.(*WhisperCLI).Model() != "tiny" {
		t.Fatal("loader did not bind model size")
	}
	if _, err := engine.Transcribe(context.Background(), "a.wav", ModeRecognize); err != nil || !called {
		t.Fatalf("Transcribe: %v (runner called: %v)", err, called)
	}
}

func TestWhisperRunCancellationIsBounded(t *testing.T) {
	previous := waitDelay
	waitDelay = 100 * time.Millisecond
	t.Cleanup(func() { waitDelay = previous })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := NewWhisperCLI(WhisperConfig{}, "tiny").run(ctx, "sh", "-c", "sleep 30 & sleep 30")
	if err == nil {
		t.Fatal("expected canceled command to fail")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("canceled command returned after %s", elapsed)
	}
}
