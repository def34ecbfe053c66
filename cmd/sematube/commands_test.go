package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sematube/internal/pipeline"
	"sematube/internal/testsupport"
)

func TestConfigInitAndShow(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# source: "+env.configPath)
	requireContains(t, out, env.cfg.Paths.WorkDir)
}

func TestFormatCommandRewrapsCaptions(t *testing.T) {
	src := filepath.Join(t.TempDir(), "talk.srt")
	testsupport.WriteFile(t, src, "1\n00:00:00,000 --> 00:00:04,000\nthe quick brown fox jumps over the lazy dog\n")

	out, _, err := runCLI(t, []string{"format", src, "--width", "20", "--format", "vtt"}, "")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if !strings.HasPrefix(out, "WEBVTT\n\n") {
		t.Fatalf("expected VTT output, got %q", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "-->") || line == "WEBVTT" {
			continue
		}
		if len([]rune(line)) > 20 {
			t.Fatalf("line %q exceeds width 20", line)
		}
	}
	requireContains(t, out, "00:00:00.000 --> ")
	requireContains(t, out, " --> 00:00:04.000")

	dest := filepath.Join(t.TempDir(), "talk.srt")
	out, _, err = runCLI(t, []string{"format", src, "--width", "80", "--output", dest}, "")
	if err != nil {
		t.Fatalf("format to file: %v", err)
	}
	requireContains(t, out, "Wrote 1 cues")
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := "1\n00:00:00,000 --> 00:00:04,000\nthe quick brown fox jumps over the lazy dog\n\n"; string(data) != want {
		t.Fatalf("unexpected srt output:\n%q\nwant\n%q", data, want)
	}

	if _, _, err := runCLI(t, []string{"format", src, "--width", "0"}, ""); err == nil {
		t.Fatal("expected error for zero width")
	}
}

func TestLanguagesCommand(t *testing.T) {
	out, _, err := runCLI(t, []string{"languages", "french"}, "")
	if err != nil {
		t.Fatalf("languages: %v", err)
	}
	requireContains(t, out, "fra_Latn")

	out, _, err = runCLI(t, []string{"languages", "--space", "speech", "en"}, "")
	if err != nil {
		t.Fatalf("languages speech: %v", err)
	}
	requireContains(t, out, "English")

	out, _, err = runCLI(t, []string{"languages", "frnch"}, "")
	if err != nil {
		t.Fatalf("languages no match: %v", err)
	}
	requireContains(t, out, "Did you mean: French")

	if _, _, err := runCLI(t, []string{"languages", "--space", "klingon"}, ""); err == nil {
		t.Fatal("expected error for unknown space")
	}
}

func TestTranslateCommand(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"source_language":"eng_Latn","translated_text":"bonjour le monde"}`))
	}))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithTranslationURL(srv.URL))
	out, _, err := runCLI(t, []string{"translate", "--target", "French", "hello", "world"}, env.configPath)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if gotPath != "/translate_detect/" {
		t.Fatalf("unexpected endpoint %q", gotPath)
	}
	if gotBody["userinput"] != "hello world" || gotBody["target_lang"] != "fra_Latn" {
		t.Fatalf("unexpected request body %#v", gotBody)
	}
	requireContains(t, out, "Source language: eng_Latn")
	requireContains(t, out, "bonjour le monde")

	if _, _, err := runCLI(t, []string{"translate", "--target", "Elvish", "hello"}, env.configPath); err == nil {
		t.Fatal("expected unsupported target to fail")
	}
}

func TestBurnCommandPublishesArtifacts(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteScript(t, env.cfg.Media.FFprobeBinary, testsupport.FakeFFprobe)
	testsupport.WriteScript(t, env.cfg.Media.FFmpegBinary, testsupport.FakeFFmpeg)

	video := filepath.Join(env.baseDir, "clip.mp4")
	testsupport.WriteFile(t, video, "not really a video")
	caps := filepath.Join(env.baseDir, "clip.vtt")
	testsupport.WriteFile(t, caps, "WEBVTT\n\n00:00:00.000 --> 00:00:02.000\nhello there\n\n00:00:02.000 --> 00:00:04.000\ngeneral kenobi\n")
	outDir := filepath.Join(env.baseDir, "published")

	out, stderr, err := runCLI(t, []string{"burn", video, caps, "--output", outDir, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("burn: %v (stderr %s)", err, stderr)
	}

	var decoded captionOutput
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if decoded.Result.Key.Task != pipeline.TaskBurn {
		t.Fatalf("unexpected task %q", decoded.Result.Key.Task)
	}
	if decoded.Result.Title != "clip" {
		t.Fatalf("unexpected title %q", decoded.Result.Title)
	}
	if len(decoded.Artifacts) != 4 {
		t.Fatalf("expected 4 artifacts, got %#v", decoded.Artifacts)
	}

	muxed := filepath.Join(outDir, "clip with subtitles.mp4")
	data, err := os.ReadFile(muxed)
	if err != nil {
		t.Fatalf("expected captioned video: %v", err)
	}
	if string(data) != "muxed" {
		t.Fatalf("unexpected muxed content %q", data)
	}
	srt, err := os.ReadFile(filepath.Join(outDir, "clip.srt"))
	if err != nil {
		t.Fatalf("read published srt: %v", err)
	}
	requireContains(t, string(srt), "1\n00:00:00,000 --> 00:00:02,000\nhello there\n")
	transcript, err := os.ReadFile(filepath.Join(outDir, "clip.txt"))
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	requireContains(t, string(transcript), "general kenobi")
}

func TestBurnCommandReportsFallbackOnMuxFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteScript(t, env.cfg.Media.FFprobeBinary, testsupport.FakeFFprobe)
	testsupport.WriteScript(t, env.cfg.Media.FFmpegBinary, "echo 'encoder exploded' >&2\nexit 1")

	video := filepath.Join(env.baseDir, "clip.mp4")
	testsupport.WriteFile(t, video, "not really a video")
	caps := filepath.Join(env.baseDir, "clip.srt")
	testsupport.WriteFile(t, caps, "1\n00:00:00,000 --> 00:00:02,000\nhello\n")

	_, stderr, err := runCLI(t, []string{"burn", video, caps, "--output", t.TempDir()}, env.configPath)
	if err == nil {
		t.Fatal("expected burn to fail")
	}
	requireContains(t, err.Error(), "mux stage failed")
	requireContains(t, stderr, "Uncaptioned media remains at")
}

func TestBuildCaptionRequest(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "talk.mp4")
	testsupport.WriteFile(t, video, "x")
	caps := filepath.Join(dir, "talk.srt")
	testsupport.WriteFile(t, caps, "1\n00:00:00,000 --> 00:00:01,000\nhi\n")

	req, err := buildCaptionRequest("https://example.com/watch?v=1", captionFlags{task: "sema", target: "French", noMux: true, width: 42})
	if err != nil {
		t.Fatalf("link request: %v", err)
	}
	if req.Source.Link == "" || req.Task != pipeline.TaskSema || req.Mux || req.MaxLineWidth != 42 || req.TargetLanguage != "French" {
		t.Fatalf("unexpected link request %#v", req)
	}

	req, err = buildCaptionRequest(video, captionFlags{captions: caps})
	if err != nil {
		t.Fatalf("file request: %v", err)
	}
	if req.Source.UploadPath != video || req.Source.CaptionPath != caps || req.Task != pipeline.TaskBurn || !req.Mux {
		t.Fatalf("unexpected file request %#v", req)
	}

	req, err = buildCaptionRequest(video, captionFlags{})
	if err != nil {
		t.Fatalf("default request: %v", err)
	}
	if req.Task != pipeline.TaskTranscribe {
		t.Fatalf("expected transcribe default, got %q", req.Task)
	}

	for name, tc := range map[string]struct {
		input string
		flags captionFlags
	}{
		"missing file": {filepath.Join(dir, "nope.mp4"), captionFlags{}},
		"directory":    {dir, captionFlags{}},
		"blank":        {"  ", captionFlags{}},
		"bad task":     {video, captionFlags{task: "summarize"}},
		"missing caps": {video, captionFlags{captions: filepath.Join(dir, "nope.srt")}},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := buildCaptionRequest(tc.input, tc.flags); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}

	out, _, err := runCLI(t, []string{"check", "--offline"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "== Binaries ==")
	requireContains(t, out, "[OK] Ready (")
	requireContains(t, out, "Work directory:")

	env.cfg.Media.FFprobeBinary = "clearly-not-present-ffprobe"
	env.rewriteConfig(t)
	out, _, err = runCLI(t, []string{"check", "--offline"}, env.configPath)
	if err == nil {
		t.Fatal("expected check to fail with missing ffprobe")
	}
	requireContains(t, out, "[ERROR] binary \"clearly-not-present-ffprobe\" not found")
}

func TestServeRefusesMissingBinaries(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Transcription.WhisperBinary = "clearly-not-present-whisper"
	env.rewriteConfig(t)

	_, _, err := runCLI(t, []string{"serve"}, env.configPath)
	if err == nil {
		t.Fatal("expected serve to refuse to start")
	}
	requireContains(t, err.Error(), "Whisper")
}
