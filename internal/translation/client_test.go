package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sematube/internal/captions"
	"sematube/internal/services"
)

func TestTranslateDetectSurfacesSourceLanguage(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"source_language":"eng","translated_text":"Bonjour"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL})
	res, err := client.Translate(context.Background(), "Hello", "French", "")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.SourceLanguage != "eng" || res.Text != "Bonjour" {
		t.Fatalf("result = %+v", res)
	}
	if gotPath != "/translate_detect/" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["userinput"] != "Hello" || gotBody["target_lang"] != "fra_Latn" {
		t.Fatalf("body = %v", gotBody)
	}
	if _, ok := gotBody["source_lang"]; ok {
		t.Fatal("detect request must not carry source_lang")
	}
}

func TestTranslateWithKnownSource(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"translated_text":"Habari"}`))
	}))
	defer srv.Close()

	res, err := NewClient(Config{BaseURL: srv.URL + "/"}).Translate(context.Background(), "Hello", "swh_Latn", "English")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if gotPath != "/translate_enter/" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody["source_lang"] != "eng_Latn" || gotBody["target_lang"] != "swh_Latn" {
		t.Fatalf("body = %v", gotBody)
	}
	if res.SourceLanguage != "eng_Latn" || res.Text != "Habari" {
		t.Fatalf("result = %+v", res)
	}
}

func TestTranslateFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		source  string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, "boom", "", services.ErrTranslationFailed},
		{"not json", http.StatusOK, "<html>", "", services.ErrTranslationFailed},
		{"missing detected language", http.StatusOK, `{"translated_text":"x"}`, "", services.ErrTranslationFailed},
		{"missing translation", http.StatusOK, `{"source_language":"eng"}`, "", services.ErrTranslationFailed},
		{"missing translation with source", http.StatusOK, `{}`, "French", services.ErrTranslationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			_, err := NewClient(Config{BaseURL: srv.URL}).Translate(context.Background(), "Hello", "German", tt.source)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTranslateTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(Config{BaseURL: srv.URL}, WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
	if _, err := client.Translate(context.Background(), "Hello", "French", ""); !errors.Is(err, services.ErrTranslationFailed) {
		t.Fatalf("expected ErrTranslationFailed, got %v", err)
	}
}

func TestTranslateRejectsUnknownLanguages(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	_, err := client.Translate(context.Background(), "Hello", "Frnch", "")
	if !errors.Is(err, services.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if !strings.Contains(err.Error(), "French") {
		t.Fatalf("expected suggestion in %q", err.Error())
	}
	if _, err := client.Translate(context.Background(), "Hello", "French", "xx"); !errors.Is(err, services.ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage for source, got %v", err)
	}
	if _, err := client.Translate(context.Background(), "  ", "French", ""); !errors.Is(err, services.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty text, got %v", err)
	}
}

func TestTranslateSegmentsPreservesTimings(t *testing.T) {
	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		seen[body["userinput"]] = true
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]string{
			"source_language": "eng",
			"translated_text": strings.ToUpper(body["userinput"]),
		})
	}))
	defer srv.Close()

	segments := []captions.Segment{
		{Start: 0, End: 1, Text: "one", Words: []captions.Word{{Text: "one", Start: 0, End: 1}}},
		{Start: 1, End: 2, Text: "two"},
		{Start: 2, End: 3, Text: "three"},
		{Start: 3, End: 4, Text: "four"},
		{Start: 4, End: 5, Text: "five"},
	}
	client := NewClient(Config{BaseURL: srv.URL, Concurrency: 2})
	out, detected, err := client.TranslateSegments(context.Background(), segments, "French", "")
	if err != nil {
		t.Fatalf("TranslateSegments: %v", err)
	}
	if detected != "eng" {
		t.Fatalf("detected = %q", detected)
	}
	for i, seg := range out {
		if seg.Start != segments[i].Start || seg.End != segments[i].End {
			t.Fatalf("segment %d timing changed: %+v", i, seg)
		}
		if seg.Text != strings.ToUpper(segments[i].Text) {
			t.Fatalf("segment %d text = %q", i, seg.Text)
		}
		if seg.Words != nil {
			t.Fatalf("segment %d kept word spans", i)
		}
	}
	if peak.Load() > 2 {
		t.Fatalf("concurrency limit exceeded: %d", peak.Load())
	}
	if len(seen) != len(segments) {
		t.Fatalf("expected every segment sent, saw %d", len(seen))
	}
}

func TestTranslateSegmentsFailsFast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	_, _, err := NewClient(Config{BaseURL: srv.URL}).TranslateSegments(context.Background(), []captions.Segment{{Start: 0, End: 1, Text: "a"}}, "French", "")
	if !errors.Is(err, services.ErrTranslationFailed) {
		t.Fatalf("expected ErrTranslationFailed, got %v", err)
	}
}
