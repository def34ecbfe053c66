// Package translation talks to the Sema translation service.
package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"sematube/internal/captions"
	"sematube/internal/language"
	"sematube/internal/logging"
	"sematube/internal/services"
)

const (
	// DefaultBaseURL is the public Sema deployment.
	DefaultBaseURL     = "https://lewiskimaru-helloworld.hf.space"
	defaultHTTPTimeout = 60 * time.Second
	defaultConcurrency = 4
	maxErrorBody       = 512
)

// Config captures the runtime settings required to talk to the service.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
	Concurrency    int
}

// Client calls the translate_enter and translate_detect endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.NewComponentLogger(logger, "translation")
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			TimeoutSeconds: cfg.TimeoutSeconds,
			Concurrency:    cfg.Concurrency,
		},
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = DefaultBaseURL
	}
	if client.cfg.Concurrency < 1 {
		client.cfg.Concurrency = defaultConcurrency
	}
	return client
}

// Result is a translated text with the source language it was read as.
type Result struct {
	SourceLanguage string `json:"source_language"`
	Text           string `json:"translated_text"`
}

type enterRequest struct {
	UserInput  string `json:"userinput"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type detectRequest struct {
	UserInput  string `json:"userinput"`
	TargetLang string `json:"target_lang"`
}

type serviceResponse struct {
	SourceLanguage *string `json:"source_language"`
	TranslatedText *string `json:"translated_text"`
}

// Translate converts text into target. Both languages accept FLORES-200 codes
// or table names. With source empty the service detects the language and the
// detected value is returned unchanged.
func (c *Client) Translate(ctx context.Context, text, target, source string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, services.Wrap(services.ErrInvalidArgument, "translation", "translate", "text is empty", nil)
	}
	targetLang, err := resolve(target)
	if err != nil {
		return Result{}, err
	}

	if strings.TrimSpace(source) != "" {
		sourceLang, err := resolve(source)
		if err != nil {
			return Result{}, err
		}
		resp, err := c.post(ctx, "/translate_enter/", enterRequest{UserInput: text, SourceLang: sourceLang.Code, TargetLang: targetLang.Code})
		if err != nil {
			return Result{}, err
		}
		if resp.TranslatedText == nil {
			return Result{}, malformed("translate_enter", "missing translated_text")
		}
		return Result{SourceLanguage: sourceLang.Code, Text: *resp.TranslatedText}, nil
	}

	resp, err := c.post(ctx, "/translate_detect/", detectRequest{UserInput: text, TargetLang: targetLang.Code})
	if err != nil {
		return Result{}, err
	}
	if resp.TranslatedText == nil {
		return Result{}, malformed("translate_detect", "missing translated_text")
	}
	if resp.SourceLanguage == nil || strings.TrimSpace(*resp.SourceLanguage) == "" {
		return Result{}, malformed("translate_detect", "missing source_language")
	}
	return Result{SourceLanguage: *resp.SourceLanguage, Text: *resp.TranslatedText}, nil
}

// TranslateSegments translates each segment's text into target, keeping the
// timings. Word spans are dropped since they no longer match the text. The
// returned language is the one resolved for the first segment.
func (c *Client) TranslateSegments(ctx context.Context, segments []captions.Segment, target, source string) ([]captions.Segment, string, error) {
	out := make([]captions.Segment, len(segments))
	sources := make([]string, len(segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, seg := range segments {
		g.Go(func() error {
			res, err := c.Translate(gctx, seg.Text, target, source)
			if err != nil {
				return err
			}
			out[i] = captions.Segment{Start: seg.Start, End: seg.End, Text: res.Text}
			sources[i] = res.SourceLanguage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", err
	}

	detected := source
	if len(sources) > 0 {
		detected = sources[0]
	}
	logging.WithContext(ctx, c.logger).Info("segments translated",
		logging.String(logging.FieldEventType, "translation_complete"),
		logging.Int("segments", len(segments)),
		logging.String("target_language", target),
		logging.String("source_language", detected),
	)
	return out, detected, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (serviceResponse, error) {
	var decoded serviceResponse
	op := strings.Trim(path, "/")

	body, err := json.Marshal(payload)
	if err != nil {
		return decoded, services.Wrap(services.ErrTranslationFailed, "translation", op, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return decoded, services.Wrap(services.ErrTranslationFailed, "translation", op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decoded, services.Wrap(services.ErrTranslationFailed, "translation", op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decoded, services.Wrap(services.ErrTranslationFailed, "translation", op,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return decoded, services.Wrap(services.ErrTranslationFailed, "translation", op, "decode response", err)
	}
	return decoded, nil
}

func resolve(codeOrName string) (language.Translation, error) {
	lang, ok := language.LookupTranslation(codeOrName)
	if ok {
		return lang, nil
	}
	msg := fmt.Sprintf("%q is not a supported translation language", codeOrName)
	if hints := language.Suggest(codeOrName, 3); len(hints) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(hints, ", "))
	}
	return language.Translation{}, services.Wrap(services.ErrUnsupportedLanguage, "translation", "resolve language", msg, nil)
}

func malformed(op, detail string) error {
	return services.Wrap(services.ErrTranslationFailed, "translation", op, "malformed response: "+detail, nil)
}
