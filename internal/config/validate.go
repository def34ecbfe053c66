package config

import (
	"errors"
	"fmt"
	"strings"
)

var validModelSizes = map[string]struct{}{
	"tiny": {}, "tiny.en": {},
	"base": {}, "base.en": {},
	"small": {}, "small.en": {},
	"medium": {}, "medium.en": {},
	"large": {}, "large-v1": {}, "large-v2": {}, "large-v3": {},
	"turbo": {}, "large-v3-turbo": {},
}

// ValidModelSize reports whether size names a known speech model size.
func ValidModelSize(size string) bool {
	_, ok := validModelSizes[strings.ToLower(strings.TrimSpace(size))]
	return ok
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case EngineWhisper, EngineOpenAI:
	default:
		return fmt.Errorf("transcription.engine must be %q or %q, got %q", EngineWhisper, EngineOpenAI, c.Transcription.Engine)
	}
	if !ValidModelSize(c.Transcription.DefaultModel) {
		return fmt.Errorf("transcription.default_model: unknown model size %q", c.Transcription.DefaultModel)
	}
	switch c.Transcription.Device {
	case "", "cpu", "cuda":
	default:
		return fmt.Errorf("transcription.device must be cpu or cuda, got %q", c.Transcription.Device)
	}
	if c.Transcription.ModelCacheSize < 1 {
		return errors.New("transcription.model_cache_size must be at least 1")
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if !strings.HasPrefix(c.Translation.BaseURL, "http://") && !strings.HasPrefix(c.Translation.BaseURL, "https://") {
		return fmt.Errorf("translation.base_url must be an http(s) URL, got %q", c.Translation.BaseURL)
	}
	if c.Translation.TimeoutSeconds <= 0 {
		return errors.New("translation.timeout_seconds must be positive")
	}
	if c.Translation.Concurrency < 1 {
		return errors.New("translation.concurrency must be at least 1")
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if c.Captions.MaxLineWidth < 1 {
		return errors.New("captions.max_line_width must be at least 1")
	}
	if c.Captions.MaxLines < 0 {
		return errors.New("captions.max_lines must not be negative")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.DownloadTimeoutSeconds <= 0 {
		return errors.New("media.download_timeout_seconds must be positive")
	}
	if c.Media.MuxTimeoutSeconds <= 0 {
		return errors.New("media.mux_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
