package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeMedia()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = defaultEngine
	}
	c.Transcription.WhisperBinary = strings.TrimSpace(c.Transcription.WhisperBinary)
	if c.Transcription.WhisperBinary == "" {
		c.Transcription.WhisperBinary = defaultWhisperBinary
	}
	c.Transcription.DefaultModel = strings.ToLower(strings.TrimSpace(c.Transcription.DefaultModel))
	if c.Transcription.DefaultModel == "" {
		c.Transcription.DefaultModel = defaultModelSize
	}
	c.Transcription.Device = strings.ToLower(strings.TrimSpace(c.Transcription.Device))
	c.Transcription.Language = strings.TrimSpace(c.Transcription.Language)
	if value, ok := os.LookupEnv("SEMATUBE_OPENAI_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Transcription.OpenAIAPIKey = strings.TrimSpace(value)
	}
	c.Transcription.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.Transcription.OpenAIBaseURL), "/")
	if c.Transcription.OpenAIBaseURL == "" {
		c.Transcription.OpenAIBaseURL = defaultOpenAIBaseURL
	}
	c.Transcription.OpenAIModel = strings.TrimSpace(c.Transcription.OpenAIModel)
	if c.Transcription.OpenAIModel == "" {
		c.Transcription.OpenAIModel = defaultOpenAIModel
	}
}

func (c *Config) normalizeTranslation() {
	if value, ok := os.LookupEnv("SEMATUBE_TRANSLATION_URL"); ok && strings.TrimSpace(value) != "" {
		c.Translation.BaseURL = value
	}
	c.Translation.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translation.BaseURL), "/")
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = defaultTranslationBaseURL
	}
	c.Translation.DefaultTarget = strings.TrimSpace(c.Translation.DefaultTarget)
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	c.Media.YTDLPBinary = strings.TrimSpace(c.Media.YTDLPBinary)
	if c.Media.YTDLPBinary == "" {
		c.Media.YTDLPBinary = defaultYTDLPBinary
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
