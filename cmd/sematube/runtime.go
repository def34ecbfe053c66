package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sematube/internal/acquire"
	"sematube/internal/config"
	"sematube/internal/media"
	"sematube/internal/pipeline"
	"sematube/internal/transcription"
	"sematube/internal/translation"
	"sematube/internal/workspace"
)

// runtime is the set of pipeline collaborators built from one config.
type runtime struct {
	cfg          *config.Config
	logger       *slog.Logger
	workspace    *workspace.Workspace
	tool         *media.Tool
	translator   *translation.Client
	models       *transcription.ModelCache
	orchestrator *pipeline.Orchestrator
}

type runtimeOptions struct {
	registerer prometheus.Registerer
	observers  []pipeline.Observer
}

func buildRuntime(cfg *config.Config, logger *slog.Logger, opts runtimeOptions) (*runtime, error) {
	ws, err := workspace.Open(cfg.Paths.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	tool := media.New(media.Config{
		FFmpegBinary:  cfg.Media.FFmpegBinary,
		FFprobeBinary: cfg.Media.FFprobeBinary,
		MuxTimeout:    cfg.MuxTimeout(),
	}, logger)

	translator := translation.NewClient(translation.Config{
		BaseURL:        cfg.Translation.BaseURL,
		TimeoutSeconds: cfg.Translation.TimeoutSeconds,
		Concurrency:    cfg.Translation.Concurrency,
	}, translation.WithLogger(logger))

	models, err := transcription.NewModelCache(speechLoader(cfg, ws), cfg.Transcription.ModelCacheSize, logger)
	if err != nil {
		return nil, err
	}

	uploads := acquire.NewUploadStrategy(tool, logger)
	orchestrator, err := pipeline.New(pipeline.Options{
		Strategies: map[acquire.Kind]acquire.Strategy{
			acquire.KindLink: acquire.NewLinkStrategy(acquire.LinkConfig{
				Binary:  cfg.Media.YTDLPBinary,
				Timeout: cfg.DownloadTimeout(),
			}, tool, logger),
			acquire.KindVideo: uploads,
			acquire.KindAudio: uploads,
		},
		Transcriber: timeoutTranscriber{
			next:    transcription.NewAdapter(models, logger),
			timeout: cfg.TranscriptionTimeout(),
		},
		Translator:    translator,
		Muxer:         tool,
		Workspace:     ws,
		Logger:        logger,
		Metrics:       pipeline.NewMetrics(opts.registerer),
		Observers:     opts.observers,
		DefaultModel:  cfg.Transcription.DefaultModel,
		DefaultTarget: cfg.Translation.DefaultTarget,
		MaxLineWidth:  cfg.Captions.MaxLineWidth,
		MaxLines:      cfg.Captions.MaxLines,
	})
	if err != nil {
		models.Close()
		return nil, err
	}

	return &runtime{
		cfg:          cfg,
		logger:       logger,
		workspace:    ws,
		tool:         tool,
		translator:   translator,
		models:       models,
		orchestrator: orchestrator,
	}, nil
}

func (r *runtime) Close() {
	r.models.Close()
}

func speechLoader(cfg *config.Config, ws *workspace.Workspace) transcription.Loader {
	if cfg.Transcription.Engine == config.EngineOpenAI {
		return transcription.OpenAILoader(transcription.OpenAIConfig{
			BaseURL:  cfg.Transcription.OpenAIBaseURL,
			APIKey:   cfg.Transcription.OpenAIAPIKey,
			Model:    cfg.Transcription.OpenAIModel,
			Language: cfg.Transcription.Language,
			Timeout:  cfg.TranscriptionTimeout(),
		})
	}
	return transcription.WhisperLoader(transcription.WhisperConfig{
		Binary:   cfg.Transcription.WhisperBinary,
		Device:   cfg.Transcription.Device,
		Language: cfg.Transcription.Language,
		TempDir:  ws.Root(),
	}, nil)
}

// timeoutTranscriber bounds each speech engine call.
type timeoutTranscriber struct {
	next    pipeline.Transcriber
	timeout time.Duration
}

func (t timeoutTranscriber) Transcribe(ctx context.Context, audioPath, size string, mode transcription.Mode) (transcription.Transcript, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return t.next.Transcribe(ctx, audioPath, size, mode)
}
