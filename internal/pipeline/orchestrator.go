package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"sematube/internal/acquire"
	"sematube/internal/captions"
	"sematube/internal/language"
	"sematube/internal/logging"
	"sematube/internal/media"
	"sematube/internal/memo"
	"sematube/internal/services"
	"sematube/internal/transcription"
	"sematube/internal/workspace"
)

// Transcriber produces a normalized transcript from PCM audio.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, size string, mode transcription.Mode) (transcription.Transcript, error)
}

// Translator translates caption segments, preserving their timings.
type Translator interface {
	TranslateSegments(ctx context.Context, segments []captions.Segment, target, source string) ([]captions.Segment, string, error)
}

// Muxer burns a caption file into media. On failure it returns the path of
// media the caller can fall back to.
type Muxer interface {
	Mux(ctx context.Context, req media.MuxRequest) (string, error)
}

// Options wires an Orchestrator to its collaborators.
type Options struct {
	// Strategies maps each source kind to its acquisition strategy.
	Strategies  map[acquire.Kind]acquire.Strategy
	Transcriber Transcriber
	Translator  Translator
	Muxer       Muxer
	Workspace   *workspace.Workspace
	Logger      *slog.Logger
	Metrics     *Metrics
	Observers   []Observer

	DefaultModel  string
	DefaultTarget string
	MaxLineWidth  int
	// MaxLines caps lines per cue; zero disables continuation cues.
	MaxLines int
}

// Orchestrator runs pipelines.
type Orchestrator struct {
	opts        Options
	logger      *slog.Logger
	metrics     *Metrics
	results     *memo.Cache[CacheKey, Result]
	transcripts *memo.Cache[transcriptKey, transcriptOutcome]

	mu     sync.RWMutex
	states map[CacheKey]State
}

// transcriptOutcome is the memoized product of the transcribe stage.
type transcriptOutcome struct {
	Text             string
	Segments         []captions.Segment
	DetectedLanguage string
	TranslatedFrom   string
}

// New validates opts and returns an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if len(opts.Strategies) == 0 {
		return nil, errors.New("pipeline: at least one acquisition strategy is required")
	}
	if opts.Workspace == nil {
		return nil, errors.New("pipeline: workspace is required")
	}
	if opts.Muxer == nil {
		return nil, errors.New("pipeline: muxer is required")
	}
	if opts.DefaultModel == "" {
		opts.DefaultModel = "base"
	}
	if opts.DefaultTarget == "" {
		opts.DefaultTarget = language.DefaultTranslationTarget
	}
	if opts.MaxLineWidth <= 0 {
		opts.MaxLineWidth = captions.DefaultMaxLineWidth
	}
	if opts.MaxLines < 0 {
		opts.MaxLines = captions.DefaultMaxLines
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Orchestrator{
		opts:        opts,
		logger:      logging.NewComponentLogger(opts.Logger, "pipeline"),
		metrics:     metrics,
		results:     memo.New[CacheKey, Result](),
		transcripts: memo.New[transcriptKey, transcriptOutcome](),
		states:      make(map[CacheKey]State),
	}, nil
}

// Key derives the CacheKey for req without running anything.
func (o *Orchestrator) Key(ctx context.Context, req Request) (CacheKey, error) {
	req, err := o.normalize(req)
	if err != nil {
		return CacheKey{}, err
	}
	strategy, err := o.strategy(req.Source.Kind())
	if err != nil {
		return CacheKey{}, err
	}
	return o.deriveKey(ctx, strategy, req)
}

func (o *Orchestrator) deriveKey(ctx context.Context, strategy acquire.Strategy, req Request) (CacheKey, error) {
	identity, err := strategy.Identity(ctx, req.Source)
	if err != nil {
		return CacheKey{}, err
	}
	return CacheKey{
		Input:          identity,
		Task:           req.Task,
		ModelSize:      req.ModelSize,
		Target:         req.TargetLanguage,
		SourceLanguage: req.SourceLanguage,
		MaxLineWidth:   req.MaxLineWidth,
		MaxLines:       o.opts.MaxLines,
		Mux:            req.Mux,
	}, nil
}

// Run executes req, or returns the memoized result for its CacheKey.
// Concurrent identical requests share one execution. Stage failures are
// returned as *StageError.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	req, err := o.normalize(req)
	if err != nil {
		return Result{}, err
	}
	strategy, err := o.strategy(req.Source.Kind())
	if err != nil {
		return Result{}, err
	}
	key, err := o.deriveKey(ctx, strategy, req)
	if err != nil {
		return Result{}, &StageError{Stage: StageFetch, Err: err}
	}

	requestID := uuid.NewString()
	ctx = services.WithRequestID(ctx, requestID)
	ctx = services.WithCacheKey(ctx, key.Hash())
	logger := logging.WithContext(ctx, o.logger)

	result, shared, err := o.results.Do(ctx, key, func(runCtx context.Context) (Result, error) {
		return o.execute(runCtx, requestID, key, req, strategy)
	})
	if err != nil {
		return Result{}, err
	}
	if shared {
		o.metrics.cacheHit(key.Task)
		logger.Info("served from cache",
			logging.String(logging.FieldEventType, "cache_hit"),
			logging.String("task", string(key.Task)),
			logging.String("producer_request_id", result.RequestID),
		)
	}
	return result, nil
}

// State reports the latest state of key.
func (o *Orchestrator) State(key CacheKey) (State, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	state, ok := o.states[key]
	return state, ok
}

// Cached returns the completed result for key, if any.
func (o *Orchestrator) Cached(key CacheKey) (Result, bool) {
	return o.results.Get(key)
}

func (o *Orchestrator) strategy(kind acquire.Kind) (acquire.Strategy, error) {
	strategy, ok := o.opts.Strategies[kind]
	if !ok || strategy == nil {
		return nil, services.Wrap(services.ErrInvalidArgument, "pipeline", "select strategy",
			fmt.Sprintf("no acquisition strategy for %s sources", kind), nil)
	}
	return strategy, nil
}

// run tracks one execution of a CacheKey.
type run struct {
	id    string
	key   CacheKey
	input string
	state State
	dir   string
}

func (o *Orchestrator) execute(ctx context.Context, requestID string, key CacheKey, req Request, strategy acquire.Strategy) (Result, error) {
	o.metrics.inFlight.Inc()
	defer o.metrics.inFlight.Dec()

	r := &run{
		id:    requestID,
		key:   key,
		input: describeSource(req.Source),
		state: StateIdle,
		dir:   o.opts.Workspace.RunDir(key.Hash()),
	}
	o.setState(r.key, StateIdle)
	logger := logging.WithContext(ctx, o.logger)
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "pipeline_start"),
		logging.String("task", string(key.Task)),
		logging.String("model_size", key.ModelSize),
		logging.String("input", r.input),
	)

	result, err := o.stages(ctx, r, req, strategy)
	if err != nil {
		o.fail(ctx, r, err)
		return Result{}, err
	}
	result.Key = key
	result.RequestID = requestID
	result.CompletedAt = time.Now().UTC()
	o.transition(r, StateDone, "", false, nil)
	o.metrics.runFinished(key.Task, "done")
	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.String("output", result.OutputPath),
	)
	return result, nil
}

func (o *Orchestrator) stages(ctx context.Context, r *run, req Request, strategy acquire.Strategy) (Result, error) {
	dir := o.opts.Workspace.Links()
	if req.Source.Kind() != acquire.KindLink {
		dir = o.opts.Workspace.Uploads()
	}

	var artifacts acquire.Artifacts
	if err := o.runStage(ctx, r, StageFetch, func(ctx context.Context) error {
		var err error
		artifacts, err = strategy.Acquire(ctx, req.Source, dir)
		return err
	}); err != nil {
		return Result{}, &StageError{Stage: StageFetch, Err: err}
	}

	var transcript transcriptOutcome
	if err := o.runStage(ctx, r, StageTranscribe, func(ctx context.Context) error {
		var err error
		transcript, err = o.transcribe(ctx, r.key, req, artifacts)
		return err
	}); err != nil {
		return Result{}, &StageError{Stage: StageTranscribe, Err: err, FallbackMediaPath: artifacts.MediaPath}
	}

	result := Result{
		RawText:          transcript.Text,
		DetectedLanguage: transcript.DetectedLanguage,
		TranslatedFrom:   transcript.TranslatedFrom,
		MediaPath:        artifacts.MediaPath,
		AudioPath:        artifacts.AudioPath,
		Title:            artifacts.Title,
	}
	if err := o.runStage(ctx, r, StageCaption, func(ctx context.Context) error {
		return o.caption(ctx, r, transcript, &result)
	}); err != nil {
		return Result{}, &StageError{Stage: StageCaption, Err: err, FallbackMediaPath: artifacts.MediaPath}
	}

	switch {
	case !r.key.Mux:
		o.skipStage(ctx, r, StageMux, "muxing disabled")
	case !artifacts.HasVideo:
		o.skipStage(ctx, r, StageMux, "audio-only source")
	default:
		fallback := artifacts.MediaPath
		if err := o.runStage(ctx, r, StageMux, func(ctx context.Context) error {
			out, err := o.opts.Muxer.Mux(ctx, media.MuxRequest{
				VideoPath:   artifacts.MediaPath,
				AudioPath:   artifacts.AudioPath,
				CaptionPath: result.SRTPath,
				OutputPath:  runFile(r.dir, media.OutputName(artifacts.Title)),
			})
			if err != nil {
				if out != "" {
					fallback = out
				}
				return err
			}
			result.OutputPath = out
			return nil
		}); err != nil {
			return Result{}, &StageError{Stage: StageMux, Err: err, FallbackMediaPath: fallback}
		}
	}
	return result, nil
}

// runStage moves r into stage's state and runs fn with stage-scoped logging.
func (o *Orchestrator) runStage(ctx context.Context, r *run, stage Stage, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.transition(r, stage.state(), stage, false, nil)
	stageCtx := services.WithStage(ctx, string(stage))
	logger := logging.WithContext(stageCtx, o.logger)
	start := time.Now()
	logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))

	err := causeOf(ctx, fn(stageCtx))
	elapsed := time.Since(start)
	if err != nil {
		o.metrics.observeStage(stage, outcomeFor(err), elapsed)
		return err
	}
	o.metrics.observeStage(stage, "ok", elapsed)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

func (o *Orchestrator) skipStage(ctx context.Context, r *run, stage Stage, reason string) {
	o.transition(r, stage.state(), stage, true, nil)
	o.metrics.observeStage(stage, "skipped", 0)
	logging.Decision(logging.WithContext(services.WithStage(ctx, string(stage)), o.logger),
		"stage skipped", "stage_skip", "skipped", reason)
}

func (o *Orchestrator) fail(ctx context.Context, r *run, err error) {
	var stageErr *StageError
	stage := Stage("")
	if errors.As(err, &stageErr) {
		stage = stageErr.Stage
	}
	if rmErr := os.RemoveAll(r.dir); rmErr != nil {
		o.logger.Debug("run directory cleanup failed", logging.String("dir", r.dir), logging.Error(rmErr))
	}
	o.transition(r, StateFailed, stage, false, err)
	outcome := outcomeFor(err)
	o.metrics.runFinished(r.key.Task, outcome)

	logger := logging.WithContext(services.WithStage(ctx, string(stage)), o.logger)
	if outcome == "canceled" {
		logger.Info("pipeline canceled", logging.String(logging.FieldEventType, "pipeline_canceled"))
		return
	}
	logging.ErrorWithContext(logger, "pipeline failed", "pipeline_failure",
		logging.String("error_kind", services.Kind(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hintFor(err)),
	)
}

func (o *Orchestrator) transition(r *run, to State, stage Stage, skipped bool, err error) {
	if !canTransition(r.state, to) {
		o.logger.Error("illegal state transition",
			logging.String("from", string(r.state)),
			logging.String("to", string(to)),
			logging.String("request_id", r.id),
		)
		return
	}
	r.state = to
	o.setState(r.key, to)
	ev := Event{
		RequestID: r.id,
		Key:       r.key,
		Input:     r.input,
		State:     to,
		Stage:     stage,
		Skipped:   skipped,
		Err:       err,
		At:        time.Now().UTC(),
	}
	for _, observe := range o.opts.Observers {
		if observe != nil {
			observe(ev)
		}
	}
}

func (o *Orchestrator) setState(key CacheKey, state State) {
	o.mu.Lock()
	o.states[key] = state
	o.mu.Unlock()
}

// causeOf ties err to ctx's cancellation when ctx ended while the stage ran.
// Subprocess engines report a killed child rather than the context error.
func causeOf(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil || errors.Is(err, ctxErr) {
		return err
	}
	if err == nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", ctxErr, err)
}

func outcomeFor(err error) string {
	if services.IsCanceled(err) {
		return "canceled"
	}
	return "failed"
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "InvalidArgument", "UnsupportedLanguage":
		return "check the request parameters"
	case "AcquisitionFailed":
		return "check the link or file and that yt-dlp and ffmpeg are installed"
	case "TranscriptionFailed":
		return "check the speech engine configuration"
	case "TranslationFailed":
		return "check that the translation service is reachable"
	case "MuxFailed":
		return "the uncaptioned media is still available"
	}
	return "see the error for details"
}

func describeSource(src acquire.Source) string {
	if src.Link != "" {
		return src.Link
	}
	if src.Name != "" {
		return src.Name
	}
	return src.UploadPath
}
