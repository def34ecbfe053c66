package preflight

import (
	"context"

	"sematube/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory and endpoint checks applicable to cfg.
// Binary checks are reported separately by CheckSystemDeps.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckTranslationService(ctx, cfg.Translation.BaseURL),
	}
	if cfg.Transcription.Engine == config.EngineOpenAI {
		results = append(results, CheckSpeechEndpoint(ctx, cfg.Transcription.OpenAIBaseURL, cfg.Transcription.OpenAIAPIKey))
	}
	return results
}
