package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sematube/internal/acquire"
	"sematube/internal/config"
	"sematube/internal/fileutil"
	"sematube/internal/media"
	"sematube/internal/pipeline"
)

type captionFlags struct {
	task       string
	model      string
	target     string
	sourceLang string
	captions   string
	name       string
	output     string
	width      int
	noMux      bool
	jsonOutput bool
}

func newCaptionCommand(ctx *commandContext) *cobra.Command {
	var flags captionFlags

	cmd := &cobra.Command{
		Use:   "caption <link|file>",
		Short: "Transcribe a video or audio source and write captions",
		Long: "Acquire a linked or local source, transcribe it, lay the transcript out as\n" +
			"VTT and SRT captions, and burn the captions into the video unless --no-mux\n" +
			"is set. Tasks: transcribe, translate (speech model to English), sema\n" +
			"(translation service to --target), burn (requires --captions).",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildCaptionRequest(args[0], flags)
			if err != nil {
				return err
			}
			return runCaption(cmd, ctx, req, flags.output, flags.jsonOutput)
		},
	}

	cmd.Flags().StringVar(&flags.task, "task", "", "Pipeline task: transcribe, translate, sema or burn")
	cmd.Flags().StringVarP(&flags.model, "model", "m", "", "Speech model size (tiny, base, small, medium, large)")
	cmd.Flags().StringVarP(&flags.target, "target", "t", "", "Target language for the sema task (name or code)")
	cmd.Flags().StringVar(&flags.sourceLang, "source-lang", "", "Source language for the sema task; detected when empty")
	cmd.Flags().StringVar(&flags.captions, "captions", "", "Existing VTT or SRT file to burn in (implies --task burn)")
	cmd.Flags().StringVar(&flags.name, "name", "", "Display name for the source; defaults to its metadata title")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Directory for the published artifacts (defaults to paths.output_dir)")
	cmd.Flags().IntVarP(&flags.width, "width", "w", 0, "Maximum characters per caption line (defaults to captions.max_line_width)")
	cmd.Flags().BoolVar(&flags.noMux, "no-mux", false, "Skip burning captions into the video")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func newBurnCommand(ctx *commandContext) *cobra.Command {
	var output string
	var width int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "burn <video> <captions>",
		Short: "Burn an existing caption file into a video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildCaptionRequest(args[0], captionFlags{
				task:     string(pipeline.TaskBurn),
				captions: args[1],
				width:    width,
			})
			if err != nil {
				return err
			}
			return runCaption(cmd, ctx, req, output, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Directory for the published artifacts (defaults to paths.output_dir)")
	cmd.Flags().IntVarP(&width, "width", "w", 0, "Maximum characters per caption line")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

func buildCaptionRequest(input string, flags captionFlags) (pipeline.Request, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return pipeline.Request{}, errors.New("a link or file is required")
	}

	var src acquire.Source
	if isLink(input) {
		src.Link = input
	} else {
		path, err := existingFile(input)
		if err != nil {
			return pipeline.Request{}, err
		}
		src.UploadPath = path
	}
	src.Name = strings.TrimSpace(flags.name)

	task := strings.TrimSpace(flags.task)
	if flags.captions != "" {
		path, err := existingFile(flags.captions)
		if err != nil {
			return pipeline.Request{}, err
		}
		src.CaptionPath = path
		if task == "" {
			task = string(pipeline.TaskBurn)
		}
	}
	parsed, err := pipeline.ParseTask(task)
	if err != nil {
		return pipeline.Request{}, err
	}

	return pipeline.Request{
		Source:         src,
		Task:           parsed,
		ModelSize:      flags.model,
		TargetLanguage: flags.target,
		SourceLanguage: flags.sourceLang,
		MaxLineWidth:   flags.width,
		Mux:            !flags.noMux,
	}, nil
}

func isLink(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func existingFile(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("inspect %q: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", expanded)
	}
	return expanded, nil
}

// artifact is one published output file.
type artifact struct {
	Label string `json:"label"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
}

type captionOutput struct {
	Result    pipeline.Result `json:"result"`
	Artifacts []artifact      `json:"artifacts"`
}

func runCaption(cmd *cobra.Command, ctx *commandContext, req pipeline.Request, outputDir string, jsonOutput bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	if strings.TrimSpace(outputDir) == "" {
		outputDir = cfg.Paths.OutputDir
	} else if outputDir, err = config.ExpandPath(outputDir); err != nil {
		return err
	}

	progress := newStageProgress(cmd.ErrOrStderr(), !jsonOutput && shouldColorize(cmd.ErrOrStderr()))
	rt, err := buildRuntime(cfg, logger, runtimeOptions{observers: []pipeline.Observer{progress.observe}})
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.workspace.Lock(); err != nil {
		return fmt.Errorf("lock %s: %w", rt.workspace.Root(), err)
	}
	defer func() { _ = rt.workspace.Unlock() }()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := rt.orchestrator.Run(runCtx, req)
	if err != nil {
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) && stageErr.FallbackMediaPath != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Uncaptioned media remains at %s\n", stageErr.FallbackMediaPath)
		}
		return err
	}

	artifacts, err := publishArtifacts(result, outputDir)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, captionOutput{Result: result, Artifacts: artifacts})
	}
	printCaptionSummary(cmd.OutOrStdout(), result, artifacts)
	return nil
}

// publishArtifacts copies the run's files into dir under title-based names.
func publishArtifacts(result pipeline.Result, dir string) ([]artifact, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	base := media.SanitizeName(result.Title)
	sources := []struct {
		label string
		src   string
		name  string
	}{
		{"Captions (VTT)", result.VTTPath, base + ".vtt"},
		{"Captions (SRT)", result.SRTPath, base + ".srt"},
		{"Transcript", result.TextPath, base + ".txt"},
		{"Captioned video", result.OutputPath, filepath.Base(result.OutputPath)},
	}
	var out []artifact
	for _, s := range sources {
		if s.src == "" {
			continue
		}
		dest := filepath.Join(dir, s.name)
		size, err := fileutil.CopyAtomic(s.src, dest)
		if err != nil {
			return nil, fmt.Errorf("publish %s: %w", s.label, err)
		}
		out = append(out, artifact{Label: s.label, Path: dest, Size: size})
	}
	return out, nil
}

func printCaptionSummary(w io.Writer, result pipeline.Result, artifacts []artifact) {
	fmt.Fprintf(w, "Title: %s\n", result.Title)
	if result.DetectedLanguage != "" {
		fmt.Fprintf(w, "Detected language: %s\n", result.DetectedLanguage)
	}
	if result.TranslatedFrom != "" {
		fmt.Fprintf(w, "Translated from: %s\n", result.TranslatedFrom)
	}
	fmt.Fprintf(w, "Captioned video: %s\n", yesNo(result.OutputPath != ""))

	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		rows = append(rows, []string{a.Label, a.Path, humanize.Bytes(uint64(a.Size))})
	}
	fmt.Fprintln(w, renderTable([]string{"Artifact", "Path", "Size"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
}
