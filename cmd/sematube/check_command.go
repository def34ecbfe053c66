package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sematube/internal/config"
	"sematube/internal/deps"
	"sematube/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipNetwork bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, directories and remote services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			statuses := preflight.CheckSystemDeps(cfg)
			lines := renderSectionHeader("Binaries", colorize)
			lines = append(lines, dependencyLines(statuses, colorize)...)

			results := []preflight.Result{
				preflight.CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
				preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
			}
			if !skipNetwork {
				results = preflight.RunAll(cmd.Context(), cfg)
			}
			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Environment", colorize)...)
			lines = append(lines, checkLines(results, colorize)...)

			lines = append(lines, "")
			lines = append(lines, renderSectionHeader("Settings", colorize)...)
			lines = append(lines,
				renderStatusLine("Config", statusInfo, configLabel(ctx.configPath, ctx.configSeen), colorize),
				renderStatusLine("Speech engine", statusInfo, cfg.Transcription.Engine, colorize),
				renderStatusLine("Default model", statusInfo, cfg.Transcription.DefaultModel, colorize),
				renderStatusLine("Burn-in", statusInfo, yesNo(cfg.Media.Mux), colorize),
			)

			for _, line := range lines {
				fmt.Fprintln(out, line)
			}

			failed := 0
			for _, r := range results {
				if !r.Passed {
					failed++
				}
			}
			missing := deps.Missing(statuses)
			if len(missing) > 0 || failed > 0 {
				return fmt.Errorf("check failed: %d missing binaries, %d failed checks", len(missing), failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipNetwork, "offline", false, "Skip the translation and speech endpoint checks")
	return cmd
}

func preflightMissing(cfg *config.Config) []string {
	var names []string
	for _, s := range deps.Missing(preflight.CheckSystemDeps(cfg)) {
		names = append(names, s.Name)
	}
	return names
}

func configLabel(path string, exists bool) string {
	if strings.TrimSpace(path) == "" || !exists {
		return "defaults (no config file)"
	}
	return path
}
