package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sematube/internal/language"
	"sematube/internal/translation"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var target string
	var source string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "translate <text>...",
		Short: "Translate text with the Sema translation service",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.New("text to translate is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(target) == "" {
				target = cfg.Translation.DefaultTarget
			}
			if strings.TrimSpace(target) == "" {
				target = language.DefaultTranslationTarget
			}

			client := translation.NewClient(translation.Config{
				BaseURL:        cfg.Translation.BaseURL,
				TimeoutSeconds: cfg.Translation.TimeoutSeconds,
				Concurrency:    cfg.Translation.Concurrency,
			}, translation.WithLogger(logger))

			result, err := client.Translate(cmd.Context(), text, target, source)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, translateOutput{
					SourceLanguage: result.SourceLanguage,
					Target:         target,
					Text:           result.Text,
				})
			}
			out := cmd.OutOrStdout()
			if result.SourceLanguage != "" {
				fmt.Fprintf(out, "Source language: %s\n", result.SourceLanguage)
			}
			fmt.Fprintln(out, result.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "Target language (name or code)")
	cmd.Flags().StringVarP(&source, "source", "s", "", "Source language; detected when empty")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	return cmd
}

type translateOutput struct {
	SourceLanguage string `json:"source_language"`
	Target         string `json:"target"`
	Text           string `json:"translated_text"`
}
