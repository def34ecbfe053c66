package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sematube/internal/captions"
	"sematube/internal/config"
)

func newFormatCommand() *cobra.Command {
	var width int
	var lines int
	var format string
	var output string

	cmd := &cobra.Command{
		Use:         "format <captions-file>",
		Short:       "Re-wrap an existing VTT or SRT file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := existingFile(args[0])
			if err != nil {
				return err
			}
			segments, err := captions.ParseFile(path)
			if err != nil {
				return err
			}

			target, err := captions.DetectFormat(path)
			if err != nil {
				return err
			}
			if strings.TrimSpace(format) != "" {
				if target, err = captions.ParseFormat(format); err != nil {
					return err
				}
			}

			cues, err := captions.WrapWithOptions(segments, captions.Options{MaxLineWidth: width, MaxLines: lines})
			if err != nil {
				return err
			}
			rendered, err := captions.Render(target, cues)
			if err != nil {
				return err
			}

			if strings.TrimSpace(output) == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
				return err
			}
			dest, err := config.ExpandPath(output)
			if err != nil {
				return err
			}
			if err := os.WriteFile(dest, []byte(rendered), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dest, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s\n", len(cues), dest)
			return nil
		},
	}

	cmd.Flags().IntVarP(&width, "width", "w", captions.DefaultMaxLineWidth, "Maximum characters per line")
	cmd.Flags().IntVarP(&lines, "lines", "l", captions.DefaultMaxLines, "Maximum lines per cue; 0 keeps each segment in one cue")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: vtt or srt (defaults to the input format)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
