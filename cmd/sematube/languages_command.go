package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sematube/internal/language"
)

const (
	spaceSpeech      = "speech"
	spaceTranslation = "translation"
)

func newLanguagesCommand() *cobra.Command {
	var space string

	cmd := &cobra.Command{
		Use:         "languages [filter]",
		Short:       "List supported speech or translation languages",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = strings.ToLower(strings.TrimSpace(args[0]))
			}
			rows, err := languageRows(space, filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintf(out, "No %s languages match %q\n", space, filter)
				if suggestions := language.Suggest(filter, 3); len(suggestions) > 0 {
					fmt.Fprintf(out, "Did you mean: %s\n", strings.Join(suggestions, ", "))
				}
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Code", "Name"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&space, "space", spaceTranslation, "Language space: speech or translation")
	return cmd
}

func languageRows(space, filter string) ([][]string, error) {
	matches := func(code, name string) bool {
		return filter == "" ||
			strings.Contains(strings.ToLower(name), filter) ||
			strings.EqualFold(code, filter)
	}
	var rows [][]string
	switch strings.ToLower(strings.TrimSpace(space)) {
	case spaceSpeech:
		for _, l := range language.SpeechLanguages() {
			if matches(l.Code, l.Name) {
				rows = append(rows, []string{l.Code, l.DisplayName()})
			}
		}
	case spaceTranslation, "":
		for _, l := range language.TranslationLanguages() {
			if matches(l.Code, l.Name) {
				rows = append(rows, []string{l.Code, l.Name})
			}
		}
	default:
		return nil, fmt.Errorf("unknown language space %q (want %s or %s)", space, spaceSpeech, spaceTranslation)
	}
	return rows, nil
}
