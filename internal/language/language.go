package language

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	xlanguage "golang.org/x/text/language"
)

// DefaultTranslationTarget is the target offered when none is configured.
const DefaultTranslationTarget = "French"

// Speech is a language in the speech model's code space.
type Speech struct {
	Code string // "en", "haw", "yue"
	Name string // lowercase English name, e.g. "english"
}

// IsZero reports whether s is the empty value.
func (s Speech) IsZero() bool { return s.Code == "" }

// DisplayName returns the title-cased name ("Haitian Creole").
func (s Speech) DisplayName() string {
	return titleCaser.String(s.Name)
}

// Translation is a language in the translation service's FLORES-200 code space.
type Translation struct {
	Code string // "fra_Latn"
	Name string // "French"
}

// IsZero reports whether t is the empty value.
func (t Translation) IsZero() bool { return t.Code == "" }

var titleCaser = cases.Title(xlanguage.English)

var (
	speechByKey      map[string]Speech
	translationByKey map[string]Translation
	translationNames []string
)

func init() {
	speechByKey = make(map[string]Speech, len(speechTable)*2+len(speechAliases))
	for _, s := range speechTable {
		speechByKey[s.Code] = s
		speechByKey[s.Name] = s
	}
	for alias, code := range speechAliases {
		speechByKey[alias] = speechByKey[code]
	}

	translationByKey = make(map[string]Translation, len(translationTable)*2)
	translationNames = make([]string, 0, len(translationTable))
	for _, t := range translationTable {
		translationByKey[strings.ToLower(t.Code)] = t
		translationByKey[strings.ToLower(t.Name)] = t
		translationNames = append(translationNames, t.Name)
	}
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.Join(strings.Fields(value), " "))
}

// LookupSpeech resolves a speech model code ("fr") or name ("French").
func LookupSpeech(codeOrName string) (Speech, bool) {
	key := normalizeKey(codeOrName)
	if key == "" {
		return Speech{}, false
	}
	s, ok := speechByKey[key]
	return s, ok
}

// LookupTranslation resolves a FLORES-200 code ("fra_Latn") or display name ("French").
func LookupTranslation(codeOrName string) (Translation, bool) {
	key := normalizeKey(codeOrName)
	if key == "" {
		return Translation{}, false
	}
	t, ok := translationByKey[key]
	return t, ok
}

// SpeechLanguages lists the speech table sorted by name.
func SpeechLanguages() []Speech {
	out := make([]Speech, len(speechTable))
	copy(out, speechTable)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TranslationLanguages lists the translation table sorted by name.
func TranslationLanguages() []Translation {
	out := make([]Translation, len(translationTable))
	copy(out, translationTable)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
