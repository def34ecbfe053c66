package language

import (
	"slices"
	"testing"
)

func TestLookupSpeech(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
		wantOK   bool
	}{
		{"en", "en", true},
		{"EN", "en", true},
		{"english", "en", true},
		{"French", "fr", true},
		{"haitian creole", "ht", true},
		{"Haitian  Creole", "ht", true},
		{"haw", "haw", true},
		{"yue", "yue", true},
		{"burmese", "my", true},
		{"mandarin", "zh", true},
		{"fra_Latn", "", false},
		{"xx", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := LookupSpeech(tt.input)
			if ok != tt.wantOK || got.Code != tt.wantCode {
				t.Fatalf("LookupSpeech(%q) = %+v, %v; want code %q, %v", tt.input, got, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}

func TestLookupTranslation(t *testing.T) {
	tests := []struct {
		input    string
		wantCode string
		wantOK   bool
	}{
		{"French", "fra_Latn", true},
		{"french", "fra_Latn", true},
		{"fra_Latn", "fra_Latn", true},
		{"FRA_LATN", "fra_Latn", true},
		{"Chinese (Simplified)", "zho_Hans", true},
		{"Swahili", "swh_Latn", true},
		{"eng_Latn", "eng_Latn", true},
		{"fr", "", false},
		{"Klingon", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := LookupTranslation(tt.input)
			if ok != tt.wantOK || got.Code != tt.wantCode {
				t.Fatalf("LookupTranslation(%q) = %+v, %v; want code %q, %v", tt.input, got, ok, tt.wantCode, tt.wantOK)
			}
		})
	}
}

func TestDefaultTargetResolves(t *testing.T) {
	if _, ok := LookupTranslation(DefaultTranslationTarget); !ok {
		t.Fatalf("default target %q missing from translation table", DefaultTranslationTarget)
	}
}

func TestSpeechDisplayName(t *testing.T) {
	s, _ := LookupSpeech("ht")
	if got := s.DisplayName(); got != "Haitian Creole" {
		t.Fatalf("DisplayName = %q", got)
	}
}

func TestTablesHaveUniqueCodes(t *testing.T) {
	seen := map[string]bool{}
	for _, s := range speechTable {
		if seen[s.Code] {
			t.Fatalf("duplicate speech code %q", s.Code)
		}
		seen[s.Code] = true
	}
	seen = map[string]bool{}
	for _, tr := range translationTable {
		if seen[tr.Code] {
			t.Fatalf("duplicate translation code %q", tr.Code)
		}
		seen[tr.Code] = true
	}
}

func TestListsAreSorted(t *testing.T) {
	speech := SpeechLanguages()
	if len(speech) != len(speechTable) {
		t.Fatalf("SpeechLanguages returned %d entries", len(speech))
	}
	if !slices.IsSortedFunc(speech, func(a, b Speech) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	}) {
		t.Fatal("speech languages not sorted")
	}
	tr := TranslationLanguages()
	if tr[0].Name != "Acehnese (Arabic script)" {
		t.Fatalf("first translation language = %q", tr[0].Name)
	}
}

func TestSuggest(t *testing.T) {
	if got := Suggest("frnch", 3); len(got) == 0 || got[0] != "French" {
		t.Fatalf("Suggest(frnch) = %v", got)
	}
	if got := Suggest("Spanich", 3); !slices.Contains(got, "Spanish") {
		t.Fatalf("Suggest(Spanich) = %v", got)
	}
	if got := Suggest("", 3); got != nil {
		t.Fatalf("expected nil for empty query, got %v", got)
	}
	if got := Suggest("arabic", 2); len(got) > 2 {
		t.Fatalf("Suggest returned more than n results: %v", got)
	}
}
