package captions

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"sematube/internal/services"
)

func TestWrapSingleLineCues(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 2, Text: "Hello world"},
		{Start: 2, End: 5, Text: "this is a test"},
	}
	cues, err := Wrap(segments, 80)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	want := []Cue{
		{Start: 0, End: 2, Lines: []string{"Hello world"}},
		{Start: 2, End: 5, Lines: []string{"this is a test"}},
	}
	if !reflect.DeepEqual(cues, want) {
		t.Fatalf("cues = %+v, want %+v", cues, want)
	}
}

func TestWrapBreaksAtWordBoundaries(t *testing.T) {
	cues, err := Wrap([]Segment{{Start: 0, End: 2, Text: "Hello world"}}, 5)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if len(cues) != 1 {
		t.Fatalf("expected one cue, got %d", len(cues))
	}
	if !reflect.DeepEqual(cues[0].Lines, []string{"Hello", "world"}) {
		t.Fatalf("lines = %q", cues[0].Lines)
	}
}

func TestWrapRejectsNonPositiveWidth(t *testing.T) {
	for _, width := range []int{0, -3} {
		_, err := Wrap([]Segment{{Start: 0, End: 1, Text: "hi"}}, width)
		if !errors.Is(err, services.ErrInvalidArgument) {
			t.Fatalf("width %d: expected ErrInvalidArgument, got %v", width, err)
		}
	}
}

func TestWrapEmptyInputs(t *testing.T) {
	cues, err := Wrap(nil, 10)
	if err != nil || len(cues) != 0 {
		t.Fatalf("Wrap(nil) = %v, %v", cues, err)
	}
	cues, err = Wrap([]Segment{{Start: 0, End: 1, Text: "   \t"}, {Start: 1, End: 2, Text: "kept"}}, 10)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if len(cues) != 1 || cues[0].Lines[0] != "kept" {
		t.Fatalf("expected blank segment skipped, got %+v", cues)
	}
}

func TestWrapNeverSplitsLongWord(t *testing.T) {
	cues, err := Wrap([]Segment{{Start: 0, End: 1, Text: "a supercalifragilistic b"}}, 4)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	var lines []string
	for _, c := range cues {
		lines = append(lines, c.Lines...)
	}
	want := []string{"a", "supercalifragilistic", "b"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
}

func TestWrapContinuationCuesProportional(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []Cue
	}{
		{
			name:  "even split",
			text:  "aaaa bbbb cccc dddd",
			width: 4,
			want: []Cue{
				{Start: 0, End: 5, Lines: []string{"aaaa", "bbbb"}},
				{Start: 5, End: 10, Lines: []string{"cccc", "dddd"}},
			},
		},
		{
			name:  "weighted by characters",
			text:  "aa bb cccccc",
			width: 2,
			want: []Cue{
				{Start: 0, End: 4, Lines: []string{"aa", "bb"}},
				{Start: 4, End: 10, Lines: []string{"cccccc"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues, err := Wrap([]Segment{{Start: 0, End: 10, Text: tt.text}}, tt.width)
			if err != nil {
				t.Fatalf("Wrap: %v", err)
			}
			if !reflect.DeepEqual(cues, tt.want) {
				t.Fatalf("cues = %+v, want %+v", cues, tt.want)
			}
		})
	}
}

func TestWrapUsesWordTimings(t *testing.T) {
	seg := Segment{
		Start: 0, End: 10, Text: "one two three four",
		Words: []Word{
			{Text: " one", Start: 0, End: 1},
			{Text: " two", Start: 1, End: 2},
			{Text: " three", Start: 2.5, End: 4},
			{Text: " four", Start: 6, End: 9},
		},
	}
	cues, err := Wrap([]Segment{seg}, 3)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	want := []Cue{
		{Start: 0, End: 2.5, Lines: []string{"one", "two"}},
		{Start: 2.5, End: 10, Lines: []string{"three", "four"}},
	}
	if !reflect.DeepEqual(cues, want) {
		t.Fatalf("cues = %+v, want %+v", cues, want)
	}
}

func TestWrapIgnoresMismatchedWords(t *testing.T) {
	seg := Segment{
		Start: 0, End: 10, Text: "aaaa bbbb cccc dddd",
		Words: []Word{{Text: "something", Start: 0, End: 1}},
	}
	cues, err := Wrap([]Segment{seg}, 4)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if len(cues) != 2 || cues[0].End != 5 {
		t.Fatalf("expected proportional split, got %+v", cues)
	}
}

func TestWrapWithUnlimitedLines(t *testing.T) {
	cues, err := WrapWithOptions([]Segment{{Start: 0, End: 10, Text: "aaaa bbbb cccc dddd"}}, Options{MaxLineWidth: 4})
	if err != nil {
		t.Fatalf("WrapWithOptions: %v", err)
	}
	if len(cues) != 1 || len(cues[0].Lines) != 4 {
		t.Fatalf("expected one four-line cue, got %+v", cues)
	}
}

func TestWrapRewritesTimingArrow(t *testing.T) {
	cues, err := Wrap([]Segment{{Start: 0, End: 1, Text: "a --> b x--->y"}}, 80)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if got := cues[0].Lines[0]; got != "a -> b x->y" {
		t.Fatalf("line = %q", got)
	}
}

func TestWrapMeasuresRunes(t *testing.T) {
	cues, err := Wrap([]Segment{{Start: 0, End: 1, Text: "héllo wörld"}}, 5)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if !reflect.DeepEqual(cues[0].Lines, []string{"héllo", "wörld"}) {
		t.Fatalf("lines = %q", cues[0].Lines)
	}
}

func TestWrapClampsInvertedSegment(t *testing.T) {
	cues, err := Wrap([]Segment{{Start: 3, End: 1, Text: "late"}}, 10)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if cues[0].End < cues[0].Start {
		t.Fatalf("cue ends before start: %+v", cues[0])
	}
}

var vocabulary = []string{
	"a", "to", "the", "caption", "subtitle", "über", "timing", "pipeline",
	"extraordinarily", "x", "wrap", "line", "café", "internationalization",
}

func randomSegments(r *rand.Rand, n int) []Segment {
	segments := make([]Segment, 0, n)
	at := 0.0
	for range n {
		start := at + r.Float64()*2
		end := start + 0.2 + r.Float64()*8
		words := make([]string, r.IntN(30))
		for j := range words {
			words[j] = vocabulary[r.IntN(len(vocabulary))]
		}
		segments = append(segments, Segment{Start: start, End: end, Text: strings.Join(words, " ")})
		at = end
	}
	return segments
}

func TestWrapProperties(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	for iter := range 200 {
		segments := randomSegments(r, 1+r.IntN(12))
		width := 1 + r.IntN(40)

		cues, err := Wrap(segments, width)
		if err != nil {
			t.Fatalf("iter %d: Wrap: %v", iter, err)
		}
		again, _ := Wrap(segments, width)
		if !reflect.DeepEqual(cues, again) {
			t.Fatalf("iter %d: Wrap is not deterministic", iter)
		}

		prevStart := -1.0
		for _, cue := range cues {
			if cue.End < cue.Start {
				t.Fatalf("iter %d: cue ends before start: %+v", iter, cue)
			}
			if cue.Start < prevStart {
				t.Fatalf("iter %d: cue starts decrease: %v after %v", iter, cue.Start, prevStart)
			}
			prevStart = cue.Start
			if len(cue.Lines) > DefaultMaxLines {
				t.Fatalf("iter %d: cue has %d lines", iter, len(cue.Lines))
			}
			for _, l := range cue.Lines {
				if utf8.RuneCountInString(l) > width && strings.Contains(l, " ") {
					t.Fatalf("iter %d: line %q exceeds width %d", iter, l, width)
				}
			}
		}
	}
}

func TestWrapContinuationsAreGapless(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	for iter := range 100 {
		seg := randomSegments(r, 1)[0]
		cues, err := Wrap([]Segment{seg}, 1+r.IntN(10))
		if err != nil {
			t.Fatalf("Wrap: %v", err)
		}
		if len(cues) == 0 {
			continue
		}
		if cues[0].Start != seg.Start || cues[len(cues)-1].End != seg.End {
			t.Fatalf("iter %d: cues do not cover segment envelope", iter)
		}
		for i := 1; i < len(cues); i++ {
			if cues[i].Start != cues[i-1].End {
				t.Fatalf("iter %d: gap between continuation cues %+v and %+v", iter, cues[i-1], cues[i])
			}
		}
	}
}
