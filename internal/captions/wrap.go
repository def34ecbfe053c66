package captions

import (
	"strings"
	"unicode/utf8"

	"sematube/internal/services"
)

// token is one wrap unit. Timed tokens come from word spans.
type token struct {
	text  string
	width int
	start float64
	timed bool
}

// Wrap converts segments into cues with at most DefaultMaxLines lines each.
func Wrap(segments []Segment, maxLineWidth int) ([]Cue, error) {
	return WrapWithOptions(segments, Options{MaxLineWidth: maxLineWidth, MaxLines: DefaultMaxLines})
}

// WrapWithOptions converts segments into cues using the given layout.
//
// Words are accumulated greedily into lines of at most MaxLineWidth runes; a
// single word wider than the limit gets a line of its own and is never split.
// When a segment needs more than MaxLines lines the overflow becomes
// continuation cues that share the segment's time envelope without gaps.
func WrapWithOptions(segments []Segment, opts Options) ([]Cue, error) {
	if opts.MaxLineWidth < 1 {
		return nil, services.Wrap(services.ErrInvalidArgument, "captions", "wrap", "max line width must be at least 1", nil)
	}

	cues := make([]Cue, 0, len(segments))
	for _, seg := range segments {
		tokens := segmentTokens(seg)
		if len(tokens) == 0 {
			continue
		}
		start, end := seg.Start, seg.End
		if end < start {
			end = start
		}

		lines := layoutLines(tokens, opts.MaxLineWidth)
		groups := groupLines(lines, opts.MaxLines)
		bounds := groupBounds(groups, start, end)
		for i, group := range groups {
			cue := Cue{Start: bounds[i], End: bounds[i+1], Lines: make([]string, 0, len(group))}
			for _, line := range group {
				cue.Lines = append(cue.Lines, line.text())
			}
			cues = append(cues, cue)
		}
	}
	return cues, nil
}

// segmentTokens prefers word spans when they spell the same text as the
// segment, falling back to whitespace-split text.
func segmentTokens(seg Segment) []token {
	fields := strings.Fields(seg.Text)
	if len(seg.Words) > 0 {
		if tokens, ok := wordTokens(seg, fields); ok {
			return tokens
		}
	}
	tokens := make([]token, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, newToken(f))
	}
	return tokens
}

func wordTokens(seg Segment, fields []string) ([]token, bool) {
	tokens := make([]token, 0, len(seg.Words))
	for _, w := range seg.Words {
		for _, f := range strings.Fields(w.Text) {
			if len(tokens) >= len(fields) || fields[len(tokens)] != f {
				return nil, false
			}
			tok := newToken(f)
			tok.start = clamp(w.Start, seg.Start, max(seg.End, seg.Start))
			tok.timed = true
			tokens = append(tokens, tok)
		}
	}
	if len(tokens) != len(fields) {
		return nil, false
	}
	return tokens, true
}

func newToken(text string) token {
	text = sanitizeArrow(text)
	return token{text: text, width: utf8.RuneCountInString(text)}
}

// sanitizeArrow rewrites "-->" so cue text can never read as a timing line.
func sanitizeArrow(text string) string {
	for strings.Contains(text, "-->") {
		text = strings.ReplaceAll(text, "-->", "->")
	}
	return text
}

type line struct {
	tokens []token
	width  int
}

func (l line) text() string {
	parts := make([]string, len(l.tokens))
	for i, t := range l.tokens {
		parts[i] = t.text
	}
	return strings.Join(parts, " ")
}

func layoutLines(tokens []token, maxWidth int) []line {
	var lines []line
	var cur line
	for _, tok := range tokens {
		if len(cur.tokens) > 0 && cur.width+1+tok.width > maxWidth {
			lines = append(lines, cur)
			cur = line{}
		}
		if len(cur.tokens) > 0 {
			cur.width++
		}
		cur.tokens = append(cur.tokens, tok)
		cur.width += tok.width
	}
	if len(cur.tokens) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

func groupLines(lines []line, maxLines int) [][]line {
	if maxLines <= 0 || len(lines) <= maxLines {
		return [][]line{lines}
	}
	groups := make([][]line, 0, (len(lines)+maxLines-1)/maxLines)
	for i := 0; i < len(lines); i += maxLines {
		groups = append(groups, lines[i:min(i+maxLines, len(lines))])
	}
	return groups
}

// groupBounds returns len(groups)+1 monotonic boundaries from start to end.
// Word timings decide the split points when every group opens with a timed
// token; otherwise the envelope is divided in proportion to character count.
func groupBounds(groups [][]line, start, end float64) []float64 {
	bounds := make([]float64, len(groups)+1)
	bounds[0] = start
	bounds[len(groups)] = end
	if len(groups) == 1 {
		return bounds
	}

	if timedGroups(groups) {
		for i := 1; i < len(groups); i++ {
			bounds[i] = clamp(groups[i][0].tokens[0].start, bounds[i-1], end)
		}
		return bounds
	}

	widths := make([]int, len(groups))
	total := 0
	for i, group := range groups {
		for _, l := range group {
			widths[i] += l.width
		}
		total += widths[i]
	}
	span := end - start
	cum := 0
	for i := 1; i < len(groups); i++ {
		cum += widths[i-1]
		bounds[i] = clamp(start+span*float64(cum)/float64(total), bounds[i-1], end)
	}
	return bounds
}

func timedGroups(groups [][]line) bool {
	for _, group := range groups {
		if !group[0].tokens[0].timed {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
