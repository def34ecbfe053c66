package captions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"sematube/internal/services"
)

const vttHeader = "WEBVTT\n\n"

// RenderVTT serializes cues as a WebVTT document.
func RenderVTT(cues []Cue) string {
	var b strings.Builder
	b.WriteString(vttHeader)
	for _, cue := range cues {
		b.WriteString(formatTimestamp(cue.Start, '.'))
		b.WriteString(" --> ")
		b.WriteString(formatTimestamp(cue.End, '.'))
		b.WriteByte('\n')
		writeLines(&b, cue.Lines)
	}
	return b.String()
}

// RenderSRT serializes cues as a SubRip document. No cues yields "".
func RenderSRT(cues []Cue) string {
	var b strings.Builder
	for i, cue := range cues {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(formatTimestamp(cue.Start, ','))
		b.WriteString(" --> ")
		b.WriteString(formatTimestamp(cue.End, ','))
		b.WriteByte('\n')
		writeLines(&b, cue.Lines)
	}
	return b.String()
}

// FormatVTT wraps segments and renders them as WebVTT.
func FormatVTT(segments []Segment, maxLineWidth int) (string, error) {
	cues, err := Wrap(segments, maxLineWidth)
	if err != nil {
		return "", err
	}
	return RenderVTT(cues), nil
}

// FormatSRT wraps segments and renders them as SubRip.
func FormatSRT(segments []Segment, maxLineWidth int) (string, error) {
	cues, err := Wrap(segments, maxLineWidth)
	if err != nil {
		return "", err
	}
	return RenderSRT(cues), nil
}

// Render serializes cues in the requested format.
func Render(format Format, cues []Cue) (string, error) {
	switch format {
	case VTT:
		return RenderVTT(cues), nil
	case SRT:
		return RenderSRT(cues), nil
	default:
		return "", services.Wrap(services.ErrInvalidArgument, "captions", "render", fmt.Sprintf("unknown caption format %q", format), nil)
	}
}

func writeLines(b *strings.Builder, lines []string) {
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

// formatTimestamp renders HH:MM:SS<sep>mmm rounded to the nearest millisecond.
// Hours keep counting past 99.
func formatTimestamp(seconds float64, sep byte) string {
	ms := int64(math.Round(seconds * 1000))
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	ms -= hours * 3_600_000
	minutes := ms / 60_000
	ms -= minutes * 60_000
	secs := ms / 1000
	ms -= secs * 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, secs, sep, ms)
}
