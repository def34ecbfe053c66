package captions

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sematube/internal/services"
)

// ParseFile reads a VTT or SRT document, choosing the format by extension.
func ParseFile(path string) ([]Segment, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidArgument, "captions", "read caption file", path, err)
	}
	return Parse(format, data)
}

// Parse decodes a caption document into segments, one per cue. Cue lines are
// joined with spaces so the result can be re-wrapped at another width.
func Parse(format Format, data []byte) ([]Segment, error) {
	if format != VTT && format != SRT {
		return nil, services.Wrap(services.ErrInvalidArgument, "captions", "parse", fmt.Sprintf("unknown caption format %q", format), nil)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var segments []Segment
	for i, block := range splitBlocks(text) {
		if format == VTT && i == 0 && strings.HasPrefix(block[0], "WEBVTT") {
			continue
		}
		if format == VTT && isVTTMetadata(block[0]) {
			continue
		}
		seg, ok, err := parseBlock(block)
		if err != nil {
			return nil, err
		}
		if ok {
			segments = append(segments, seg)
		}
	}
	return segments, nil
}

func splitBlocks(text string) [][]string {
	var blocks [][]string
	var cur []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, strings.TrimRight(l, " \t"))
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks
}

func isVTTMetadata(first string) bool {
	for _, prefix := range []string{"NOTE", "STYLE", "REGION"} {
		if first == prefix || strings.HasPrefix(first, prefix+" ") || strings.HasPrefix(first, prefix+"\t") {
			return true
		}
	}
	return false
}

// parseBlock accepts an optional identifier line before the timing line.
func parseBlock(block []string) (Segment, bool, error) {
	timing := -1
	for i := 0; i < len(block) && i < 2; i++ {
		if strings.Contains(block[i], "-->") {
			timing = i
			break
		}
	}
	if timing < 0 {
		return Segment{}, false, malformed(fmt.Sprintf("cue without timing line: %q", block[0]))
	}

	start, end, err := parseTiming(block[timing])
	if err != nil {
		return Segment{}, false, err
	}
	text := strings.Join(strings.Fields(strings.Join(block[timing+1:], " ")), " ")
	if text == "" {
		return Segment{}, false, nil
	}
	return Segment{Start: start, End: end, Text: text}, true, nil
}

func parseTiming(value string) (float64, float64, error) {
	left, right, _ := strings.Cut(value, "-->")
	rightFields := strings.Fields(right)
	if len(rightFields) == 0 {
		return 0, 0, malformed(fmt.Sprintf("timing line %q", value))
	}
	start, err := parseTimestamp(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(rightFields[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, malformed(fmt.Sprintf("cue ends before it starts: %q", value))
	}
	return start, end, nil
}

// parseTimestamp accepts HH:MM:SS.mmm, HH:MM:SS,mmm, and MM:SS.mmm.
func parseTimestamp(value string) (float64, error) {
	clock, frac, ok := strings.Cut(strings.Replace(value, ",", ".", 1), ".")
	if !ok || frac == "" || len(frac) > 3 {
		return 0, malformed(fmt.Sprintf("timestamp %q", value))
	}
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, malformed(fmt.Sprintf("timestamp %q", value))
	}
	var hours, minutes, seconds int64
	var err error
	if len(parts) == 3 {
		if hours, err = parseUnsigned(parts[0]); err != nil {
			return 0, malformed(fmt.Sprintf("timestamp %q", value))
		}
		parts = parts[1:]
	}
	if minutes, err = parseUnsigned(parts[0]); err != nil || minutes > 59 {
		return 0, malformed(fmt.Sprintf("timestamp %q", value))
	}
	if seconds, err = parseUnsigned(parts[1]); err != nil || seconds > 59 {
		return 0, malformed(fmt.Sprintf("timestamp %q", value))
	}
	millis, err := parseUnsigned(frac + strings.Repeat("0", 3-len(frac)))
	if err != nil {
		return 0, malformed(fmt.Sprintf("timestamp %q", value))
	}
	total := ((hours*60+minutes)*60+seconds)*1000 + millis
	return float64(total) / 1000, nil
}

func parseUnsigned(value string) (int64, error) {
	if value == "" || strings.ContainsAny(value, "+-") {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(value, 10, 64)
}

func malformed(detail string) error {
	return services.Wrap(services.ErrInvalidArgument, "captions", "parse", "malformed caption: "+detail, nil)
}
