package media

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"sematube/internal/services"
)

// ProbeResult is the subset of ffprobe's JSON report we read.
type ProbeResult struct {
	Streams []ProbeStream `json:"streams"`
	Format  ProbeFormat   `json:"format"`
}

// ProbeStream describes one stream in the container.
type ProbeStream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// ProbeFormat captures container-level metadata.
type ProbeFormat struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Info summarizes a probed media file.
type Info struct {
	DurationSeconds float64
	SizeBytes       int64
	HasVideo        bool
	HasAudio        bool
	FormatName      string
}

// Probe runs ffprobe against path.
func (t *Tool) Probe(ctx context.Context, path string) (Info, error) {
	result, err := t.Inspect(ctx, path)
	if err != nil {
		return Info{}, err
	}
	return Info{
		DurationSeconds: result.DurationSeconds(),
		SizeBytes:       result.SizeBytes(),
		HasVideo:        result.countCodecType("video") > 0,
		HasAudio:        result.countCodecType("audio") > 0,
		FormatName:      result.Format.FormatName,
	}, nil
}

// Inspect returns the decoded ffprobe report for path.
func (t *Tool) Inspect(ctx context.Context, path string) (ProbeResult, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return ProbeResult{}, services.Wrap(services.ErrInvalidArgument, "media", "probe", "empty path", nil)
	}
	output, err := t.run(ctx, t.cfg.FFprobeBinary,
		"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrAcquisitionFailed, "media", "probe", path, err)
	}
	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return ProbeResult{}, services.Wrap(services.ErrAcquisitionFailed, "media", "probe", "decode ffprobe output", err)
	}
	return result, nil
}

// DurationSeconds returns the container duration, or 0 when unavailable.
func (r ProbeResult) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size, or 0 when unavailable.
func (r ProbeResult) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if size <= 0 {
		return 0
	}
	return int64(size)
}

func (r ProbeResult) countCodecType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

func parseFloat(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "n/a") {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
