package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/wav"

	"sematube/internal/services"
)

// Speech engines expect mono 16 kHz signed 16-bit PCM.
const (
	PCMSampleRate = 16000
	PCMChannels   = 1
	PCMBitDepth   = 16
	wavFormatPCM  = 1
)

// PCMInfo describes a validated WAV file.
type PCMInfo struct {
	Channels   int
	SampleRate int
	BitDepth   int
	Duration   time.Duration
}

// ExtractPCM decodes src and writes mono 16 kHz PCM WAV to dest. The file only
// appears at dest once ffmpeg finished successfully.
func (t *Tool) ExtractPCM(ctx context.Context, src, dest string) error {
	if src == "" || dest == "" {
		return services.Wrap(services.ErrAcquisitionFailed, "media", "extract pcm", "source and destination required", nil)
	}
	partial := partialPath(dest)
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ac", fmt.Sprint(PCMChannels),
		"-ar", fmt.Sprint(PCMSampleRate),
		partial,
	}
	if _, err := t.run(ctx, t.cfg.FFmpegBinary, args...); err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrAcquisitionFailed, "media", "extract pcm", src, err)
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrAcquisitionFailed, "media", "extract pcm", "finalize output", err)
	}
	return nil
}

// ValidatePCM checks that path is a mono 16 kHz 16-bit PCM WAV file.
func ValidatePCM(path string) (PCMInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCMInfo{}, services.Wrap(services.ErrAcquisitionFailed, "media", "validate pcm", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return PCMInfo{}, services.Wrap(services.ErrAcquisitionFailed, "media", "validate pcm", fmt.Sprintf("%s is not a WAV file", path), dec.Err())
	}
	info := PCMInfo{
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
		BitDepth:   int(dec.BitDepth),
	}
	if dec.WavAudioFormat != wavFormatPCM || info.Channels != PCMChannels || info.SampleRate != PCMSampleRate || info.BitDepth != PCMBitDepth {
		return info, services.Wrap(services.ErrAcquisitionFailed, "media", "validate pcm",
			fmt.Sprintf("%s: want %d ch %d Hz %d-bit PCM, got %d ch %d Hz %d-bit format %d",
				filepath.Base(path), PCMChannels, PCMSampleRate, PCMBitDepth, info.Channels, info.SampleRate, info.BitDepth, dec.WavAudioFormat), nil)
	}
	if d, err := dec.Duration(); err == nil {
		info.Duration = d
	}
	return info, nil
}

// partialPath keeps the extension so ffmpeg still infers the container.
func partialPath(dest string) string {
	dir, base := filepath.Split(dest)
	ext := filepath.Ext(base)
	return filepath.Join(dir, "."+base[:len(base)-len(ext)]+".partial"+ext)
}
