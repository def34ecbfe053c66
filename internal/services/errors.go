package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrAcquisitionFailed   = errors.New("acquisition failed")
	ErrTranscriptionFailed = errors.New("transcription failed")
	ErrTranslationFailed   = errors.New("translation failed")
	ErrMuxFailed           = errors.New("mux failed")
)

// kinds lists the markers in classification order. Markers earlier in the list
// win when an error chain carries several of them.
var kinds = []struct {
	marker error
	name   string
}{
	{ErrInvalidArgument, "InvalidArgument"},
	{ErrUnsupportedLanguage, "UnsupportedLanguage"},
	{ErrAcquisitionFailed, "AcquisitionFailed"},
	{ErrTranscriptionFailed, "TranscriptionFailed"},
	{ErrTranslationFailed, "TranslationFailed"},
	{ErrMuxFailed, "MuxFailed"},
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInvalidArgument
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the taxonomy name for err, or "Internal" when the error carries
// none of the known markers. Context cancellation takes precedence over the
// marker of the operation it interrupted and is reported as "Canceled".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if IsCanceled(err) {
		return "Canceled"
	}
	for _, k := range kinds {
		if errors.Is(err, k.marker) {
			return k.name
		}
	}
	return "Internal"
}

// IsClientError reports whether err stems from caller input rather than an
// external collaborator.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrUnsupportedLanguage)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
