package media

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

const outputSuffix = " with subtitles.mp4"

// Title returns the embedded title of path, or its base name without
// extension when the file carries no readable tags.
func Title(path string) string {
	fallback := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	f, err := os.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()
	meta, err := tag.ReadFrom(f)
	if err != nil {
		return fallback
	}
	if title := strings.TrimSpace(meta.Title()); title != "" {
		return title
	}
	return fallback
}

// OutputName builds the file name of a captioned artifact for title.
func OutputName(title string) string {
	return SanitizeName(title) + outputSuffix
}

// SanitizeName strips characters that are unsafe in file names.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20, strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ". ")
	if out == "" {
		return "untitled"
	}
	return out
}
