package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// CacheKey identifies a pipeline result. Input is the acquisition identity
// of the source. ModelSize is empty for TaskBurn; Target and SourceLanguage
// are only set for TaskSema. MaxLineWidth, MaxLines and Mux shape the
// presentation of a transcript without changing it.
type CacheKey struct {
	Input          string `json:"input"`
	Task           Task   `json:"task"`
	ModelSize      string `json:"model_size,omitempty"`
	Target         string `json:"target,omitempty"`
	SourceLanguage string `json:"source_language,omitempty"`
	MaxLineWidth   int    `json:"max_line_width"`
	MaxLines       int    `json:"max_lines"`
	Mux            bool   `json:"mux"`
}

// transcriptKey is the part of a CacheKey that determines the transcript.
type transcriptKey struct {
	Input          string
	Task           Task
	ModelSize      string
	Target         string
	SourceLanguage string
}

func (k CacheKey) transcript() transcriptKey {
	return transcriptKey{
		Input:          k.Input,
		Task:           k.Task,
		ModelSize:      k.ModelSize,
		Target:         k.Target,
		SourceLanguage: k.SourceLanguage,
	}
}

// String renders the key in a stable form.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%d|%d|%s",
		k.Input, k.Task, k.ModelSize, k.Target, k.SourceLanguage,
		k.MaxLineWidth, k.MaxLines, strconv.FormatBool(k.Mux))
}

// Hash returns a short hex digest used for directory names and log fields.
func (k CacheKey) Hash() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:8])
}
