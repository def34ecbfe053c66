// Package captions turns time-stamped transcription segments into line-wrapped
// caption cues and serializes them as WebVTT or SubRip documents.
//
// Wrap is a pure function: the same segments and width always produce the same
// cues, and the renderers produce byte-identical output for the same cues. The
// pipeline relies on this to cache caption text by input identity. Parse reads
// existing VTT/SRT documents back into segments for re-wrapping and for the
// supplied-captions burn flow.
package captions
