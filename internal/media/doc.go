// Package media wraps the external ffmpeg and ffprobe binaries: PCM audio
// extraction for the speech engine, caption burn-in muxing, stream probing,
// plus WAV header validation and embedded-title lookup done in-process.
//
// Every subprocess goes through Tool's command runner so tests can substitute
// canned behaviour without real binaries.
package media
