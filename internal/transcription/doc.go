// Package transcription adapts speech-to-text engines to the caption model.
//
// An Engine turns a mono 16 kHz WAV into raw segments. Two engines ship here:
// WhisperCLI shells out to the openai-whisper command line tool and OpenAI
// talks to any OpenAI-compatible audio endpoint. ModelCache keeps a bounded
// number of engines resident, one per model size, and Adapter normalizes raw
// output into ordered, trimmed caption segments with a resolved language.
package transcription
