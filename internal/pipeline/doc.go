// Package pipeline sequences fetch, transcription, caption generation and
// muxing for a single request, memoizing results per CacheKey.
//
// Runs for the same key execute at most once at a time and completed results
// are reused for the rest of the process lifetime. Failed or cancelled runs
// publish nothing, so the next identical request starts from scratch.
// Transcripts are memoized separately from presentation settings so that
// re-wrapping or re-muxing never re-invokes the speech model.
package pipeline
