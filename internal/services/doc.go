// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp cache keys, stage names, and correlation
//     identifiers for logging and run bookkeeping.
//   - The error taxonomy (invalid argument, unsupported language, and one
//     marker per failing stage) plus the Wrap helper that tags failures so
//     callers can classify them with errors.Is.
//
// Use these helpers when wiring new stage logic so error kinds and
// observability stay uniform across the pipeline.
package services
