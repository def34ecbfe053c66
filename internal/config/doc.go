// Package config loads, normalizes, and validates sematube configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SEMATUBE_OPENAI_API_KEY. The Config type centralizes every knob the CLI and
// HTTP server need, so working directories, external binaries, and service
// endpoints are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
