// Package preflight reports whether the host can run captioning jobs: the
// external binaries resolve, the working directories are writable, and the
// remote translation and speech endpoints answer.
//
// The CLI "check" command prints every result; "serve" refuses to start
// when a required binary is missing.
package preflight
