// Package main hosts the sematube CLI.
//
// Commands build the pipeline from configuration and run it in-process:
// caption and burn produce caption artifacts, translate and format expose
// the translation and caption layout primitives directly, and serve puts
// the same pipeline behind the HTTP API.
package main
