// Package handlers implements the HTTP surface: image serving with
// on-the-fly variant generation, health and readiness probes, version
// info, and the pipeline control API.
package handlers
