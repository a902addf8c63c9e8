// Package cmd defines the CLI: serve, process, clean, manifest, version.
package cmd
