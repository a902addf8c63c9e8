// Package startup loads and validates pipeline configuration and provides
// the structured startup and shutdown logging used by the CLI commands.
//
// Configuration comes from an optional YAML file (pipeline.yaml by default)
// overridden by environment variables, following the precedence
// env > file > built-in default.
package startup
