// Package logging provides leveled logging for the image pipeline.
//
// The log level is read from the LOG_LEVEL environment variable (debug, info,
// warn, error) at startup; setting DEBUG=true forces debug output. SetLevel
// allows the CLI --verbose flag and tests to override the level at runtime.
package logging
