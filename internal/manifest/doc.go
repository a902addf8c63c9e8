// Package manifest tracks which image variants have been generated.
//
// The manifest maps each original's relative path to its intrinsic
// dimensions and variant list, and persists as a single JSON file inside the
// output root. Absence or corruption of that file is treated as a cold start,
// never as a fatal error.
package manifest
