// Package pipeline implements the image variant pipeline: staleness
// detection, incremental batch regeneration, on-the-fly resolution with disk
// caching, and manifest bookkeeping.
//
// A single Pipeline instance owns all shared mutable state (the manifest
// store and the single-flight batch guard) and is shared by the CLI batch
// commands, the filesystem watcher and the HTTP handlers. Per-item failures
// are absorbed and reported through VariantResult lists; only directory-level
// preconditions escalate to callers.
package pipeline
