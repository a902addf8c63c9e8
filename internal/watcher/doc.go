// Package watcher monitors the input directory for image changes and
// regenerates affected variants after a debounce quiet period.
package watcher
