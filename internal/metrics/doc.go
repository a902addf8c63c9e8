// Package metrics defines the Prometheus metrics exported by the image
// pipeline. Metrics are registered at package load via promauto and served
// on the dedicated metrics port.
package metrics
