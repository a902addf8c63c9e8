// Package workers sizes the parallelism of variant generation based on
// available CPUs, with an environment override for operators.
package workers
