// Package codec provides the resize+encode capability used by the variant
// pipeline.
//
// Two implementations exist: VipsCodec (libvips via govips, the production
// path) and ImagingCodec (pure Go, jpeg/png only, used when libvips is not
// available). Both crop to the exact target aspect ratio (cover fit) and
// return encoded bytes in memory so callers control all disk writes.
package codec
