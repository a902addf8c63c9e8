package codec

import "context"

// Dimensions holds the intrinsic pixel size of an image.
type Dimensions struct {
	Width  int
	Height int
}

// Options describes a single resize+encode operation.
type Options struct {
	// Width and Height are the exact output dimensions. The codec crops to
	// this aspect ratio (cover fit), it never letterboxes.
	Width  int
	Height int
	// Format selects the output encoder.
	Format Format
	// Quality is 1-100 for lossy formats. PNG ignores it and encodes at
	// maximum lossless compression instead.
	Quality int
}

// Encoded is the result of a Transform call. Data is complete in memory
// before the caller decides whether to write it anywhere, which keeps
// cancellation from leaving partial files on disk.
type Encoded struct {
	Data   []byte
	Width  int
	Height int
}

// Codec is the resize+encode capability consumed by the pipeline.
// Implementations must be safe for concurrent use.
type Codec interface {
	// Probe returns the intrinsic dimensions of the image at path without
	// decoding pixel data where the underlying library allows it.
	Probe(ctx context.Context, path string) (Dimensions, error)

	// Transform reads the image at path, cover-resizes it to the requested
	// dimensions and encodes it with the requested format and quality.
	Transform(ctx context.Context, path string, opts Options) (*Encoded, error)
}
