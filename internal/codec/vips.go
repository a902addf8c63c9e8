package codec

import (
	"context"
	"fmt"
	"sync"

	"image-pipeline/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes the libvips library.
// This should be called once at startup.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() so it respects LOG_LEVEL.
	var vipsLogLevel vips.LogLevel
	var logHandler func(string, vips.LogLevel, string)

	switch logging.GetLevel() {
	case logging.LevelDebug:
		vipsLogLevel = vips.LogLevelInfo
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			case vips.LogLevelMessage, vips.LogLevelInfo, vips.LogLevelDebug:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	default:
		vipsLogLevel = vips.LogLevelWarning
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}

	vips.LoggingSettings(logHandler, vipsLogLevel)

	// Conservative memory settings: variant generation runs many encodes in
	// sequence, vips operation caching buys little here.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsCodec implements Codec on top of libvips. It is the production codec:
// libvips shrinks during decode, which keeps memory flat even for very
// large originals.
type VipsCodec struct{}

// NewVipsCodec returns a Codec backed by libvips. InitVips must have been
// called first.
func NewVipsCodec() (*VipsCodec, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}
	return &VipsCodec{}, nil
}

// Probe returns the intrinsic dimensions of the image at path. vips decodes
// lazily, so only the header is read.
func (c *VipsCodec) Probe(_ context.Context, path string) (Dimensions, error) {
	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return Dimensions{}, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	return Dimensions{Width: ref.Width(), Height: ref.Height()}, nil
}

// Transform cover-resizes the image at path to opts.Width x opts.Height and
// encodes it with the requested format.
func (c *VipsCodec) Transform(ctx context.Context, path string, opts Options) (*Encoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	defer ref.Close()

	logging.Debug("vips transform %s -> %dx%d %s q=%d",
		path, opts.Width, opts.Height, opts.Format, opts.Quality)

	// InterestingCentre crops to the exact target aspect (cover fit).
	if err := ref.Thumbnail(opts.Width, opts.Height, vips.InterestingCentre); err != nil {
		return nil, fmt.Errorf("vips resize failed: %w", err)
	}

	var data []byte
	switch opts.Format {
	case FormatWebP:
		params := vips.NewWebpExportParams()
		params.Quality = opts.Quality
		data, _, err = ref.ExportWebp(params)
	case FormatAVIF:
		params := vips.NewAvifExportParams()
		params.Quality = opts.Quality
		data, _, err = ref.ExportAvif(params)
	case FormatJPEG:
		params := vips.NewJpegExportParams()
		params.Quality = opts.Quality
		// mozjpeg-style optimizations when the linked libvips supports them
		params.OptimizeCoding = true
		params.TrellisQuant = true
		params.OvershootDeringing = true
		data, _, err = ref.ExportJpeg(params)
	case FormatPNG:
		params := vips.NewPngExportParams()
		// Quality has no lossy meaning for PNG, use max compression effort.
		params.Compression = 9
		data, _, err = ref.ExportPng(params)
	}
	if err != nil {
		return nil, fmt.Errorf("vips export to %s failed: %w", opts.Format, err)
	}

	return &Encoded{Data: data, Width: ref.Width(), Height: ref.Height()}, nil
}
