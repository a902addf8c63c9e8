package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"image-pipeline/internal/codec"
	"image-pipeline/internal/manifest"
	"image-pipeline/internal/startup"
)

// fakeCodec is a deterministic in-memory codec. Dimensions are keyed by
// source basename; transforms return synthetic bytes and count invocations.
type fakeCodec struct {
	mu         sync.Mutex
	dims       map[string]codec.Dimensions
	failProbe  map[string]bool
	failFormat map[codec.Format]bool
	transforms int
	lastOpts   codec.Options
}

func newFakeCodec() *fakeCodec {
	return &fakeCodec{
		dims:       make(map[string]codec.Dimensions),
		failProbe:  make(map[string]bool),
		failFormat: make(map[codec.Format]bool),
	}
}

func (f *fakeCodec) Probe(_ context.Context, path string) (codec.Dimensions, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	base := filepath.Base(path)
	if f.failProbe[base] {
		return codec.Dimensions{}, fmt.Errorf("probe failure for %s", base)
	}
	d, ok := f.dims[base]
	if !ok {
		return codec.Dimensions{}, fmt.Errorf("unknown test image %s", base)
	}
	return d, nil
}

func (f *fakeCodec) Transform(ctx context.Context, path string, opts codec.Options) (*codec.Encoded, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failFormat[opts.Format] {
		return nil, fmt.Errorf("encode failure for %s", opts.Format)
	}

	f.transforms++
	f.lastOpts = opts
	data := []byte(fmt.Sprintf("%s|%dx%d|q%d|%s",
		filepath.Base(path), opts.Width, opts.Height, opts.Quality, opts.Format))
	return &codec.Encoded{Data: data, Width: opts.Width, Height: opts.Height}, nil
}

func (f *fakeCodec) transformCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transforms
}

func testConfig(t *testing.T) *startup.Config {
	t.Helper()

	inputDir := filepath.Join(t.TempDir(), "images")
	outputDir := filepath.Join(t.TempDir(), "optimized")
	for _, dir := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	return &startup.Config{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		PublicPath:       "/optimized",
		Widths:           []int{320, 640},
		Formats:          []codec.Format{codec.FormatWebP, codec.FormatJPEG},
		Quality:          80,
		SkipExisting:     false,
		GenerateManifest: true,
		DebounceDelay:    300 * time.Millisecond,
		ManifestPath:     filepath.Join(outputDir, manifest.Filename),
	}
}

// addSource creates a source file on disk and registers its dimensions with
// the fake codec.
func addSource(t *testing.T, cfg *startup.Config, fc *fakeCodec, relPath string, width, height int) {
	t.Helper()

	path := filepath.Join(cfg.InputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("source:"+relPath), 0o644); err != nil {
		t.Fatal(err)
	}
	fc.dims[filepath.Base(path)] = codec.Dimensions{Width: width, Height: height}
}

func newTestPipeline(t *testing.T) (*Pipeline, *startup.Config, *fakeCodec) {
	t.Helper()

	cfg := testConfig(t)
	fc := newFakeCodec()
	store := manifest.NewStore(cfg.ManifestPath)
	return New(cfg, fc, store), cfg, fc
}

func variantExists(cfg *startup.Config, relPath string) bool {
	_, err := os.Stat(filepath.Join(cfg.OutputDir, filepath.FromSlash(relPath)))
	return err == nil
}

func TestProcessAllGeneratesVariants(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)
	addSource(t, cfg, fc, "gallery/shot.png", 500, 400)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatalf("ProcessAll() error: %v", err)
	}

	// hero.jpg gets both widths in both formats.
	for _, rel := range []string{
		"hero-320w.webp", "hero-320w.jpeg",
		"hero-640w.webp", "hero-640w.jpeg",
	} {
		if !variantExists(cfg, rel) {
			t.Errorf("expected variant file %s", rel)
		}
	}

	// shot.png is 500px wide, so 640w is never produced.
	if !variantExists(cfg, "gallery/shot-320w.webp") {
		t.Error("expected variant file gallery/shot-320w.webp")
	}
	if variantExists(cfg, "gallery/shot-640w.webp") {
		t.Error("640w variant produced for a 500px source")
	}

	entry, ok := p.Store().Entry("hero.jpg")
	if !ok {
		t.Fatal("no manifest entry for hero.jpg")
	}
	if entry.Width != 2000 || entry.Height != 1000 {
		t.Errorf("entry dims = %dx%d, want 2000x1000", entry.Width, entry.Height)
	}
	if len(entry.Variants) != 4 {
		t.Errorf("hero.jpg variants = %d, want 4", len(entry.Variants))
	}
	// Aspect ratio preserved: 320w of a 2:1 source is 160 high.
	for _, v := range entry.Variants {
		if v.Width == 320 && v.Height != 160 {
			t.Errorf("320w variant height = %d, want 160", v.Height)
		}
	}

	shotEntry, ok := p.Store().Entry("gallery/shot.png")
	if !ok {
		t.Fatal("no manifest entry for gallery/shot.png")
	}
	if len(shotEntry.Variants) != 2 {
		t.Errorf("shot.png variants = %d, want 2 (320w only)", len(shotEntry.Variants))
	}

	if _, err := os.Stat(cfg.ManifestPath); err != nil {
		t.Errorf("manifest not persisted: %v", err)
	}
	if p.Store().GeneratedAt().IsZero() {
		t.Error("GeneratedAt not stamped after run")
	}
}

func TestProcessAllIdempotent(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCount := fc.transformCount()
	firstStamp := p.Store().GeneratedAt()

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if got := fc.transformCount(); got != firstCount {
		t.Errorf("second run encoded %d variants, want 0", got-firstCount)
	}
	// A run that touches nothing leaves the manifest timestamp alone.
	if !p.Store().GeneratedAt().Equal(firstStamp) {
		t.Error("fresh run restamped GeneratedAt")
	}
}

func TestProcessAllForce(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	firstCount := fc.transformCount()

	if err := p.ProcessAll(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if got := fc.transformCount() - firstCount; got != firstCount {
		t.Errorf("forced run encoded %d variants, want %d", got, firstCount)
	}
}

func TestProcessAllMissingInputDir(t *testing.T) {
	p, cfg, _ := newTestPipeline(t)
	if err := os.RemoveAll(cfg.InputDir); err != nil {
		t.Fatal(err)
	}

	err := p.ProcessAll(context.Background(), false)
	if !errors.Is(err, ErrInputDirMissing) {
		t.Errorf("ProcessAll() error = %v, want ErrInputDirMissing", err)
	}
}

func TestProcessAllSkipsDotfiles(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 1000, 500)
	addSource(t, cfg, fc, ".hidden.jpg", 1000, 500)
	addSource(t, cfg, fc, ".cache/thumb.jpg", 1000, 500)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	if _, ok := p.Store().Entry(".hidden.jpg"); ok {
		t.Error("dotfile picked up by discovery")
	}
	if _, ok := p.Store().Entry(".cache/thumb.jpg"); ok {
		t.Error("dot-directory picked up by discovery")
	}
	if _, ok := p.Store().Entry("hero.jpg"); !ok {
		t.Error("regular file missing from manifest")
	}
}

func TestStalenessAfterVariantDeleted(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if p.IsStale("hero.jpg") {
		t.Fatal("hero.jpg stale immediately after generation")
	}

	if err := os.Remove(filepath.Join(cfg.OutputDir, "hero-320w.webp")); err != nil {
		t.Fatal(err)
	}
	if !p.IsStale("hero.jpg") {
		t.Error("hero.jpg fresh with a variant file missing")
	}

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if !variantExists(cfg, "hero-320w.webp") {
		t.Error("deleted variant not regenerated")
	}
}

func TestStalenessSourceNewer(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	future := time.Now().Add(time.Hour)
	srcPath := filepath.Join(cfg.InputDir, "hero.jpg")
	if err := os.Chtimes(srcPath, future, future); err != nil {
		t.Fatal(err)
	}

	if !p.IsStale("hero.jpg") {
		t.Error("hero.jpg fresh although source is newer than its variants")
	}
}

func TestStalenessNoManifestEntry(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if !p.IsStale("hero.jpg") {
		t.Error("unknown original reported fresh")
	}
}

func TestGenerateUnreadableSource(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)
	fc.failProbe["hero.jpg"] = true

	_, err := p.Generate(context.Background(), "hero.jpg")
	if !errors.Is(err, ErrSourceUnreadable) {
		t.Fatalf("Generate() error = %v, want ErrSourceUnreadable", err)
	}
	if _, ok := p.Store().Entry("hero.jpg"); ok {
		t.Error("manifest entry created for unreadable source")
	}
}

func TestGeneratePartialFailure(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)
	fc.failFormat[codec.FormatWebP] = true

	results, err := p.Generate(context.Background(), "hero.jpg")
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	var generated, failed int
	for _, r := range results {
		switch r.Status {
		case StatusGenerated:
			generated++
		case StatusFailed:
			failed++
			if !errors.Is(r.Err, ErrEncodeFailed) {
				t.Errorf("failed result error = %v, want ErrEncodeFailed", r.Err)
			}
		}
	}
	if generated != 2 || failed != 2 {
		t.Errorf("generated/failed = %d/%d, want 2/2", generated, failed)
	}

	// The entry still lands, holding only the variants that worked.
	entry, ok := p.Store().Entry("hero.jpg")
	if !ok {
		t.Fatal("no manifest entry after partial failure")
	}
	for _, v := range entry.Variants {
		if v.Format == codec.FormatWebP {
			t.Errorf("failed webp variant recorded: %+v", v)
		}
	}
	if len(entry.Variants) != 2 {
		t.Errorf("entry variants = %d, want 2 jpeg", len(entry.Variants))
	}
}

func TestGenerateSkipExisting(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	cfg.SkipExisting = true
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if _, err := p.Generate(context.Background(), "hero.jpg"); err != nil {
		t.Fatal(err)
	}
	firstCount := fc.transformCount()

	results, err := p.Generate(context.Background(), "hero.jpg")
	if err != nil {
		t.Fatal(err)
	}

	if got := fc.transformCount(); got != firstCount {
		t.Errorf("second generate encoded %d variants with skip-existing on", got-firstCount)
	}
	for _, r := range results {
		if r.Status != StatusSkippedExists {
			t.Errorf("result %dw %s status = %s, want %s", r.Width, r.Format, r.Status, StatusSkippedExists)
		}
	}

	// Skipped variants are still recorded in the manifest.
	entry, _ := p.Store().Entry("hero.jpg")
	if len(entry.Variants) != 4 {
		t.Errorf("entry variants = %d, want 4", len(entry.Variants))
	}
}

func TestGenerateKeepOriginal(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	cfg.KeepOriginal = true
	addSource(t, cfg, fc, "gallery/shot.jpg", 1000, 500)

	if _, err := p.Generate(context.Background(), "gallery/shot.jpg"); err != nil {
		t.Fatal(err)
	}

	if !variantExists(cfg, "gallery/shot.jpg") {
		t.Error("original not copied into output tree")
	}
}

func TestProcessAllSingleFlight(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	// Hold the guard as a concurrent run would.
	if !p.tryStartRun() {
		t.Fatal("tryStartRun failed on idle pipeline")
	}
	if !p.IsProcessing() {
		t.Error("IsProcessing() = false while guard held")
	}

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatalf("overlapping ProcessAll() error = %v, want nil no-op", err)
	}
	if fc.transformCount() != 0 {
		t.Error("overlapping run encoded variants")
	}

	p.finishRun(nil)
	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if fc.transformCount() == 0 {
		t.Error("run after guard release did nothing")
	}
}

func TestProcessAllCanceledContext(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.ProcessAll(ctx, false); !errors.Is(err, context.Canceled) {
		t.Errorf("ProcessAll() error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(cfg.ManifestPath); err == nil {
		t.Error("manifest persisted for a canceled run")
	}
}

func TestWriteManifestRecordsOnlyExistingFiles(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(cfg.OutputDir, "hero-640w.jpeg")); err != nil {
		t.Fatal(err)
	}

	if err := p.WriteManifest(context.Background()); err != nil {
		t.Fatalf("WriteManifest() error: %v", err)
	}

	entry, ok := p.Store().Entry("hero.jpg")
	if !ok {
		t.Fatal("no manifest entry after rebuild")
	}
	if len(entry.Variants) != 3 {
		t.Errorf("rebuilt entry variants = %d, want 3", len(entry.Variants))
	}
	for _, v := range entry.Variants {
		if v.Path == "hero-640w.jpeg" {
			t.Error("missing file recorded in rebuilt manifest")
		}
	}
}

func TestWriteManifestIgnoresGenerateManifestFlag(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	cfg.GenerateManifest = false
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.WriteManifest(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(cfg.ManifestPath); err != nil {
		t.Error("explicit manifest command did not write the file")
	}
}

func TestClean(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if err := p.Clean(); err != nil {
		t.Fatalf("Clean() error: %v", err)
	}

	entries, err := os.ReadDir(cfg.OutputDir)
	if err != nil {
		t.Fatalf("output directory removed instead of emptied: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("output directory not empty after clean: %d entries", len(entries))
	}
	if p.Store().Len() != 0 {
		t.Error("manifest state survived clean")
	}
	// Input tree is untouched.
	if _, err := os.Stat(filepath.Join(cfg.InputDir, "hero.jpg")); err != nil {
		t.Error("clean touched the input directory")
	}
}

func TestPersistRespectsGenerateManifestFlag(t *testing.T) {
	p, cfg, fc := newTestPipeline(t)
	cfg.GenerateManifest = false
	addSource(t, cfg, fc, "hero.jpg", 2000, 1000)

	if err := p.ProcessAll(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if variantExists(cfg, "hero-320w.webp") == false {
		t.Error("variants not generated with manifest disabled")
	}
	if _, err := os.Stat(cfg.ManifestPath); err == nil {
		t.Error("manifest written although GenerateManifest is off")
	}
}
