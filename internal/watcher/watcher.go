package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"image-pipeline/internal/imagepath"
	"image-pipeline/internal/logging"
	"image-pipeline/internal/metrics"
	"image-pipeline/internal/pipeline"
	"image-pipeline/internal/startup"
)

// Watcher observes the input directory tree for image changes and feeds a
// Debouncer which regenerates the affected originals in batches. New
// subdirectories are added to the watch set as they appear; fsnotify does
// not recurse on its own.
type Watcher struct {
	cfg  *startup.Config
	pipe *pipeline.Pipeline

	fsw      *fsnotify.Watcher
	debounce *Debouncer
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a Watcher for the pipeline's input directory.
func New(cfg *startup.Config, pipe *pipeline.Pipeline) *Watcher {
	w := &Watcher{
		cfg:      cfg,
		pipe:     pipe,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	w.debounce = NewDebouncer(cfg.DebounceDelay, w.regenerate)
	return w
}

// Start begins watching the input tree. It returns after the watch set is
// established; event handling runs in a background goroutine until Stop.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsw = fsw

	if err := w.addRecursive(w.cfg.InputDir); err != nil {
		fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", w.cfg.InputDir, err)
	}

	logging.Info("Watching %s for changes (debounce %s)", w.cfg.InputDir, w.cfg.DebounceDelay)
	go w.loop()
	return nil
}

// Stop halts event handling and flushes any pending regeneration batch so
// observed changes are not lost on shutdown.
func (w *Watcher) Stop() {
	close(w.stopChan)
	if w.fsw != nil {
		w.fsw.Close()
	}
	<-w.doneChan
	w.debounce.Flush()
}

// addRecursive registers watches on dir and every subdirectory beneath it,
// skipping dot-directories.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Warn("File watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return
	}

	// New directories join the watch set so files created inside them are
	// seen too.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				logging.Warn("Failed to watch new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if !imagepath.IsSupportedImage(event.Name) {
		return
	}

	rel, err := filepath.Rel(w.cfg.InputDir, event.Name)
	if err != nil {
		logging.Warn("Ignoring event outside input directory: %s", event.Name)
		return
	}
	rel = filepath.ToSlash(rel)

	metrics.WatchEventsTotal.Inc()
	logging.Debug("Change detected: %s (%s)", rel, event.Op)
	w.debounce.Notify(rel)
}

// regenerate is the debounce drain callback. Changed paths are regenerated
// unconditionally; the change event itself is the staleness signal, so no
// mtime comparison is consulted here.
func (w *Watcher) regenerate(paths []string) {
	logging.Info("Regenerating %d changed image(s)", len(paths))

	ctx := context.Background()
	for _, rel := range paths {
		if _, err := w.pipe.Generate(ctx, rel); err != nil {
			logging.Error("Failed to regenerate %s: %v", rel, err)
		}
	}
	if err := w.pipe.Persist(); err != nil {
		logging.Error("Failed to persist manifest after regeneration: %v", err)
	}
}
