package pipeline

import (
	"fmt"
	"os"

	"image-pipeline/internal/logging"
)

// Clean deletes the output tree (variants and manifest file included) and
// clears the in-memory manifest. The next batch run starts cold.
func (p *Pipeline) Clean() error {
	logging.Info("clean: removing output tree %s", p.cfg.OutputDir)

	if err := os.RemoveAll(p.cfg.OutputDir); err != nil {
		return fmt.Errorf("failed to remove output directory: %w", err)
	}
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate output directory: %w", err)
	}

	p.store.Reset()
	logging.Info("clean: output tree removed, manifest cleared")
	return nil
}
