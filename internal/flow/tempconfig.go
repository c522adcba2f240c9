package flow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/insilica/srvc-go/internal/config"
)

// writeStepConfig materialises cfg (already narrowed to one step via
// config.Config.ForStep) as its own JSON file inside dir, named
// uniquely so concurrently-running steps never collide.
func writeStepConfig(dir string, cfg *config.Config) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("config-%s.json", uuid.NewString()))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("flow: creating step config %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return "", fmt.Errorf("flow: writing step config %s: %w", path, err)
	}
	return path, nil
}
