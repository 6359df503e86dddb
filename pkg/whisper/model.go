package whisper

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ModelSizes are the model variants the caption pipeline accepts.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large"}

// ValidModelSize reports whether size names a known model variant.
func ValidModelSize(size string) bool {
	for _, s := range ModelSizes {
		if s == size {
			return true
		}
	}
	return false
}

// ModelCache resolves model sizes to files on disk, validating each file
// once. Resolution is serialized so concurrent caption jobs do not race
// a partially downloaded model file.
type ModelCache struct {
	dir string

	mu       sync.Mutex
	resolved map[string]string
}

func NewModelCache(dir string) *ModelCache {
	return &ModelCache{dir: dir, resolved: make(map[string]string)}
}

// Resolve returns the model file path for a size, checking the file
// exists and is not empty on first use.
func (c *ModelCache) Resolve(size string) (string, error) {
	if !ValidModelSize(size) {
		return "", fmt.Errorf("whisper: unknown model size %q", size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if path, ok := c.resolved[size]; ok {
		return path, nil
	}

	path := filepath.Join(c.dir, "ggml-"+size+".bin")
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("whisper: model %q not available at %s: %w", size, path, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("whisper: model file %s is empty", path)
	}

	c.resolved[size] = path
	return path, nil
}
