package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Seed is the optional admin_config.json read on every startup. It can
// override the bootstrap admin passcode and pre-set the global fetch proxy.
type Seed struct {
	AdminPasscode string `json:"admin_passcode"`
	ProxyEnabled  *bool  `json:"proxy_enabled"`
	ProxyURL      string `json:"proxy_url"`
}

// LoadSeed reads the seed file at path. A missing file is not an error and
// returns nil.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &seed, nil
}
