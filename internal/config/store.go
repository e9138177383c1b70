// Persisted launcher configuration.
//
// config.json is read tolerantly (comments and trailing commas are
// stripped first) and always written back as pretty-printed JSON through
// a temporary file and rename, so a shorter document never leaves stale
// bytes behind.
//
// Author: Ing Muyleang (អុឹង មួយលៀង) — Ing_Muyleang
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
)

// Config is the record persisted in config.json.
type Config struct {
	Bin    string `json:"bin"`    // path to the sing-box executable
	Server string `json:"server"` // last selected catalog identifier, may be empty
}

// Load reads and decodes the config file at path. A missing file is
// reported with an error matching os.ErrNotExist; a malformed one is
// returned as a decode error without any repair attempt.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrCreate loads the config at path. If it does not exist, setup is
// called to produce the binary path and a fresh Config is written. The
// file is only created once setup succeeds. created reports whether the
// first-time setup ran.
func LoadOrCreate(path string, setup func() (string, error)) (cfg *Config, created bool, err error) {
	cfg, err = Load(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	bin, err := setup()
	if err != nil {
		return nil, false, err
	}
	cfg = &Config{Bin: bin}
	if err := Save(path, cfg); err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// Save writes cfg to path as indented JSON, replacing the whole file.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
