package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/smazurov/pixelnode/internal/pattern"
)

// LoadPatternSettings reads the [rainbow], [chase] and [fade] tables from
// path. A missing file or an empty path yields the defaults; unset keys are
// defaulted by Settings.Build.
func LoadPatternSettings(path string) (pattern.Settings, error) {
	if path == "" {
		return pattern.DefaultSettings(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return pattern.DefaultSettings(), nil
	}
	if err != nil {
		return pattern.Settings{}, fmt.Errorf("failed to read pattern settings: %w", err)
	}

	var s pattern.Settings
	if err := toml.Unmarshal(data, &s); err != nil {
		return pattern.Settings{}, fmt.Errorf("failed to parse pattern settings: %w", err)
	}
	return s, nil
}

// LoadPatterns loads and validates the pattern set at path. It is the
// loader handed to a Watcher for hot reload.
func LoadPatterns(path string) (*pattern.Set, error) {
	s, err := LoadPatternSettings(path)
	if err != nil {
		return nil, err
	}
	set, err := s.Build()
	if err != nil {
		return nil, fmt.Errorf("invalid pattern settings in %s: %w", path, err)
	}
	return set, nil
}
