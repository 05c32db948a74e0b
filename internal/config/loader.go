package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and merges settings from global and project paths.
// Order of precedence (highest to lowest): project settings, global settings, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Settings, error) {
	// Start with defaults
	cfg := DefaultSettings()

	// Merge global settings if exists
	if globalPath != "" {
		if err := mergeSettingsFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	// Merge project settings if exists (highest precedence)
	if projectPath != "" {
		if err := mergeSettingsFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads settings from conventional paths.
// Global: ~/.traingraph/config.json
// Project: .traingraph/config.json (relative to cwd)
// The database defaults to ~/.traingraph/graphs.db.
func LoadDefault() (*Settings, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".traingraph", "config.json")
	projectPath := filepath.Join(".traingraph", "config.json")

	cfg, err := Load(globalPath, projectPath)
	if err != nil {
		return nil, err
	}
	if cfg.Database == "" {
		cfg.Database = filepath.Join(homeDir, ".traingraph", "graphs.db")
	}
	return cfg, nil
}

// mergeSettingsFile reads a JSON settings file and merges its non-zero fields into base.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeSettingsFile(base *Settings, path string) error {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // Missing file is not an error
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.Project != "" {
		base.Project = loaded.Project
	}
	if loaded.Database != "" {
		base.Database = loaded.Database
	}
	if loaded.Concurrency > 0 {
		base.Concurrency = loaded.Concurrency
	}
	if loaded.Indent {
		base.Indent = true
	}

	return nil
}

// Format identifies a recipe encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the recipe format from a file extension.
// Anything other than .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadRecipe reads a recipe file. Unlike settings, a missing recipe is an error.
func LoadRecipe(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe %s: %w", path, err)
	}

	recipe, err := ParseRecipe(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing recipe %s: %w", path, err)
	}
	return recipe, nil
}

// ParseRecipe decodes and validates a recipe document.
func ParseRecipe(data []byte, format Format) (*Recipe, error) {
	var recipe Recipe

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &recipe); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &recipe); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported recipe format %q", format)
	}

	recipe.normalize()
	if err := recipe.Validate(); err != nil {
		return nil, err
	}
	return &recipe, nil
}
