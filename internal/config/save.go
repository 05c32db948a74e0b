package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save persists the settings to a JSON file.
// Creates parent directories if they don't exist.
func Save(cfg *Settings, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return writeFile(path, data)
}

// SaveRecipe writes a recipe in the format implied by the path's extension.
func SaveRecipe(recipe *Recipe, path string) error {
	var (
		data []byte
		err  error
	)
	if FormatFromPath(path) == FormatJSON {
		data, err = json.MarshalIndent(recipe, "", "  ")
	} else {
		data, err = yaml.Marshal(recipe)
	}
	if err != nil {
		return fmt.Errorf("marshaling recipe: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
