// Package config provides configuration utilities for the application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/tally/internal/extract"
)

// ExpandPath expands ~ and environment variables in a file path.
// It handles both ~ for home directory and $VAR style environment variables.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DataDir returns the default directory for the database and evidence
// blobs, creating it if needed.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "tally")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// brandFile is the YAML shape of a brand alias file:
//
//	brands:
//	  - alias: anthropic
//	    name: Anthropic
//	    category: software
type brandFile struct {
	Brands []struct {
		Alias    string `mapstructure:"alias"`
		Name     string `mapstructure:"name"`
		Category string `mapstructure:"category"`
	} `mapstructure:"brands"`
}

// LoadBrands reads extra brand aliases from a YAML file. Entries merge
// over the built-in alias table.
func LoadBrands(path string) (map[string]extract.Brand, error) {
	v := viper.New()
	v.SetConfigFile(ExpandPath(path))
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read brand file: %w", err)
	}

	var file brandFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse brand file: %w", err)
	}

	brands := make(map[string]extract.Brand, len(file.Brands))
	for _, b := range file.Brands {
		if b.Alias == "" || b.Name == "" {
			return nil, fmt.Errorf("brand entries require alias and name")
		}
		brands[strings.ToLower(b.Alias)] = extract.Brand{
			Name:     b.Name,
			Category: b.Category,
		}
	}

	return brands, nil
}
