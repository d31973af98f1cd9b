package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadResult describes how a configuration file was obtained.
type LoadResult struct {
	// File is the parsed (or default) configuration document.
	File *File
	// Path is the file that was read or written.
	Path string
	// Created is true when defaults were written because the file was missing.
	Created bool
	// Replaced is true when an unparseable file was replaced by defaults.
	// The previous contents are kept next to it with a ".bak" suffix.
	Replaced bool
}

// LoadConfigFile loads the YAML configuration at path.
// A missing file is created with default values. A file that cannot be
// parsed is backed up and replaced by defaults. Both cases are reported in
// the result so the caller can log them; neither is an error.
func LoadConfigFile(path string) (*LoadResult, error) {
	if path == "" {
		path = DefaultConfigFilePath()
	}

	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		def := DefaultFile()
		if err := SaveConfigFile(path, def); err != nil {
			return nil, err
		}
		return &LoadResult{File: def, Path: path, Created: true}, nil
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		if err := os.WriteFile(path+".bak", data, 0o600); err != nil {
			return nil, fmt.Errorf("failed to back up config file %s: %w", path, err)
		}
		def := DefaultFile()
		if err := SaveConfigFile(path, def); err != nil {
			return nil, err
		}
		return &LoadResult{File: def, Path: path, Replaced: true}, nil
	}

	return &LoadResult{File: &cf, Path: path}, nil
}

// SaveConfigFile writes cf to path as YAML, creating parent directories.
func SaveConfigFile(path string, cf *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cf)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}
