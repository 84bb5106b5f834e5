package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const defaultConfigDir = ".notes-exporter"

// Settings represents the YAML configuration structure
type Settings struct {
	ExportPath        string `yaml:"export_path"`
	OutputFormat      string `yaml:"output_format"`
	FolderFilter      string `yaml:"folder_filter"`
	IncludeEmptyNotes bool   `yaml:"include_empty_notes"`
	MaxFilenameLength int    `yaml:"max_filename_length"`
	Author            string `yaml:"author"`
	Images            struct {
		Format                 string `yaml:"format"`
		Quality                int    `yaml:"quality"`
		PathPrefix             string `yaml:"path_prefix"`
		MaxDownloadBytes       int64  `yaml:"max_download_bytes"`
		DownloadTimeoutSeconds int    `yaml:"download_timeout_seconds"`
	} `yaml:"images"`
	Bridge struct {
		BatchSize  int `yaml:"batch_size"`
		MaxWorkers int `yaml:"max_workers"`
	} `yaml:"bridge"`
	Classifier struct {
		Enabled             bool    `yaml:"enabled"`
		Model               string  `yaml:"model"`
		MaxTokens           int     `yaml:"max_tokens"`
		Temperature         float64 `yaml:"temperature"`
		RequestDelaySeconds int     `yaml:"request_delay_seconds"`
	} `yaml:"classifier"`
}

// defaultSettings returns the configuration an export runs with when no
// settings file overrides it.
func defaultSettings() *Settings {
	s := &Settings{
		ExportPath:        ".",
		OutputFormat:      "mdx",
		MaxFilenameLength: 50,
		Author:            "Notes Exporter",
	}
	s.Images.Format = "jpg"
	s.Images.Quality = 95
	s.Images.PathPrefix = "/images/articles/"
	s.Images.MaxDownloadBytes = 50 << 20
	s.Images.DownloadTimeoutSeconds = 30
	s.Bridge.BatchSize = 50
	s.Bridge.MaxWorkers = 4
	s.Classifier.Enabled = true
	s.Classifier.Model = "claude-3-haiku-20240307"
	s.Classifier.MaxTokens = 500
	s.Classifier.Temperature = 0.3
	s.Classifier.RequestDelaySeconds = 1
	return s
}

// loadSettings reads settings from the given path, or the default location
// when path is empty. Missing or unset fields fall back to defaults.
func loadSettings(path string) (*Settings, error) {
	if path == "" {
		path = getConfigPath("settings.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	settings := defaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	if settings.MaxFilenameLength <= 0 {
		settings.MaxFilenameLength = 50
	}
	if settings.Images.Quality <= 0 || settings.Images.Quality > 100 {
		settings.Images.Quality = 95
	}
	if settings.Images.MaxDownloadBytes <= 0 {
		settings.Images.MaxDownloadBytes = 50 << 20
	}
	if settings.OutputFormat != "md" && settings.OutputFormat != "mdx" {
		settings.OutputFormat = "mdx"
	}

	return settings, nil
}

// getConfigPath returns the path to a config file in the .notes-exporter directory
func getConfigPath(filename string) string {
	return filepath.Join(defaultConfigDir, filename)
}

// ensureConfigExists creates the config directory and default settings file
// on first run so users have something to edit.
func ensureConfigExists() error {
	if _, err := os.Stat(defaultConfigDir); os.IsNotExist(err) {
		if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		defaultYAML := `export_path: .
output_format: mdx
folder_filter: ""
include_empty_notes: false
max_filename_length: 50
author: Notes Exporter
images:
  format: jpg
  quality: 95
  path_prefix: /images/articles/
  max_download_bytes: 52428800
  download_timeout_seconds: 30
bridge:
  batch_size: 50
  max_workers: 4
classifier:
  enabled: true
  model: claude-3-haiku-20240307
  max_tokens: 500
  temperature: 0.3
  request_delay_seconds: 1
`
		if err := os.WriteFile(settingsPath, []byte(defaultYAML), 0644); err != nil {
			return fmt.Errorf("failed to write default settings: %w", err)
		}
	}

	return nil
}
