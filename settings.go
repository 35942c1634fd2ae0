package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Logical keys used by the update subsystem. The settings surface itself
// accepts arbitrary keys without migration.
const (
	keyInstalledVersion     = "installed_version"
	keyUpdateDetected       = "update_detected"
	keyUpdateDetectedAt     = "update_detected_at"
	keyPreUpdateBackup      = "pre_update_backup"
	keyFailedUpdateVersions = "failed_update_versions"
)

var ErrSettingNotFound = errors.New("setting not found")

// FileSettings persists a flat string map as a yaml file. Writes go
// through a temp file and rename so a crash never truncates the store.
type FileSettings struct {
	path string
}

func NewFileSettings(path string) *FileSettings {
	return &FileSettings{path: path}
}

func (s *FileSettings) Get(key string) (string, error) {
	values, err := s.load()
	if err != nil {
		return "", err
	}
	value, ok := values[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSettingNotFound, key)
	}
	return value, nil
}

func (s *FileSettings) Set(key, value string) error {
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.store(values)
}

func (s *FileSettings) Delete(key string) error {
	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.store(values)
}

func (s *FileSettings) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		logger.Error("failed to read settings file %s: %v", s.path, err)
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		logger.Error("failed to unmarshal settings file %s: %v", s.path, err)
		return nil, fmt.Errorf("failed to unmarshal settings file: %w", err)
	}
	return values, nil
}

func (s *FileSettings) store(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		logger.Error("failed to marshal settings: %v", err)
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		logger.Error("failed to write settings file %s: %v", tmp, err)
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		logger.Error("failed to replace settings file %s: %v", s.path, err)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}
