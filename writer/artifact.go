// Package writer persists the comparison artifact and exports classified
// pairs to downstream sinks.
package writer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"reconflow/logger"
	"reconflow/models"
)

// WriteArtifact serializes the comparison and writes it atomically: the
// document lands in a temp file beside the target and is renamed into
// place, so a crashed run never leaves a partial artifact behind.
func WriteArtifact(path string, cmp *models.Comparison) error {
	data, err := json.MarshalIndent(cmp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename artifact into place: %w", err)
	}

	logger.IncrementArtifactWrite()
	logger.GetLogger().WithComponent("artifact_writer").WithFields(logger.Fields{
		"path":      path,
		"addresses": len(cmp.Addresses),
		"bytes":     len(data),
	}).Info("artifact written")
	return nil
}

// LoadArtifact reads a previously written comparison. Decode failures,
// including partially-null observation or diff blocks, are configuration
// errors surfaced to the caller.
func LoadArtifact(path string) (*models.Comparison, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}

	var cmp models.Comparison
	if err := json.Unmarshal(data, &cmp); err != nil {
		return nil, fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return &cmp, nil
}

// ArtifactExists reports whether a readable artifact is present at path.
func ArtifactExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
