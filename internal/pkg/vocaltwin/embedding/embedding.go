// Package embedding persists the target speaker embedding produced by
// training. One embedding per checkpoint directory, fixed file name,
// overwritten on retrain.
package embedding

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the fixed name of the persisted embedding inside a
// checkpoint directory.
const FileName = "target_se.pth"

// ErrNotFound is returned by Load when no embedding has been trained yet.
var ErrNotFound = errors.New("speaker embedding not found")

// Path returns the embedding file path for a checkpoint directory.
func Path(checkpointDir string) string {
	return filepath.Join(checkpointDir, FileName)
}

// Save writes the embedding vector to its fixed path inside checkpointDir,
// creating the directory if needed and replacing any previous embedding.
func Save(checkpointDir string, se []float32) (string, error) {
	if len(se) == 0 {
		return "", fmt.Errorf("refusing to save empty speaker embedding")
	}
	if err := os.MkdirAll(checkpointDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create checkpoint dir: %w", err)
	}

	// Write to a temp file first so a failed write never clobbers the
	// previous embedding.
	path := Path(checkpointDir)
	tmp, err := os.CreateTemp(checkpointDir, FileName+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := writeNpyFloat32(tmp, se); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return path, nil
}

// Load reads the persisted embedding from checkpointDir. Returns ErrNotFound
// when no embedding file exists.
func Load(checkpointDir string) ([]float32, error) {
	path := Path(checkpointDir)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	se, err := readNpyFloat32(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return se, nil
}
