package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// BlocklistFileName is the user-editable keyword file inside the data directory.
const BlocklistFileName = "blocklist.txt"

// FileBlocklist implements domain.BlocklistFile on a plain text file.
type FileBlocklist struct {
	path string
}

// NewFileBlocklist creates a blocklist file at path.
func NewFileBlocklist(path string) *FileBlocklist {
	return &FileBlocklist{path: filepath.Clean(path)}
}

// DefaultBlocklistPath returns the blocklist location for a data directory.
func DefaultBlocklistPath(dataDir string) string {
	return filepath.Join(dataDir, BlocklistFileName)
}

// Path returns the blocklist file path.
func (b *FileBlocklist) Path() string {
	return b.path
}

// Load reads the file. A missing file yields an error wrapping os.ErrNotExist.
func (b *FileBlocklist) Load() (string, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return "", fmt.Errorf("failed to read blocklist: %w", err)
	}
	return string(data), nil
}

// Save replaces the file contents atomically.
func (b *FileBlocklist) Save(text string) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0700); err != nil {
		return fmt.Errorf("failed to create blocklist directory: %w", err)
	}
	if err := writeFileAtomic(b.path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write blocklist: %w", err)
	}
	return nil
}

// EnsureExists writes defaultText when the file is missing and reports
// whether it was created.
func (b *FileBlocklist) EnsureExists(defaultText string) (bool, error) {
	_, err := os.Stat(b.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat blocklist: %w", err)
	}
	if err := b.Save(defaultText); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileAtomic writes to a temp file in the same directory and renames it
// over path, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	// Unique per process so the CLI and daemon don't collide.
	tmpPath := fmt.Sprintf("%s.%d.tmp", path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) // Clean up on failure
		return err
	}
	return nil
}

// Ensure FileBlocklist implements domain.BlocklistFile.
var _ domain.BlocklistFile = (*FileBlocklist)(nil)
