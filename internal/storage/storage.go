package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
)

// ErrCorrupt is returned when a slot holds data that cannot be decoded.
var ErrCorrupt = errors.New("corrupt local storage")

// Slot is a single named record holding the full entry sequence.
// It is always overwritten wholesale.
type Slot interface {
	// Read returns the stored sequence. ok is false when nothing was ever written.
	Read() (entries []model.Entry, ok bool, err error)
	Write(entries []model.Entry) error
	Close() error
}

// BaseDir returns the root data directory (~/.tpt).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".tpt"), nil
}

// FileSlot stores the sequence as a JSON array in base/<name>.json.
type FileSlot struct {
	path string
}

// NewFileSlot returns a slot backed by base/<name>.json.
func NewFileSlot(base, name string) *FileSlot {
	return &FileSlot{path: filepath.Join(base, name+".json")}
}

// Path returns the backing file path.
func (s *FileSlot) Path() string { return s.path }

func (s *FileSlot) Read() ([]model.Entry, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage error reading %s: %w", s.path, err)
	}

	entries, err := decode(data)
	if err != nil {
		// Back up corrupt file and abort.
		backupPath := s.path + ".corrupt"
		_ = os.Rename(s.path, backupPath)
		return nil, false, fmt.Errorf("%w: %s (backed up to %s): %v", ErrCorrupt, s.path, backupPath, err)
	}
	return entries, true, nil
}

// Write atomically replaces the slot contents.
func (s *FileSlot) Write(entries []model.Entry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("storage error creating directories: %w", err)
	}

	data, err := encode(entries)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file then rename.
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("storage error writing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("storage error renaming temp file: %w", err)
	}
	return nil
}

func (s *FileSlot) Close() error { return nil }

func encode(entries []model.Entry) ([]byte, error) {
	if entries == nil {
		entries = []model.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("storage error marshalling JSON: %w", err)
	}
	return data, nil
}

func decode(data []byte) ([]model.Entry, error) {
	var entries []model.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.Entry{}
	}
	return entries, nil
}
