package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
)

// FileStore implements Store with one JSON file per slot under a state
// directory. Writes are synchronous: Save returns only after the bytes have
// been handed to the filesystem.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed and returns a FileStore.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Load retrieves the raw contents of a slot.
// Returns ErrSlotNotFound if the slot file does not exist.
func (f *FileStore) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}
	return data, nil
}

// Save replaces the full contents of a slot. The value is written to a
// temporary file and renamed into place so a crash mid-write never leaves a
// truncated slot behind.
func (f *FileStore) Save(_ context.Context, key string, value []byte) error {
	tmp := f.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	if err := os.Rename(tmp, f.path(key)); err != nil {
		return fmt.Errorf("failed to replace slot %s: %w", key, err)
	}
	return nil
}

// Delete removes a slot. Deleting an absent slot is not an error.
func (f *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}
