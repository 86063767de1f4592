// Package storage provides the durable key-value slot store backing the
// cart, favorites and session state.
package storage

import (
	"context"
)

// Slot keys used by the storefront. The values are JSON documents, restored
// verbatim at next startup.
const (
	SlotCart      = "cart"
	SlotFavorites = "favorites"
	SlotToken     = "token"
)

// Store is an interface for slot storage operations.
// It abstracts the underlying data store, allowing for different
// implementations (file, PostgreSQL, Redis).
//
// Writes are last-write-wins: two writers updating the same slot concurrently
// silently overwrite each other, no merge is attempted.
type Store interface {
	// Load retrieves the raw contents of a slot.
	// Returns ErrSlotNotFound if the slot has never been written.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save replaces the full contents of a slot.
	Save(ctx context.Context, key string, value []byte) error

	// Delete removes a slot. Deleting an absent slot is not an error.
	Delete(ctx context.Context, key string) error
}
