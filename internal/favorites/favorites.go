// Package favorites implements the persisted set of favorite product IDs.
//
// The set keeps insertion order for persistence stability, but no display
// ordering is guaranteed. Identifiers of products later deleted from the
// catalog stay in the set; they are simply never rendered.
package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/internal/storage"
)

// Set holds favorite product identifiers, re-persisted on every toggle.
type Set struct {
	slots  storage.Store
	logger *slog.Logger

	mu  sync.Mutex
	ids []string
}

// NewSet restores the favorites from their slot, starting empty when the slot
// is missing or malformed.
func NewSet(ctx context.Context, slots storage.Store, logger *slog.Logger) *Set {
	s := &Set{
		slots:  slots,
		logger: logger.With("component", "favorites"),
	}
	data, err := slots.Load(ctx, storage.SlotFavorites)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSlotNotFound) {
			s.logger.WarnContext(ctx, "Failed to load favorites slot, starting empty", "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.ids); err != nil {
		s.logger.WarnContext(ctx, "Malformed favorites slot, starting empty", "error", err)
		s.ids = nil
	}
	return s
}

// Toggle flips membership for the product and persists.
// Returns true when the product is a favorite after the call.
func (s *Set) Toggle(ctx context.Context, productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, id := range s.ids {
		if id == productID {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			s.persist(ctx)
			return false
		}
	}
	s.ids = append(s.ids, productID)
	s.persist(ctx)
	return true
}

// IsFavorite is a pure membership query.
func (s *Set) IsFavorite(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.ids {
		if id == productID {
			return true
		}
	}
	return false
}

// All returns a copy of the favorite identifiers.
func (s *Set) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.ids))
	copy(ids, s.ids)
	return ids
}

// persist re-serializes the set to its slot. Callers hold the mutex.
func (s *Set) persist(ctx context.Context) {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode favorites", "error", err)
		return
	}
	if err := s.slots.Save(ctx, storage.SlotFavorites, data); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist favorites", "error", err)
	}
}
