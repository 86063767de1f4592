// Package cart implements the persisted shopping cart.
//
// The cart is an ordered sequence of lines, unique by product identifier,
// shown first-added-first. Each line snapshots the product's display fields at
// add-time, so later price changes on the backend never move an existing total.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/saddiabu4/telegram-market/internal/catalog"
	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/internal/storage"
)

// Line is one product-identifier/quantity pair in the cart.
type Line struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Image     string `json:"image,omitempty"`
	Quantity  int64  `json:"quantity"`
}

// Store holds the cart lines and re-persists the full slot synchronously on
// every mutation, strictly after the in-memory change. Persistence is
// best-effort: a failed write is logged, not surfaced.
type Store struct {
	slots  storage.Store
	logger *slog.Logger

	mu    sync.Mutex
	lines []Line
}

// NewStore restores the cart from its slot. A missing slot starts an empty
// cart; malformed persisted state degrades to an empty cart as well.
func NewStore(ctx context.Context, slots storage.Store, logger *slog.Logger) *Store {
	s := &Store{
		slots:  slots,
		logger: logger.With("component", "cart"),
	}
	data, err := slots.Load(ctx, storage.SlotCart)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSlotNotFound) {
			s.logger.WarnContext(ctx, "Failed to load cart slot, starting empty", "error", err)
		}
		return s
	}
	if err := json.Unmarshal(data, &s.lines); err != nil {
		s.logger.WarnContext(ctx, "Malformed cart slot, starting empty", "error", err)
		s.lines = nil
	}
	return s
}

// Add increments the line for the product, or appends a new line with
// quantity 1 snapshotting the product's display fields.
func (s *Store) Add(ctx context.Context, product catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == product.ID {
			s.lines[i].Quantity++
			s.persist(ctx)
			return
		}
	}
	s.lines = append(s.lines, Line{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  1,
	})
	s.persist(ctx)
}

// ChangeQuantity adds delta to the line's quantity. A result of zero or less
// removes the line. An unknown product identifier is a no-op.
func (s *Store) ChangeQuantity(ctx context.Context, productID string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID != productID {
			continue
		}
		s.lines[i].Quantity += delta
		if s.lines[i].Quantity <= 0 {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
		}
		s.persist(ctx)
		return
	}
}

// Remove drops the line unconditionally, regardless of quantity. Removing an
// absent line leaves the cart unchanged.
func (s *Store) Remove(ctx context.Context, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			s.persist(ctx)
			return
		}
	}
}

// Clear empties the cart. Used after checkout.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.persist(ctx)
}

// Total is the sum of snapshot price times quantity over all lines.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, l := range s.lines {
		total += l.Price * l.Quantity
	}
	return total
}

// ItemCount is the sum of quantities over all lines, used for the cart badge.
func (s *Store) ItemCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, l := range s.lines {
		count += l.Quantity
	}
	return count
}

// Lines returns a copy of the cart in display order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]Line, len(s.lines))
	copy(lines, s.lines)
	return lines
}

// persist re-serializes the full cart to its slot. Callers hold the mutex.
func (s *Store) persist(ctx context.Context) {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to encode cart", "error", err)
		return
	}
	if err := s.slots.Save(ctx, storage.SlotCart, data); err != nil {
		s.logger.WarnContext(ctx, "Failed to persist cart", "error", err)
	}
}
