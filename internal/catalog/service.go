package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
)

// Catalog defines the browsing and admin operations over the product backend.
type Catalog interface {
	// Browse fetches the product set and derives the filtered, sorted view.
	Browse(ctx context.Context, search string, key SortKey) ([]Product, error)

	// Snapshot returns a product from the last-fetched set, fetching once if
	// nothing has been loaded yet. Returns ErrProductNotFound for unknown IDs.
	Snapshot(ctx context.Context, id string) (*Product, error)

	// Create adds a product and refreshes the cached set.
	Create(ctx context.Context, token string, form ProductForm) (*Product, error)

	// Update modifies a product and refreshes the cached set.
	Update(ctx context.Context, token, id string, form ProductForm) (*Product, error)

	// Delete removes a product and refreshes the cached set.
	Delete(ctx context.Context, token, id string) error
}

// Service implements Catalog on top of a Gateway, holding the last
// successfully fetched product set as the snapshot for cart additions.
type Service struct {
	gateway Gateway
	logger  *slog.Logger

	mu          sync.RWMutex
	lastFetched []Product
	fetched     bool
}

// NewService creates a catalog service backed by the given gateway.
func NewService(gateway Gateway, logger *slog.Logger) *Service {
	return &Service{
		gateway: gateway,
		logger:  logger.With("component", "catalog"),
	}
}

// Browse fetches the full product set and applies the view filter.
func (s *Service) Browse(ctx context.Context, search string, key SortKey) ([]Product, error) {
	products, err := s.refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	return FilterAndSort(products, search, key), nil
}

// Snapshot returns the cached copy of a product for cart additions.
// The snapshot is possibly stale; that is by contract, the cart line captures
// display fields at add-time.
func (s *Service) Snapshot(ctx context.Context, id string) (*Product, error) {
	s.mu.RLock()
	fetched := s.fetched
	s.mu.RUnlock()

	if !fetched {
		if _, err := s.refresh(ctx); err != nil {
			return nil, fmt.Errorf("failed to fetch catalog: %w", err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.lastFetched {
		if s.lastFetched[i].ID == id {
			p := s.lastFetched[i]
			return &p, nil
		}
	}
	return nil, apperrors.ErrProductNotFound
}

// Create adds a product via the gateway and re-fetches the full set.
func (s *Service) Create(ctx context.Context, token string, form ProductForm) (*Product, error) {
	product, err := s.gateway.Create(ctx, token, form)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	s.refreshAfterMutation(ctx)
	return product, nil
}

// Update modifies a product via the gateway and re-fetches the full set.
func (s *Service) Update(ctx context.Context, token, id string, form ProductForm) (*Product, error) {
	product, err := s.gateway.Update(ctx, token, id, form)
	if err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	s.refreshAfterMutation(ctx)
	return product, nil
}

// Delete removes a product via the gateway and re-fetches the full set.
func (s *Service) Delete(ctx context.Context, token, id string) error {
	if err := s.gateway.Delete(ctx, token, id); err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id, err)
	}
	s.refreshAfterMutation(ctx)
	return nil
}

// refresh fetches the product set and replaces the snapshot.
func (s *Service) refresh(ctx context.Context) ([]Product, error) {
	products, err := s.gateway.List(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.lastFetched = products
	s.fetched = true
	s.mu.Unlock()
	return products, nil
}

// refreshAfterMutation re-fetches the full set after a successful mutation.
// The mutation already succeeded, so a failed refresh only costs staleness.
func (s *Service) refreshAfterMutation(ctx context.Context) {
	if _, err := s.refresh(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh catalog after mutation", "error", err)
	}
}
