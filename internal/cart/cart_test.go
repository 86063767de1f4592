package cart

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saddiabu4/telegram-market/internal/catalog"
	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/internal/storage"
)

// memStore is an in-memory slot store for tests.
type memStore struct {
	slots map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{slots: make(map[string][]byte)}
}

func (m *memStore) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := m.slots[key]
	if !ok {
		return nil, apperrors.ErrSlotNotFound
	}
	return data, nil
}

func (m *memStore) Save(_ context.Context, key string, value []byte) error {
	m.slots[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.slots, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func product(id string, price int64) catalog.Product {
	return catalog.Product{ID: id, Name: "Product " + id, Price: price}
}

func Test_Cart_AddTwice_IncrementsQuantity(t *testing.T) {
	// given
	ctx := context.Background()
	store := NewStore(ctx, newMemStore(), testLogger())
	p := product("p1", 1000)
	// when
	store.Add(ctx, p)
	store.Add(ctx, p)
	// then
	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, int64(2), lines[0].Quantity)
	assert.Equal(t, int64(2000), store.Total())
	assert.Equal(t, int64(2), store.ItemCount())
}

func Test_Cart_Add_SnapshotsDisplayFields(t *testing.T) {
	// given
	ctx := context.Background()
	store := NewStore(ctx, newMemStore(), testLogger())
	p := catalog.Product{ID: "p1", Name: "Sneakers", Price: 5000, Image: "sneakers.jpg"}
	// when
	store.Add(ctx, p)
	p.Price = 9000 // later backend price change must not move the cart total
	// then
	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "Sneakers", lines[0].Name)
	assert.Equal(t, "sneakers.jpg", lines[0].Image)
	assert.Equal(t, int64(5000), store.Total())
}

func Test_Cart_ChangeQuantity(t *testing.T) {
	testCases := []struct {
		name          string
		setup         func(ctx context.Context, s *Store)
		productID     string
		delta         int64
		expectedLines int
		expectedQty   int64
	}{
		{
			name: "decrement to zero removes the line",
			setup: func(ctx context.Context, s *Store) {
				s.Add(ctx, product("p1", 1000))
			},
			productID:     "p1",
			delta:         -1,
			expectedLines: 0,
		},
		{
			name: "increment bumps quantity",
			setup: func(ctx context.Context, s *Store) {
				s.Add(ctx, product("p1", 1000))
			},
			productID:     "p1",
			delta:         1,
			expectedLines: 1,
			expectedQty:   2,
		},
		{
			name: "large negative delta removes the line",
			setup: func(ctx context.Context, s *Store) {
				s.Add(ctx, product("p1", 1000))
				s.Add(ctx, product("p1", 1000))
			},
			productID:     "p1",
			delta:         -5,
			expectedLines: 0,
		},
		{
			name: "unknown product is a no-op",
			setup: func(ctx context.Context, s *Store) {
				s.Add(ctx, product("p1", 1000))
			},
			productID:     "missing",
			delta:         1,
			expectedLines: 1,
			expectedQty:   1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			ctx := context.Background()
			store := NewStore(ctx, newMemStore(), testLogger())
			tc.setup(ctx, store)
			// when
			store.ChangeQuantity(ctx, tc.productID, tc.delta)
			// then
			lines := store.Lines()
			require.Len(t, lines, tc.expectedLines)
			if tc.expectedLines > 0 {
				assert.Equal(t, tc.expectedQty, lines[0].Quantity)
			}
		})
	}
}

func Test_Cart_Remove_IsIdempotent(t *testing.T) {
	// given
	ctx := context.Background()
	store := NewStore(ctx, newMemStore(), testLogger())
	store.Add(ctx, product("p1", 1000))
	store.Add(ctx, product("p2", 2000))
	// when
	store.Remove(ctx, "p1")
	after := store.Lines()
	store.Remove(ctx, "p1")
	// then
	assert.Equal(t, after, store.Lines())
	require.Len(t, store.Lines(), 1)
	assert.Equal(t, "p2", store.Lines()[0].ProductID)
}

func Test_Cart_InvariantsUnderRandomOps(t *testing.T) {
	// given
	ctx := context.Background()
	store := NewStore(ctx, newMemStore(), testLogger())
	ids := []string{"p1", "p2", "p3"}
	rng := rand.New(rand.NewSource(42))
	// when: an arbitrary interleaving of mutations
	for range 500 {
		id := ids[rng.Intn(len(ids))]
		switch rng.Intn(4) {
		case 0:
			store.Add(ctx, product(id, int64(100*(rng.Intn(5)+1))))
		case 1:
			store.ChangeQuantity(ctx, id, 1)
		case 2:
			store.ChangeQuantity(ctx, id, -1)
		case 3:
			store.Remove(ctx, id)
		}
		// then: no duplicate product IDs, every quantity positive
		seen := make(map[string]bool)
		for _, l := range store.Lines() {
			assert.False(t, seen[l.ProductID], "duplicate line for %s", l.ProductID)
			seen[l.ProductID] = true
			assert.Positive(t, l.Quantity)
		}
	}
}

func Test_Cart_TotalInvariantUnderAddOrder(t *testing.T) {
	// given: the same multiset of adds in two different orders
	ctx := context.Background()
	first := NewStore(ctx, newMemStore(), testLogger())
	second := NewStore(ctx, newMemStore(), testLogger())
	adds := []catalog.Product{product("p1", 300), product("p2", 100), product("p1", 300), product("p3", 200)}
	// when
	for _, p := range adds {
		first.Add(ctx, p)
	}
	for i := len(adds) - 1; i >= 0; i-- {
		second.Add(ctx, adds[i])
	}
	// then
	assert.Equal(t, first.Total(), second.Total())
	assert.Equal(t, first.ItemCount(), second.ItemCount())
}

func Test_Cart_RoundTripThroughStorage(t *testing.T) {
	// given
	ctx := context.Background()
	slots := newMemStore()
	store := NewStore(ctx, slots, testLogger())
	store.Add(ctx, catalog.Product{ID: "p2", Name: "Hat", Price: 200})
	store.Add(ctx, catalog.Product{ID: "p1", Name: "Shoe", Price: 300})
	store.Add(ctx, catalog.Product{ID: "p2", Name: "Hat", Price: 200})
	// when: a fresh store restores from the same slot
	restored := NewStore(ctx, slots, testLogger())
	// then: identical ordered sequence of lines
	assert.Equal(t, store.Lines(), restored.Lines())
	assert.Equal(t, store.Total(), restored.Total())
}

func Test_Cart_PersistsAfterEveryMutation(t *testing.T) {
	// given
	ctx := context.Background()
	slots := newMemStore()
	store := NewStore(ctx, slots, testLogger())
	// when
	store.Add(ctx, product("p1", 1000))
	// then: the slot already holds the new line
	var persisted []Line
	require.NoError(t, json.Unmarshal(slots.slots[storage.SlotCart], &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, int64(1), persisted[0].Quantity)

	// when: clearing after checkout
	store.Clear(ctx)
	// then
	require.NoError(t, json.Unmarshal(slots.slots[storage.SlotCart], &persisted))
	assert.Empty(t, persisted)
}

func Test_Cart_MalformedSlotStartsEmpty(t *testing.T) {
	// given
	ctx := context.Background()
	slots := newMemStore()
	slots.slots[storage.SlotCart] = []byte("{not json")
	// when
	store := NewStore(ctx, slots, testLogger())
	// then
	assert.Empty(t, store.Lines())
	assert.Zero(t, store.Total())
}
