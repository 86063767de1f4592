package favorites

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
	"github.com/saddiabu4/telegram-market/internal/storage"
)

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

func Test_Favorites_ToggleTwiceRestoresOriginalState(t *testing.T) {
	// given
	ctx := context.Background()
	set := NewSet(ctx, newMemStore(), testLogger())
	require.False(t, set.IsFavorite("p1"))
	// when
	first := set.Toggle(ctx, "p1")
	second := set.Toggle(ctx, "p1")
	// then
	assert.True(t, first)
	assert.False(t, second)
	assert.False(t, set.IsFavorite("p1"))
	assert.Empty(t, set.All())
}

func Test_Favorites_MembershipIsPerProduct(t *testing.T) {
	// given
	ctx := context.Background()
	set := NewSet(ctx, newMemStore(), testLogger())
	// when
	set.Toggle(ctx, "p1")
	set.Toggle(ctx, "p2")
	set.Toggle(ctx, "p1")
	// then
	assert.False(t, set.IsFavorite("p1"))
	assert.True(t, set.IsFavorite("p2"))
	assert.Equal(t, []string{"p2"}, set.All())
}

func Test_Favorites_RoundTripThroughStorage(t *testing.T) {
	// given
	ctx := context.Background()
	slots := newMemStore()
	set := NewSet(ctx, slots, testLogger())
	set.Toggle(ctx, "p3")
	set.Toggle(ctx, "p1")
	// when: a fresh set restores from the same slot
	restored := NewSet(ctx, slots, testLogger())
	// then
	assert.Equal(t, set.All(), restored.All())
	assert.True(t, restored.IsFavorite("p3"))
	assert.False(t, restored.IsFavorite("p2"))
}

func Test_Favorites_MalformedSlotStartsEmpty(t *testing.T) {
	// given
	ctx := context.Background()
	slots := newMemStore()
	slots.slots[storage.SlotFavorites] = []byte("[1, 2")
	// when
	set := NewSet(ctx, slots, testLogger())
	// then
	assert.Empty(t, set.All())
}
