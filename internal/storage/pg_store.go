package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	apperrors "github.com/saddiabu4/telegram-market/internal/errors"
)

// PgStore implements Store using PostgreSQL. Slots live in the state_slots
// table (see migrations/). An upsert keeps Save last-write-wins.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of Store using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

// Load retrieves the raw contents of a slot.
// Returns ErrSlotNotFound if the slot has never been written.
func (p *PgStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRow(ctx,
		`SELECT value FROM state_slots WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to load slot %s: %w", key, err)
	}
	return value, nil
}

// Save replaces the full contents of a slot.
func (p *PgStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO state_slots (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to save slot %s: %w", key, err)
	}
	return nil
}

// Delete removes a slot. Deleting an absent slot is not an error.
func (p *PgStore) Delete(ctx context.Context, key string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM state_slots WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}
