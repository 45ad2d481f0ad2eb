package sequence

import (
	"context"

	"github.com/frescapp/backoffice/internal/platform/db"
	"github.com/frescapp/backoffice/internal/shared"
)

const incrementSQL = `INSERT INTO counters (name, value) VALUES ($1, 1)
ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
RETURNING value`

// PGStore keeps counters in the counters table.
type PGStore struct {
	db db.DBTX
}

// NewPGStore builds a Postgres-backed store.
func NewPGStore(conn db.DBTX) *PGStore {
	return &PGStore{db: conn}
}

// Increment upserts and returns the new value in one statement.
func (s *PGStore) Increment(ctx context.Context, name string) (int64, error) {
	var value int64
	if err := s.db.QueryRow(ctx, incrementSQL, name).Scan(&value); err != nil {
		return 0, shared.StorageError("counters: increment", err)
	}
	return value, nil
}
