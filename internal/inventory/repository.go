package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/platform/db"
	"github.com/frescapp/backoffice/internal/shared"
)

// Repository provides Postgres access to inventory snapshots.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs the repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// GetByDate returns the snapshot of date.
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (Snapshot, error) {
	snap := Snapshot{CloseDate: date}
	err := r.db.QueryRow(ctx, `SELECT products FROM inventory_snapshots WHERE close_date = $1`, date).Scan(&snap.Items)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("inventory: snapshot %s: %w", shared.FormatDate(date), shared.ErrNotFound)
	}
	if err != nil {
		return Snapshot{}, shared.StorageError("inventory: get", err)
	}
	return snap, nil
}

// Insert stores a snapshot; a second snapshot for the same date yields ErrAlreadyExists.
func (r *Repository) Insert(ctx context.Context, snap Snapshot) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO inventory_snapshots (close_date, products, total_value)
VALUES ($1, $2, $3) ON CONFLICT (close_date) DO NOTHING`, snap.CloseDate, snap.Items, snap.Value())
	if err != nil {
		return shared.StorageError("inventory: insert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inventory: snapshot %s: %w", shared.FormatDate(snap.CloseDate), shared.ErrAlreadyExists)
	}
	return nil
}

// TotalByDate returns the stored value of the snapshot of date, zero when absent.
func (r *Repository) TotalByDate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT total_value FROM inventory_snapshots WHERE close_date = $1`, date).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, shared.StorageError("inventory: total", err)
	}
	return total, nil
}
