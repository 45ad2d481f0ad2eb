package closing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/frescapp/backoffice/internal/platform/db"
	"github.com/frescapp/backoffice/internal/shared"
)

// Repository provides Postgres persistence for closing records.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// Exists reports whether date already has a closing record.
func (r *Repository) Exists(ctx context.Context, date time.Time) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM closing_records WHERE close_date = $1)`, date).Scan(&exists); err != nil {
		return false, shared.StorageError("closing: exists", err)
	}
	return exists, nil
}

// Insert writes rec once; the unique close_date index turns a racing second insert into ErrDuplicateCloseAttempt.
func (r *Repository) Insert(ctx context.Context, rec Record) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO closing_records (close_date, run_id, record, created_at)
VALUES ($1, $2, $3, $4) ON CONFLICT (close_date) DO NOTHING`, rec.CloseDate, rec.RunID, rec, rec.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("closing: record for %s: %w", shared.FormatDate(rec.CloseDate), shared.ErrDuplicateCloseAttempt)
		}
		return shared.StorageError("closing: insert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("closing: record for %s: %w", shared.FormatDate(rec.CloseDate), shared.ErrDuplicateCloseAttempt)
	}
	return nil
}

// Get returns the record of date.
func (r *Repository) Get(ctx context.Context, date time.Time) (Record, error) {
	var rec Record
	err := r.db.QueryRow(ctx, `SELECT record FROM closing_records WHERE close_date = $1`, date).Scan(&rec)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("closing: record for %s: %w", shared.FormatDate(date), shared.ErrNotFound)
	}
	if err != nil {
		return Record{}, shared.StorageError("closing: get", err)
	}
	return rec, nil
}

// List returns up to limit records, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT record FROM closing_records ORDER BY close_date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, shared.StorageError("closing: list", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec); err != nil {
			return nil, shared.StorageError("closing: scan", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("closing: list", err)
	}
	return out, nil
}
