package economics

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/frescapp/backoffice/internal/platform/db"
	"github.com/frescapp/backoffice/internal/shared"
)

// Repository provides Postgres access to fixed costs and unit-economics records.
type Repository struct {
	pool db.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

// FixedCosts returns cost rows configured for a period label.
func (r *Repository) FixedCosts(ctx context.Context, periodType, label string, year int) ([]FixedCost, error) {
	rows, err := r.pool.Query(ctx, `SELECT cost_type, period_type, period_label, year, amount FROM fixed_costs
WHERE period_type = $1 AND period_label = $2 AND year = $3`, periodType, label, year)
	if err != nil {
		return nil, shared.StorageError("economics: fixed costs", err)
	}
	defer rows.Close()
	var out []FixedCost
	for rows.Next() {
		var c FixedCost
		if err := rows.Scan(&c.Type, &c.PeriodType, &c.PeriodLabel, &c.Year, &c.Amount); err != nil {
			return nil, shared.StorageError("economics: scan fixed cost", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("economics: fixed costs", err)
	}
	return out, nil
}

// ReplacePeriod deletes the stored record of the period and inserts rec in one transaction.
func (r *Repository) ReplacePeriod(ctx context.Context, rec PeriodRecord) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM unit_economics WHERE tipo = $1 AND periodo = $2 AND year = $3`,
			rec.Type, rec.Key, rec.Year); err != nil {
			return shared.StorageError("economics: delete period", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO unit_economics (tipo, periodo, year, period_from, period_to, record, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, rec.Type, rec.Key, rec.Year, rec.From, rec.To, rec, rec.UpdatedAt); err != nil {
			return shared.StorageError("economics: insert period", err)
		}
		return nil
	})
}

// ListPeriods returns stored records of a type, newest first.
func (r *Repository) ListPeriods(ctx context.Context, periodType string) ([]PeriodRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT record FROM unit_economics WHERE tipo = $1 ORDER BY period_from DESC`, periodType)
	if err != nil {
		return nil, shared.StorageError("economics: list periods", err)
	}
	defer rows.Close()
	var out []PeriodRecord
	for rows.Next() {
		var rec PeriodRecord
		if err := rows.Scan(&rec); err != nil {
			return nil, shared.StorageError("economics: scan period", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("economics: list periods", err)
	}
	return out, nil
}
