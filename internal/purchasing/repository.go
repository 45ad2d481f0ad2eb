package purchasing

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

const purchaseColumns = `purchase_number, purchase_date, status, cash_delivered, comments, lines`

// Repository provides Postgres access to purchases and suppliers.
type Repository struct {
	pool db.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByDate returns the purchase of date.
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE purchase_date = $1`, date)
	p, err := scanPurchase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, fmt.Errorf("purchasing: purchase for %s: %w", shared.FormatDate(date), shared.ErrNotFound)
	}
	if err != nil {
		return Purchase{}, shared.StorageError("purchasing: get by date", err)
	}
	return p, nil
}

// GetByNumber returns the purchase with number.
func (r *Repository) GetByNumber(ctx context.Context, number int64) (Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE purchase_number = $1`, number)
	p, err := scanPurchase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Purchase{}, fmt.Errorf("purchasing: purchase %d: %w", number, shared.ErrNotFound)
	}
	if err != nil {
		return Purchase{}, shared.StorageError("purchasing: get by number", err)
	}
	return p, nil
}

// Insert stores a purchase; a second purchase for the same date yields ErrAlreadyExists.
func (r *Repository) Insert(ctx context.Context, p Purchase) error {
	tag, err := r.pool.Exec(ctx, `INSERT INTO purchases (purchase_number, purchase_date, status, cash_delivered, comments, lines)
VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (purchase_date) DO NOTHING`,
		p.Number, p.Date, string(p.Status), p.CashDelivered, p.Comments, p.Lines)
	if err != nil {
		return shared.StorageError("purchasing: insert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchasing: purchase for %s: %w", shared.FormatDate(p.Date), shared.ErrAlreadyExists)
	}
	return nil
}

// UpdateLines locks the purchase row, lets fn rewrite its lines and persists the result.
func (r *Repository) UpdateLines(ctx context.Context, number int64, fn func([]Line) ([]Line, error)) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var lines []Line
		err := tx.QueryRow(ctx, `SELECT lines FROM purchases WHERE purchase_number = $1 FOR UPDATE`, number).Scan(&lines)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("purchasing: purchase %d: %w", number, shared.ErrNotFound)
		}
		if err != nil {
			return shared.StorageError("purchasing: lock lines", err)
		}
		updated, err := fn(lines)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE purchases SET lines = $2 WHERE purchase_number = $1`, number, updated); err != nil {
			return shared.StorageError("purchasing: update lines", err)
		}
		return nil
	})
}

// MarkInvoiced sets the purchase status to Facturada.
func (r *Repository) MarkInvoiced(ctx context.Context, number int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE purchases SET status = $2 WHERE purchase_number = $1`, number, string(StatusInvoiced))
	if err != nil {
		return shared.StorageError("purchasing: mark invoiced", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("purchasing: purchase %d: %w", number, shared.ErrNotFound)
	}
	return nil
}

// ListByRange returns the purchases dated within [from, to].
func (r *Repository) ListByRange(ctx context.Context, from, to time.Time) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE purchase_date BETWEEN $1 AND $2 ORDER BY purchase_date`, from, to)
	if err != nil {
		return nil, shared.StorageError("purchasing: list by range", err)
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, shared.StorageError("purchasing: scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("purchasing: list by range", err)
	}
	return out, nil
}

// TotalByDate returns the confirmed value of the purchase of date, zero when there is none.
func (r *Repository) TotalByDate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	p, err := r.GetByDate(ctx, date)
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return p.Value(), nil
}

// Suppliers returns the supplier directory keyed by nickname.
func (r *Repository) Suppliers(ctx context.Context) (map[string]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT nickname, name, nit, type_support, type_transaction FROM suppliers`)
	if err != nil {
		return nil, shared.StorageError("purchasing: list suppliers", err)
	}
	defer rows.Close()
	out := make(map[string]Supplier)
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.Nickname, &s.Name, &s.NIT, &s.SupportType, &s.PaymentType); err != nil {
			return nil, shared.StorageError("purchasing: scan supplier", err)
		}
		out[s.Nickname] = s
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("purchasing: list suppliers", err)
	}
	return out, nil
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var (
		p      Purchase
		status string
	)
	if err := row.Scan(&p.Number, &p.Date, &status, &p.CashDelivered, &p.Comments, &p.Lines); err != nil {
		return Purchase{}, err
	}
	p.Status = Status(status)
	return p, nil
}
