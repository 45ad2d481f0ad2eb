package orders

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

const orderColumns = `order_number, delivery_date, customer_name, customer_email, customer_phone, customer_document,
delivery_address, lines, total, payment_method, delivery_slot, open_hour, driver_name, status, payment_status,
invoice_id, total_paid`

// Repository provides Postgres access to orders.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs the repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// ListByDeliveryDate returns the orders delivered on date ordered by order number.
func (r *Repository) ListByDeliveryDate(ctx context.Context, date time.Time) ([]Order, error) {
	return r.list(ctx, "orders: list by date",
		`SELECT `+orderColumns+` FROM orders WHERE delivery_date = $1 ORDER BY order_number`, date)
}

// ListByRange returns the orders delivered within [from, to].
func (r *Repository) ListByRange(ctx context.Context, from, to time.Time) ([]Order, error) {
	return r.list(ctx, "orders: list by range",
		`SELECT `+orderColumns+` FROM orders WHERE delivery_date BETWEEN $1 AND $2 ORDER BY delivery_date, order_number`, from, to)
}

// ListPendingInvoice returns orders of date still carrying the no-invoice sentinel.
func (r *Repository) ListPendingInvoice(ctx context.Context, date time.Time) ([]Order, error) {
	return r.list(ctx, "orders: list pending invoice",
		`SELECT `+orderColumns+` FROM orders WHERE delivery_date = $1 AND invoice_id = $2 ORDER BY order_number`, date, NoInvoice)
}

// Get fetches a single order.
func (r *Repository) Get(ctx context.Context, number string) (Order, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("orders: %s: %w", number, shared.ErrNotFound)
	}
	if err != nil {
		return Order{}, shared.StorageError("orders: get", err)
	}
	return o, nil
}

// SetInvoiceID records the provider invoice id and moves freshly created orders to Facturada.
func (r *Repository) SetInvoiceID(ctx context.Context, number, invoiceID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE orders SET invoice_id = $2,
status = CASE WHEN status = $3 THEN $4 ELSE status END
WHERE order_number = $1`, number, invoiceID, string(StatusCreated), string(StatusInvoiced))
	if err != nil {
		return shared.StorageError("orders: set invoice id", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: %s: %w", number, shared.ErrNotFound)
	}
	return nil
}

// UpdatePayment copies delivery feedback onto the order. The lifecycle status only changes for
// paid or on-credit deliveries.
func (r *Repository) UpdatePayment(ctx context.Context, number, payment string, paid decimal.Decimal) error {
	var lifecycle *string
	if status, ok := LifecycleForPayment(payment); ok {
		s := string(status)
		lifecycle = &s
	}
	tag, err := r.db.Exec(ctx, `UPDATE orders SET payment_status = $2, total_paid = $3,
status = COALESCE($4::text, status)
WHERE order_number = $1`, number, payment, paid, lifecycle)
	if err != nil {
		return shared.StorageError("orders: update payment", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("orders: %s: %w", number, shared.ErrNotFound)
	}
	return nil
}

// SumOutstanding totals every order still pending payment, regardless of date.
func (r *Repository) SumOutstanding(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(total), 0) FROM orders WHERE status = $1`,
		string(StatusPendingPayment)).Scan(&total)
	if err != nil {
		return decimal.Zero, shared.StorageError("orders: sum outstanding", err)
	}
	return total, nil
}

func (r *Repository) list(ctx context.Context, op, sql string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, shared.StorageError(op, err)
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, shared.StorageError(op, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError(op, err)
	}
	return out, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.Number, &o.DeliveryDate, &o.Customer.Name, &o.Customer.Email, &o.Customer.Phone,
		&o.Customer.Document, &o.Customer.Address, &o.Lines, &o.Total, &o.PaymentMethod, &o.DeliverySlot,
		&o.OpenHour, &o.DriverName, &status, &o.PaymentStatus, &o.InvoiceID, &o.TotalPaid)
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)
	return o, nil
}
