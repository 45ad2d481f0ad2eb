package routing

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

const routeColumns = `route_number, route_date, stops, cost`

// Repository provides Postgres access to routes.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs the repository.
func NewRepository(conn db.DBTX) *Repository {
	return &Repository{db: conn}
}

// GetByDate returns the route of date.
func (r *Repository) GetByDate(ctx context.Context, date time.Time) (Route, error) {
	route, err := scanRoute(r.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE route_date = $1`, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, fmt.Errorf("routing: route for %s: %w", shared.FormatDate(date), shared.ErrNotFound)
	}
	if err != nil {
		return Route{}, shared.StorageError("routing: get by date", err)
	}
	return route, nil
}

// GetByNumber returns the route with number.
func (r *Repository) GetByNumber(ctx context.Context, number int64) (Route, error) {
	route, err := scanRoute(r.db.QueryRow(ctx, `SELECT `+routeColumns+` FROM routes WHERE route_number = $1`, number))
	if errors.Is(err, pgx.ErrNoRows) {
		return Route{}, fmt.Errorf("routing: route %d: %w", number, shared.ErrNotFound)
	}
	if err != nil {
		return Route{}, shared.StorageError("routing: get by number", err)
	}
	return route, nil
}

// Insert stores a route; a second route for the same date yields ErrAlreadyExists.
func (r *Repository) Insert(ctx context.Context, route Route) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO routes (route_number, route_date, stops, cost) VALUES ($1, $2, $3, $4)
ON CONFLICT (route_date) DO NOTHING`, route.Number, route.Date, route.Stops, route.Cost)
	if err != nil {
		return shared.StorageError("routing: insert", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("routing: route for %s: %w", shared.FormatDate(route.Date), shared.ErrAlreadyExists)
	}
	return nil
}

// UpdateStops replaces the stops and logistics cost of a route.
func (r *Repository) UpdateStops(ctx context.Context, number int64, stops []Stop, cost decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE routes SET stops = $2, cost = $3 WHERE route_number = $1`, number, stops, cost)
	if err != nil {
		return shared.StorageError("routing: update stops", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("routing: route %d: %w", number, shared.ErrNotFound)
	}
	return nil
}

// ListByRange returns routes dated within [from, to].
func (r *Repository) ListByRange(ctx context.Context, from, to time.Time) ([]Route, error) {
	rows, err := r.db.Query(ctx, `SELECT `+routeColumns+` FROM routes WHERE route_date BETWEEN $1 AND $2 ORDER BY route_date`, from, to)
	if err != nil {
		return nil, shared.StorageError("routing: list by range", err)
	}
	defer rows.Close()
	var out []Route
	for rows.Next() {
		route, err := scanRoute(rows)
		if err != nil {
			return nil, shared.StorageError("routing: scan", err)
		}
		out = append(out, route)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.StorageError("routing: list by range", err)
	}
	return out, nil
}

func scanRoute(row pgx.Row) (Route, error) {
	var route Route
	if err := row.Scan(&route.Number, &route.Date, &route.Stops, &route.Cost); err != nil {
		return Route{}, err
	}
	return route, nil
}
