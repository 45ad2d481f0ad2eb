// Package sequence mints monotonically increasing document numbers.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

// Known counters.
const (
	PurchaseID     = "purchase_id"
	RouteNumber    = "route_number"
	InvoiceCounter = "invoice_counter"
)

// ErrUnknownCounter is returned for names outside the known set.
var ErrUnknownCounter = errors.New("sequence: unknown counter")

var known = map[string]struct{}{
	PurchaseID:     {},
	RouteNumber:    {},
	InvoiceCounter: {},
}

// Store performs an atomic increment-and-fetch, creating the counter at 1 when absent.
type Store interface {
	Increment(ctx context.Context, name string) (int64, error)
}

// Generator hands out counter values.
type Generator struct {
	store Store
}

// New constructs a Generator over store.
func New(store Store) *Generator {
	return &Generator{store: store}
}

// Next returns the next value of the named counter.
func (g *Generator) Next(ctx context.Context, name string) (int64, error) {
	if _, ok := known[name]; !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCounter, name)
	}
	value, err := g.store.Increment(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("sequence: next %s: %w", name, err)
	}
	return value, nil
}
