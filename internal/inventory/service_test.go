package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/frescapp/backoffice/internal/shared"
)

type memoryRepo struct {
	snapshots map[string]Snapshot
	inserts   int
}

func newMemoryRepo(snaps ...Snapshot) *memoryRepo {
	r := &memoryRepo{snapshots: make(map[string]Snapshot)}
	for _, s := range snaps {
		r.snapshots[shared.FormatDate(s.CloseDate)] = s
	}
	return r
}

func (r *memoryRepo) GetByDate(_ context.Context, date time.Time) (Snapshot, error) {
	snap, ok := r.snapshots[shared.FormatDate(date)]
	if !ok {
		return Snapshot{}, fmt.Errorf("memory: %w", shared.ErrNotFound)
	}
	return snap, nil
}

func (r *memoryRepo) Insert(_ context.Context, snap Snapshot) error {
	key := shared.FormatDate(snap.CloseDate)
	if _, ok := r.snapshots[key]; ok {
		return fmt.Errorf("memory: %w", shared.ErrAlreadyExists)
	}
	r.inserts++
	r.snapshots[key] = snap
	return nil
}

type stubReceipts []Receipt

func (s stubReceipts) Receipts(context.Context, time.Time) ([]Receipt, error) { return s, nil }

type stubDemand map[string]decimal.Decimal

func (s stubDemand) Demand(context.Context, time.Time) (map[string]decimal.Decimal, error) {
	return s, nil
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func day(s string) time.Time {
	t, _ := shared.ParseDate(s)
	return t
}

func TestCarryOverDuplicatesSaturdaySnapshot(t *testing.T) {
	saturday := day("2024-03-09")
	source := Snapshot{CloseDate: saturday, Items: []Item{
		{SKU: "TOM-01", Quantity: dec("4"), Cost: dec("1000")},
		{SKU: "CEB-01", Quantity: dec("2.5"), Cost: dec("800")},
	}}
	repo := newMemoryRepo(source)
	svc := NewService(repo, stubReceipts(nil), stubDemand(nil), nil)

	snap, err := svc.CarryOver(context.Background(), saturday, shared.NextDay(saturday))
	require.NoError(t, err)
	require.Equal(t, "2024-03-10", shared.FormatDate(snap.CloseDate))
	require.Equal(t, source.Items, snap.Items)
	require.True(t, source.Value().Equal(snap.Value()))

	_, err = svc.CarryOver(context.Background(), saturday, shared.NextDay(saturday))
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
	require.Equal(t, 1, repo.inserts)
}

func TestCarryOverWithoutSourceIsNothingToDo(t *testing.T) {
	svc := NewService(newMemoryRepo(), stubReceipts(nil), stubDemand(nil), nil)
	_, err := svc.CarryOver(context.Background(), day("2024-03-09"), day("2024-03-10"))
	require.ErrorIs(t, err, shared.ErrNothingToDo)
}

func TestProjectForAveragesReceiptsAndDepletesDemand(t *testing.T) {
	opening := Snapshot{CloseDate: day("2024-03-11"), Items: []Item{
		{SKU: "TOM-01", Quantity: dec("4"), Cost: dec("1000")},
		{SKU: "PAP-01", Quantity: dec("1"), Cost: dec("500")},
	}}
	repo := newMemoryRepo(opening)
	receipts := stubReceipts{
		{SKU: "TOM-01", Quantity: dec("6"), UnitCost: dec("2000")},
		{SKU: "LIM-01", Name: "Limon", Quantity: dec("3"), UnitCost: dec("300")},
	}
	demand := stubDemand{"TOM-01": dec("7"), "PAP-01": dec("2")}
	svc := NewService(repo, receipts, demand, nil)

	snap, err := svc.ProjectFor(context.Background(), day("2024-03-12"))
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)

	require.Equal(t, "LIM-01", snap.Items[0].SKU)
	require.True(t, dec("3").Equal(snap.Items[0].Quantity))

	tom := snap.Items[1]
	require.Equal(t, "TOM-01", tom.SKU)
	require.True(t, dec("3").Equal(tom.Quantity), tom.Quantity.String())
	require.True(t, dec("1600").Equal(tom.Cost), tom.Cost.String())

	_, err = svc.ProjectFor(context.Background(), day("2024-03-12"))
	require.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestProjectForWithoutOpeningSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, stubReceipts{{SKU: "A", Quantity: dec("2"), UnitCost: dec("10")}}, stubDemand{}, nil)

	snap, err := svc.ProjectFor(context.Background(), day("2024-03-12"))
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	require.True(t, dec("20").Equal(snap.Value()))
}
