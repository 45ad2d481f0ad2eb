package sequence

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/frescapp/backoffice/internal/shared"
)

func newRedisGenerator(t *testing.T) (*Generator, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), PoolSize: 50})
	t.Cleanup(func() { _ = client.Close() })
	return New(NewRedisStore(client)), mr
}

func TestNextStartsAtOne(t *testing.T) {
	gen, mr := newRedisGenerator(t)

	first, err := gen.Next(context.Background(), PurchaseID)
	require.NoError(t, err)
	require.Equal(t, int64(1), first)

	second, err := gen.Next(context.Background(), PurchaseID)
	require.NoError(t, err)
	require.Equal(t, int64(2), second)
	mr.CheckGet(t, "seq:purchase_id", "2")
}

func TestNextConcurrentCallersGetContiguousRun(t *testing.T) {
	gen, mr := newRedisGenerator(t)
	require.NoError(t, mr.Set("seq:route_number", "41"))

	const callers = 50
	values := make([]int64, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			values[i], errs[i] = gen.Next(context.Background(), RouteNumber)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		require.Equal(t, int64(42+i), v)
	}
}

func TestNextRejectsUnknownCounter(t *testing.T) {
	gen, _ := newRedisGenerator(t)
	_, err := gen.Next(context.Background(), "order_id")
	require.ErrorIs(t, err, ErrUnknownCounter)
}

func TestNextReportsStorageUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := New(NewRedisStore(client)).Next(context.Background(), InvoiceCounter)
	require.ErrorIs(t, err, shared.ErrStorageUnavailable)
}

type fakeRow struct {
	value int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

type fakeConn struct {
	mu     sync.Mutex
	values map[string]int64
	sql    []string
	err    error
}

func (c *fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("unexpected exec")
}

func (c *fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("unexpected query")
}

func (c *fakeConn) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sql = append(c.sql, sql)
	if c.err != nil {
		return fakeRow{err: c.err}
	}
	name := args[0].(string)
	c.values[name]++
	return fakeRow{value: c.values[name]}
}

func TestPGStoreUsesSingleUpsert(t *testing.T) {
	conn := &fakeConn{values: map[string]int64{}}
	gen := New(NewPGStore(conn))

	v, err := gen.Next(context.Background(), PurchaseID)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)
	require.Len(t, conn.sql, 1)
	require.True(t, strings.Contains(conn.sql[0], "ON CONFLICT (name) DO UPDATE"))
	require.True(t, strings.Contains(conn.sql[0], "RETURNING value"))
}

func TestPGStoreMapsConnectErrors(t *testing.T) {
	conn := &fakeConn{err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}}
	_, err := New(NewPGStore(conn)).Next(context.Background(), PurchaseID)
	require.ErrorIs(t, err, shared.ErrStorageUnavailable)
}
