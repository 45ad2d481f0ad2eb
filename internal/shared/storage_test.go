package shared

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageErrorClassifiesConnectivity(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	err := StorageError("orders: list", dialErr)
	require.ErrorIs(t, err, ErrStorageUnavailable)
	require.ErrorIs(t, err, dialErr)
}

func TestStorageErrorLeavesContextExpiryToCaller(t *testing.T) {
	err := StorageError("orders: list", fmt.Errorf("wrapped: %w", context.DeadlineExceeded))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, errors.Is(err, ErrStorageUnavailable))
	require.False(t, IsUnavailable(context.Canceled))
}

func TestStorageErrorKeepsOtherFailures(t *testing.T) {
	err := StorageError("orders: scan", errors.New("bad column"))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrStorageUnavailable))
	require.Contains(t, err.Error(), "orders: scan")
	require.NoError(t, StorageError("noop", nil))
}
