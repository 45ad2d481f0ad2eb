package jobmetrics

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/frescapp/backoffice/internal/shared"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("closing:run").End(nil))
	err := errors.New("boom")
	require.ErrorIs(t, m.Track("closing:run").End(err), err)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("closing:run", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("closing:run", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("closing:run")))
}

func TestTrackerClassifiesClosingErrors(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	inProgress := fmt.Errorf("closing: 2024-03-06: %w", shared.ErrCloseInProgress)
	require.ErrorIs(t, m.Track("closing:run").EndClose("", inProgress), shared.ErrCloseInProgress)
	down := shared.StorageError("closing: obtain lock", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")})
	require.Error(t, m.Track("closing:run").EndClose("Failed", down))
	require.NoError(t, m.Track("closing:run").EndClose("Closed", nil))

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("closing:run", StatusContended)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("closing:run", StatusUnavailable)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("closing:run")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.closeRuns.WithLabelValues("Closed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.closeRuns.WithLabelValues("Failed")))
}

func TestObserveStep(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveStep("create_route", "done")
	m.ObserveStep("create_route", "done")
	m.ObserveStep("invoice_purchase", "skipped")

	require.Equal(t, 2.0, testutil.ToFloat64(m.steps.WithLabelValues("create_route", "done")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("invoice_purchase", "skipped")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveStep("create_route", "done")
	require.NoError(t, m.Track("x").End(nil))
	require.NoError(t, m.Track("x").EndClose("Closed", nil))
}
