package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/frescapp/backoffice/internal/economics"
	jobmetrics "github.com/frescapp/backoffice/internal/jobs"
	"github.com/frescapp/backoffice/internal/shared"
)

// Refresher recomputes period statements.
type Refresher interface {
	Refresh(ctx context.Context, base time.Time) ([]economics.PeriodRecord, error)
}

// EconomicsRefreshJob executes TaskEconomicsRefresh tasks.
type EconomicsRefreshJob struct {
	Service  Refresher
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewEconomicsRefreshJob constructs the job handler.
func NewEconomicsRefreshJob(service Refresher, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *EconomicsRefreshJob {
	return &EconomicsRefreshJob{Service: service, Location: loc, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle refreshes the periods around the task date, or today's business date when none is given.
func (j *EconomicsRefreshJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("economics refresh: service not configured")
	}
	base, err := decodeDate(task, shared.DateOf(j.clock(), j.Location))
	if err != nil {
		return fmt.Errorf("economics refresh: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskEconomicsRefresh)
	records, err := j.Service.Refresh(ctx, base)
	if err != nil {
		j.log().Error("refresh periods", slog.String("date", shared.FormatDate(base)), slog.Any("error", err))
		return tracker.End(err)
	}
	j.log().Info("refreshed periods", slog.String("date", shared.FormatDate(base)), slog.Int("records", len(records)))
	return tracker.End(nil)
}

func (j *EconomicsRefreshJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskEconomicsRefresh))
	}
	return slog.Default().With(slog.String("job", TaskEconomicsRefresh))
}

// WithClock overrides the internal clock for deterministic tests.
func (j *EconomicsRefreshJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
