package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/frescapp/backoffice/internal/closing"
	jobmetrics "github.com/frescapp/backoffice/internal/jobs"
	"github.com/frescapp/backoffice/internal/shared"
)

// Closer runs the daily close.
type Closer interface {
	Close(ctx context.Context, date time.Time) (closing.Result, error)
}

// ClosingRunJob executes TaskClosingRun tasks.
type ClosingRunJob struct {
	Service  Closer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	Location *time.Location
	clock    func() time.Time
}

// NewClosingRunJob constructs the job handler.
func NewClosingRunJob(service Closer, loc *time.Location, logger *slog.Logger, metrics *jobmetrics.Metrics) *ClosingRunJob {
	return &ClosingRunJob{Service: service, Location: loc, Logger: logger, Metrics: metrics, clock: time.Now}
}

// Handle runs the close for the task date. Malformed payloads are not retried; a saga failure is,
// since every step is safe to repeat.
func (j *ClosingRunJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("closing run: service not configured")
	}
	date, err := decodeDate(task, shared.DateOf(j.clock(), j.Location))
	if err != nil {
		j.log().Warn("invalid closing payload", slog.Any("error", err))
		return fmt.Errorf("closing run: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskClosingRun)
	result, err := j.Service.Close(ctx, date)
	if err != nil {
		j.log().Error("closing run failed",
			slog.String("date", shared.FormatDate(date)),
			slog.String("run_id", result.RunID),
			slog.Any("error", err))
		return tracker.EndClose(string(result.State), err)
	}
	j.log().Info("closing run finished",
		slog.String("date", shared.FormatDate(date)),
		slog.String("run_id", result.RunID),
		slog.String("state", string(result.State)))
	return tracker.EndClose(string(result.State), nil)
}

func (j *ClosingRunJob) log() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskClosingRun))
	}
	return slog.Default().With(slog.String("job", TaskClosingRun))
}

// WithClock overrides the internal clock for deterministic tests.
func (j *ClosingRunJob) WithClock(clock func() time.Time) {
	if j != nil && clock != nil {
		j.clock = clock
	}
}
