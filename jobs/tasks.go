package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/frescapp/backoffice/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskClosingRun runs the daily close for one date.
	TaskClosingRun = "closing:run"
	// TaskEconomicsRefresh recomputes the week and month unit economics around one date.
	TaskEconomicsRefresh = "economics:refresh"
)

// DatePayload carries the business date a task operates on. An empty date means
// the current business date when the task runs.
type DatePayload struct {
	Date string `json:"date,omitempty"`
}

// NewClosingRunTask constructs the task closing date.
func NewClosingRunTask(date time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(DatePayload{Date: shared.FormatDate(date)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClosingRun, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewEconomicsRefreshTask constructs the refresh task. A zero date defers the choice to the handler.
func NewEconomicsRefreshTask(date time.Time) (*asynq.Task, error) {
	payload := DatePayload{}
	if !date.IsZero() {
		payload.Date = shared.FormatDate(date)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEconomicsRefresh, body, asynq.Queue(QueueDefault)), nil
}

func decodeDate(t *asynq.Task, today time.Time) (time.Time, error) {
	var payload DatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return time.Time{}, err
	}
	if payload.Date == "" {
		return today, nil
	}
	return shared.ParseDate(payload.Date)
}
