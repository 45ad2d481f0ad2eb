package closinghttp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/frescapp/backoffice/internal/closing"
	"github.com/frescapp/backoffice/internal/shared"
)

type stubClosingService struct {
	closeFn  func(ctx context.Context, date time.Time) (closing.Result, error)
	listFn   func(ctx context.Context, limit int) ([]closing.Record, error)
	detailFn func(ctx context.Context, date time.Time) (closing.Detail, error)
}

func (s *stubClosingService) Close(ctx context.Context, date time.Time) (closing.Result, error) {
	return s.closeFn(ctx, date)
}

func (s *stubClosingService) List(ctx context.Context, limit int) ([]closing.Record, error) {
	return s.listFn(ctx, limit)
}

func (s *stubClosingService) Detail(ctx context.Context, date time.Time) (closing.Detail, error) {
	return s.detailFn(ctx, date)
}

type stubQueue struct{ dates []time.Time }

func (q *stubQueue) EnqueueClose(_ context.Context, date time.Time) (string, error) {
	q.dates = append(q.dates, date)
	return "task-1", nil
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestRunReturnsResult(t *testing.T) {
	svc := &stubClosingService{closeFn: func(_ context.Context, date time.Time) (closing.Result, error) {
		if shared.FormatDate(date) != "2024-03-06" {
			t.Fatalf("unexpected date %s", shared.FormatDate(date))
		}
		return closing.Result{Date: date, State: closing.StateClosed}, nil
	}}
	rr := httptest.NewRecorder()
	newRouter(NewHandler(nil, svc, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cierres/2024-03-06", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body closing.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.State != closing.StateClosed {
		t.Fatalf("unexpected state %s", body.State)
	}
}

func TestRunReportsFailedStep(t *testing.T) {
	cases := map[string]struct {
		cause  error
		status int
	}{
		"collaborator": {fmt.Errorf("alegra: %w", shared.ErrExternalCollaborator), http.StatusBadGateway},
		"storage":      {fmt.Errorf("pg: %w", shared.ErrStorageUnavailable), http.StatusServiceUnavailable},
		"cost data":    {fmt.Errorf("costing: %w", shared.ErrCostDataMissing), http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &stubClosingService{closeFn: func(_ context.Context, date time.Time) (closing.Result, error) {
				res := closing.Result{Date: date, State: closing.StateFailed, Failed: &closing.Failure{Step: closing.StepInvoicePurchase, Cause: tc.cause.Error()}}
				return res, &closing.StepError{Step: closing.StepInvoicePurchase, Err: tc.cause}
			}}
			rr := httptest.NewRecorder()
			newRouter(NewHandler(nil, svc, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cierres/2024-03-06", nil))

			if rr.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rr.Code)
			}
			var body closing.Result
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Failed == nil || body.Failed.Step != closing.StepInvoicePurchase {
				t.Fatalf("expected failed step in body, got %+v", body.Failed)
			}
		})
	}
}

func TestRunRejectsBadDate(t *testing.T) {
	svc := &stubClosingService{closeFn: func(context.Context, time.Time) (closing.Result, error) {
		t.Fatal("service must not be called")
		return closing.Result{}, nil
	}}
	rr := httptest.NewRecorder()
	newRouter(NewHandler(nil, svc, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cierres/06-03-2024", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestRunInProgress(t *testing.T) {
	svc := &stubClosingService{closeFn: func(context.Context, time.Time) (closing.Result, error) {
		return closing.Result{}, fmt.Errorf("closing: %w", shared.ErrCloseInProgress)
	}}
	rr := httptest.NewRecorder()
	newRouter(NewHandler(nil, svc, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cierres/2024-03-06", nil))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestEnqueue(t *testing.T) {
	queue := &stubQueue{}
	rr := httptest.NewRecorder()
	newRouter(NewHandler(nil, &stubClosingService{}, queue)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cierres/2024-03-06/async", nil))

	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if len(queue.dates) != 1 || shared.FormatDate(queue.dates[0]) != "2024-03-06" {
		t.Fatalf("unexpected enqueued dates %v", queue.dates)
	}

	rr = httptest.NewRecorder()
	newRouter(NewHandler(nil, &stubClosingService{}, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/cierres/2024-03-06/async", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without queue, got %d", rr.Code)
	}
}

func TestListAndDetail(t *testing.T) {
	svc := &stubClosingService{
		listFn: func(_ context.Context, limit int) ([]closing.Record, error) {
			if limit != 5 {
				t.Fatalf("expected limit 5, got %d", limit)
			}
			return []closing.Record{{GMV: decimal.NewFromInt(100)}}, nil
		},
		detailFn: func(_ context.Context, date time.Time) (closing.Detail, error) {
			if shared.FormatDate(date) == "2024-03-07" {
				return closing.Detail{}, fmt.Errorf("closing: %w", shared.ErrNotFound)
			}
			return closing.Detail{Record: closing.Record{CloseDate: date}}, nil
		},
	}
	router := newRouter(NewHandler(nil, svc, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cierres/?limit=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cierres/2024-03-06/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("detail: expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/cierres/2024-03-07/", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("detail: expected 404, got %d", rr.Code)
	}
}
