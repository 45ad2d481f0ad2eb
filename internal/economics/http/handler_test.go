package economicshttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/frescapp/backoffice/internal/economics"
	"github.com/frescapp/backoffice/internal/shared"
)

type stubService struct {
	refreshed []time.Time
	ranges    [][2]time.Time
}

func (s *stubService) Refresh(_ context.Context, base time.Time) ([]economics.PeriodRecord, error) {
	s.refreshed = append(s.refreshed, base)
	week, month := economics.Periods(base)
	return []economics.PeriodRecord{{Period: week}, {Period: month}}, nil
}

func (s *stubService) Periods(_ context.Context, periodType string) ([]economics.PeriodRecord, error) {
	if periodType != economics.PeriodWeekly {
		return nil, shared.ErrInvalidInput
	}
	return []economics.PeriodRecord{}, nil
}

func (s *stubService) DailySeries(_ context.Context, from, to time.Time) ([]economics.DailyPoint, error) {
	s.ranges = append(s.ranges, [2]time.Time{from, to})
	return nil, nil
}

func serve(h *Handler, req *http.Request) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestRefresh(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(nil, svc)

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/ue/refresh", strings.NewReader(`{"dateUpdate":"2024-03-06"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Semana 10")
	require.Len(t, svc.refreshed, 1)

	rr = serve(h, httptest.NewRequest(http.MethodPost, "/api/ue/refresh", strings.NewReader(`{"dateUpdate":"06/03/2024"}`)))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Len(t, svc.refreshed, 1)
}

func TestPeriodsByType(t *testing.T) {
	h := NewHandler(nil, &stubService{})

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/ue/Semanal", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/api/ue/Anual", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCostsRequiresRange(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(nil, svc)

	rr := serve(h, httptest.NewRequest(http.MethodGet, "/api/analytics/costs?from=2024-03-01&to=2024-03-07", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, svc.ranges, 1)

	rr = serve(h, httptest.NewRequest(http.MethodGet, "/api/analytics/costs?from=2024-03-01", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
