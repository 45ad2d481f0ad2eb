package invoicing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/frescapp/backoffice/internal/shared"
)

func newAlegraServer(t *testing.T, invoiceStatus int, captured *map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/contacts", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Basic tok", r.Header.Get("Authorization"))
		if r.URL.Query().Get("identification") == "900123" {
			_, _ = w.Write([]byte(`[{"id":"55"}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("reference") == "TOM-01" {
			_, _ = w.Write([]byte(`[{"id":7}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	handle := func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if captured != nil {
			*captured = body
		}
		w.WriteHeader(invoiceStatus)
		_, _ = w.Write([]byte(`{"id":"991"}`))
	}
	mux.HandleFunc("/invoices", handle)
	mux.HandleFunc("/bills", handle)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAlegraCreateInvoice(t *testing.T) {
	var body map[string]any
	srv := newAlegraServer(t, http.StatusCreated, &body)
	client := NewAlegraClient(AlegraConfig{BaseURL: srv.URL, Token: "tok", OrderTemplate: 16, OrderPrefix: "FRES"})

	id, err := client.CreateInvoice(context.Background(), Invoice{
		OrderNumber:          "F-1",
		Date:                 time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		ClientIdentification: "900123-4",
		Items:                []Item{{Reference: "TOM-01", Price: decimal.NewFromInt(2500), Quantity: decimal.NewFromInt(2)}},
	})
	require.NoError(t, err)
	require.Equal(t, "991", id)
	require.Equal(t, "2024-03-12", body["date"])
	template := body["numberTemplate"].(map[string]any)
	require.Equal(t, float64(16), template["id"])
	require.Equal(t, "FRES", template["prefix"])
	items := body["items"].([]any)
	require.Equal(t, "7", items[0].(map[string]any)["id"])
	require.Equal(t, float64(2500), items[0].(map[string]any)["price"])
}

func TestAlegraSupportDocumentCarriesNumber(t *testing.T) {
	var body map[string]any
	srv := newAlegraServer(t, http.StatusCreated, &body)
	client := NewAlegraClient(AlegraConfig{BaseURL: srv.URL, Token: "tok", PurchaseTemplate: 17})

	_, err := client.CreateSupportDocument(context.Background(), SupportDocument{
		Number:      88,
		Date:        time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		SupplierNIT: "900123",
		Items:       []Item{{Reference: "TOM-01", Price: decimal.NewFromInt(2000), Quantity: decimal.NewFromInt(3)}},
	})
	require.NoError(t, err)
	template := body["numberTemplate"].(map[string]any)
	require.Equal(t, "88", template["number"])
	require.Equal(t, "55", body["provider"].(map[string]any)["id"])
}

func TestAlegraErrorsWrapCollaborator(t *testing.T) {
	srv := newAlegraServer(t, http.StatusBadRequest, nil)
	client := NewAlegraClient(AlegraConfig{BaseURL: srv.URL, Token: "tok"})

	_, err := client.CreateInvoice(context.Background(), Invoice{
		ClientIdentification: "900123",
		Items:                []Item{{Reference: "TOM-01"}},
	})
	require.ErrorIs(t, err, shared.ErrExternalCollaborator)
	require.Contains(t, err.Error(), "400")

	_, err = client.CreateInvoice(context.Background(), Invoice{ClientIdentification: "111"})
	require.ErrorIs(t, err, shared.ErrExternalCollaborator)

	_, err = client.CreateInvoice(context.Background(), Invoice{ClientIdentification: "900123", Items: []Item{{Reference: "NOPE"}}})
	require.ErrorIs(t, err, shared.ErrExternalCollaborator)
}
