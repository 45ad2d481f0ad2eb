package invoicing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/frescapp/backoffice/internal/shared"
)

// AlegraConfig configures the Alegra client.
type AlegraConfig struct {
	BaseURL          string
	User             string
	Token            string
	OrderTemplate    int
	OrderPrefix      string
	PurchaseTemplate int
}

// AlegraClient talks to the Alegra REST API.
type AlegraClient struct {
	cfg        AlegraConfig
	auth       string
	httpClient *http.Client
}

// NewAlegraClient constructs a new client.
func NewAlegraClient(cfg AlegraConfig) *AlegraClient {
	token := cfg.Token
	if cfg.User != "" {
		token = base64.StdEncoding.EncodeToString([]byte(cfg.User + ":" + cfg.Token))
	}
	return &AlegraClient{
		cfg:  cfg,
		auth: "Basic " + token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type alegraRef struct {
	ID string `json:"id"`
}

type alegraItem struct {
	ID       string  `json:"id"`
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}

type alegraTemplate struct {
	ID     int    `json:"id"`
	Prefix string `json:"prefix,omitempty"`
	Number string `json:"number,omitempty"`
}

type alegraInvoice struct {
	Date           string         `json:"date"`
	DueDate        string         `json:"dueDate"`
	Client         alegraRef      `json:"client"`
	Items          []alegraItem   `json:"items"`
	NumberTemplate alegraTemplate `json:"numberTemplate"`
	PaymentForm    string         `json:"paymentForm"`
	PaymentMethod  string         `json:"paymentMethod"`
	Observations   string         `json:"observations,omitempty"`
}

type alegraBill struct {
	Date           string         `json:"date"`
	DueDate        string         `json:"dueDate"`
	Provider       alegraRef      `json:"provider"`
	NumberTemplate alegraTemplate `json:"numberTemplate"`
	Purchases      struct {
		Items []alegraItem `json:"items"`
	} `json:"purchases"`
}

type alegraID struct {
	ID json.Number `json:"id"`
}

// CreateInvoice resolves the client and items then posts an invoice.
func (c *AlegraClient) CreateInvoice(ctx context.Context, inv Invoice) (string, error) {
	clientID, err := c.findContact(ctx, inv.ClientIdentification)
	if err != nil {
		return "", err
	}
	items, err := c.resolveItems(ctx, inv.Items)
	if err != nil {
		return "", err
	}
	date := shared.FormatDate(inv.Date)
	body := alegraInvoice{
		Date:           date,
		DueDate:        date,
		Client:         alegraRef{ID: clientID},
		Items:          items,
		NumberTemplate: alegraTemplate{ID: c.cfg.OrderTemplate, Prefix: c.cfg.OrderPrefix},
		PaymentForm:    "CASH",
		PaymentMethod:  paymentMethodCode(inv.PaymentMethod),
		Observations:   "Pedido " + inv.OrderNumber,
	}
	var out alegraID
	if err := c.do(ctx, http.MethodPost, "/invoices", nil, body, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID.String(), nil
}

// CreateSupportDocument resolves the supplier and items then posts a bill.
func (c *AlegraClient) CreateSupportDocument(ctx context.Context, doc SupportDocument) (string, error) {
	providerID, err := c.findContact(ctx, doc.SupplierNIT)
	if err != nil {
		return "", err
	}
	items, err := c.resolveItems(ctx, doc.Items)
	if err != nil {
		return "", err
	}
	date := shared.FormatDate(doc.Date)
	body := alegraBill{
		Date:           date,
		DueDate:        date,
		Provider:       alegraRef{ID: providerID},
		NumberTemplate: alegraTemplate{ID: c.cfg.PurchaseTemplate, Number: strconv.FormatInt(doc.Number, 10)},
	}
	body.Purchases.Items = items
	var out alegraID
	if err := c.do(ctx, http.MethodPost, "/bills", nil, body, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.ID.String(), nil
}

func (c *AlegraClient) findContact(ctx context.Context, identification string) (string, error) {
	identification = strings.TrimSpace(strings.SplitN(identification, "-", 2)[0])
	if identification == "" {
		return "", fmt.Errorf("invoicing: contact identification missing: %w", shared.ErrExternalCollaborator)
	}
	var contacts []alegraID
	if err := c.do(ctx, http.MethodGet, "/contacts", url.Values{"identification": {identification}}, nil, http.StatusOK, &contacts); err != nil {
		return "", err
	}
	if len(contacts) == 0 {
		return "", fmt.Errorf("invoicing: contact %s not registered: %w", identification, shared.ErrExternalCollaborator)
	}
	return contacts[0].ID.String(), nil
}

func (c *AlegraClient) resolveItems(ctx context.Context, items []Item) ([]alegraItem, error) {
	out := make([]alegraItem, 0, len(items))
	for _, it := range items {
		var found []alegraID
		if err := c.do(ctx, http.MethodGet, "/items", url.Values{"reference": {it.Reference}}, nil, http.StatusOK, &found); err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("invoicing: item %s not registered: %w", it.Reference, shared.ErrExternalCollaborator)
		}
		out = append(out, alegraItem{ID: found[0].ID.String(), Price: it.Price.InexactFloat64(), Quantity: it.Quantity.InexactFloat64()})
	}
	return out, nil
}

func (c *AlegraClient) do(ctx context.Context, method, path string, query url.Values, in any, want int, out any) error {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("invoicing: encode %s: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("invoicing: build %s: %w", path, err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("invoicing: %s %s timed out: %w: %w", method, path, shared.ErrExternalCollaborator, err)
		}
		return fmt.Errorf("invoicing: %s %s: %w: %v", method, path, shared.ErrExternalCollaborator, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("invoicing: %s %s returned status %d: %s: %w", method, path, resp.StatusCode, strings.TrimSpace(string(msg)), shared.ErrExternalCollaborator)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invoicing: decode %s: %w: %v", path, shared.ErrExternalCollaborator, err)
	}
	return nil
}

func paymentMethodCode(method string) string {
	switch strings.ToLower(method) {
	case "davivienda", "bancolombia", "transferencia":
		return "TRANSFER"
	default:
		return "CASH"
	}
}
