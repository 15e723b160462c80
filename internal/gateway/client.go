// Package gateway implements the hosted-checkout payment gateway boundary.
// The core only stores the transaction id correlation (external_reference);
// everything else about the gateway stays behind this client.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/port"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

const (
	preferencesPath = "/checkout/preferences"
	paymentsPath    = "/v1/payments/%s"
)

// Client talks to a Mercado-Pago-style REST API.
type Client struct {
	baseURL     string
	accessToken string
	webhookURL  string
	backURL     string
	httpClient  *http.Client
	logger      *zap.Logger
}

var _ port.PaymentGateway = (*Client)(nil)

// NewClient builds the gateway client from configuration.
func NewClient(cfg config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL:     cfg.Gateway.BaseURL,
		accessToken: cfg.Gateway.AccessToken,
		webhookURL:  cfg.Gateway.WebhookURL,
		backURL:     cfg.Gateway.BackURL,
		httpClient:  &http.Client{Timeout: cfg.Gateway.Timeout},
		logger:      logger,
	}
}

type preferenceItem struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type preferenceRequest struct {
	ExternalReference string           `json:"external_reference"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	BackURL           string           `json:"back_url,omitempty"`
	Items             []preferenceItem `json:"items"`
	Payer             struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"payer"`
}

type preferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// CreateCheckout registers a checkout preference keyed by the order's
// transaction id and returns the redirect URL.
func (c *Client) CreateCheckout(ctx context.Context, order *entity.Order) (port.CheckoutSession, error) {
	req := preferenceRequest{
		ExternalReference: order.TxID,
		NotificationURL:   c.webhookURL,
		BackURL:           c.backURL,
	}
	req.Payer.Name = order.CustomerName
	req.Payer.Email = order.CustomerEmail
	for _, item := range order.Items {
		title := item.SKU
		if item.Flavor != "" {
			title = fmt.Sprintf("%s %s", item.SKU, item.Flavor)
		}
		req.Items = append(req.Items, preferenceItem{
			Title:     title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}

	var resp preferenceResponse
	if err := c.post(ctx, preferencesPath, req, &resp); err != nil {
		return port.CheckoutSession{}, err
	}
	if resp.ID == "" || resp.InitPoint == "" {
		return port.CheckoutSession{}, errorbank.Unavailable("gateway returned incomplete preference")
	}
	return port.CheckoutSession{PreferenceID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	TransactionAmount json.Number `json:"transaction_amount"`
}

// GetPayment fetches the gateway's view of a payment by id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (port.GatewayPayment, error) {
	var resp paymentResponse
	if err := c.get(ctx, fmt.Sprintf(paymentsPath, paymentID), &resp); err != nil {
		return port.GatewayPayment{}, err
	}

	amount := decimal.Zero
	if resp.TransactionAmount != "" {
		parsed, err := decimal.NewFromString(resp.TransactionAmount.String())
		if err != nil {
			c.logger.Warn("gateway returned unparsable amount",
				zap.String("payment_id", paymentID),
				zap.String("amount", resp.TransactionAmount.String()))
		} else {
			amount = parsed
		}
	}

	return port.GatewayPayment{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		ExternalReference: resp.ExternalReference,
		TransactionAmount: amount,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errorbank.Internal("encode gateway request", errorbank.WithCause(err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errorbank.Internal("build gateway request", errorbank.WithCause(err))
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errorbank.Internal("build gateway request", errorbank.WithCause(err))
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errorbank.Unavailable("gateway request failed", errorbank.WithCause(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errorbank.Unavailable("read gateway response", errorbank.WithCause(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorbank.Unavailable(
			fmt.Sprintf("gateway returned status %d", resp.StatusCode),
			errorbank.WithDetail("body", string(raw)),
		)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errorbank.Unavailable("decode gateway response", errorbank.WithCause(err))
	}
	return nil
}
