package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/igorwgn/vitrine/internal/entity"
)

// CustomerPayload is the buyer contact block shared by every order request.
type CustomerPayload struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// UniformOrderRequest creates a uniform order. ExistingNumber and
// FallbackNumbers are mutually exclusive.
type UniformOrderRequest struct {
	Customer        CustomerPayload `json:"customer"`
	SKU             string          `json:"sku"`
	Model           string          `json:"model"`
	Size            string          `json:"size"`
	PrintName       string          `json:"print_name"`
	ExistingNumber  *int            `json:"existing_number,omitempty"`
	FallbackNumbers []int           `json:"fallback_numbers,omitempty"`
}

// MugStrapOrderRequest creates a mug/lanyard order.
type MugStrapOrderRequest struct {
	Customer CustomerPayload `json:"customer"`
	SKU      string          `json:"sku"`
	Quantity int             `json:"quantity"`
}

// SnackTrayOrderRequest creates a bulk snack tray order from a
// flavor→quantity selection.
type SnackTrayOrderRequest struct {
	Customer CustomerPayload `json:"customer"`
	Flavors  map[string]int  `json:"flavors"`
}

// ProofUploadRequest attaches a proof-of-payment to an order. The declared
// amount is a hint for the reviewer, never trusted for accounting.
type ProofUploadRequest struct {
	Proof          string `json:"proof"`
	DeclaredAmount string `json:"declared_amount,omitempty"`
}

// DecisionRequest is the administrator's review of a manual payment.
type DecisionRequest struct {
	Approved    bool   `json:"approved"`
	PartialType string `json:"partial_type,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// WebhookEvent is the gateway's inbound notification envelope.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// LineItemResponse mirrors entity.LineItem for transport.
type LineItemResponse struct {
	SKU             string          `json:"sku"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Model           string          `json:"model,omitempty"`
	Size            string          `json:"size,omitempty"`
	PrintName       string          `json:"print_name,omitempty"`
	PrintNumber     *int            `json:"print_number,omitempty"`
	FallbackNumbers []int           `json:"fallback_numbers,omitempty"`
	Flavor          string          `json:"flavor,omitempty"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	TxID               string               `json:"txid"`
	Family             entity.ProductFamily `json:"family"`
	Status             entity.OrderStatus   `json:"status"`
	TotalAmount        decimal.Decimal      `json:"total_amount"`
	PaidAmount         *decimal.Decimal     `json:"paid_amount,omitempty"`
	CustomerName       string               `json:"customer_name"`
	CustomerEmail      string               `json:"customer_email"`
	CustomerPhone      string               `json:"customer_phone,omitempty"`
	Items              []LineItemResponse   `json:"items"`
	PixPayload         string               `json:"pix_payload,omitempty"`
	CheckoutURL        string               `json:"checkout_url,omitempty"`
	HasProof           bool                 `json:"has_proof"`
	CancellationReason string               `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// FromOrder maps the aggregate to its transport representation.
func FromOrder(order *entity.Order) OrderResponse {
	resp := OrderResponse{
		TxID:               order.TxID,
		Family:             order.Family,
		Status:             order.Status,
		TotalAmount:        order.TotalAmount,
		CustomerName:       order.CustomerName,
		CustomerEmail:      order.CustomerEmail,
		CustomerPhone:      order.CustomerPhone,
		PixPayload:         order.PixPayload,
		CheckoutURL:        order.CheckoutURL,
		HasProof:           order.ProofRef != "",
		CancellationReason: order.CancellationReason,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if order.PaidAmount.Valid {
		paid := order.PaidAmount.Decimal
		resp.PaidAmount = &paid
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			SKU:             item.SKU,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			Model:           item.Model,
			Size:            item.Size,
			PrintName:       item.PrintName,
			PrintNumber:     item.PrintNumber,
			FallbackNumbers: item.FallbackNumbers,
			Flavor:          item.Flavor,
		})
	}
	return resp
}
