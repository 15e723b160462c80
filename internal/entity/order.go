package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// ProductFamily discriminates the storefront's product lines.
type ProductFamily string

const (
	FamilyUniform   ProductFamily = "UNIFORME"
	FamilyMugStrap  ProductFamily = "CANECA_TIRANTE"
	FamilySnackTray ProductFamily = "BANDEJA_SALGADOS"
)

// LineItem is one priced entry of an order. Family-specific attributes are
// optional and only populated for the family that uses them.
type LineItem struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`

	// uniform
	Model           string `json:"model,omitempty"`
	Size            string `json:"size,omitempty"`
	PrintName       string `json:"print_name,omitempty"`
	PrintNumber     *int   `json:"print_number,omitempty"`
	FallbackNumbers []int  `json:"fallback_numbers,omitempty"`

	// snack tray
	Flavor string `json:"flavor,omitempty"`
}

// Order is the aggregate persisted per purchase. TxID correlates the store
// record, the gateway external reference and every notification; it never
// changes after creation. Status and PaidAmount are written only by the
// payment reconciler.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID     int64         `bun:",pk,autoincrement" json:"id"`
	TxID   string        `bun:"txid" json:"txid"`
	Family ProductFamily `bun:"family" json:"family"`
	Status OrderStatus   `bun:"status" json:"status"`

	TotalAmount decimal.Decimal     `bun:"total_amount,type:numeric" json:"total_amount"`
	PaidAmount  decimal.NullDecimal `bun:"paid_amount,type:numeric" json:"paid_amount"`

	CustomerName  string `bun:"customer_name" json:"customer_name"`
	CustomerEmail string `bun:"customer_email" json:"customer_email"`
	CustomerPhone string `bun:"customer_phone,nullzero" json:"customer_phone,omitempty"`

	Items []LineItem `bun:"items,type:jsonb" json:"items"`

	// Manual PIX path.
	PixPayload     string              `bun:"pix_payload,nullzero" json:"pix_payload,omitempty"`
	ProofRef       string              `bun:"proof_ref,nullzero" json:"proof_ref,omitempty"`
	DeclaredAmount decimal.NullDecimal `bun:"declared_amount,type:numeric" json:"declared_amount"`

	// Gateway checkout path.
	PreferenceID string `bun:"preference_id,nullzero" json:"preference_id,omitempty"`
	CheckoutURL  string `bun:"checkout_url,nullzero" json:"checkout_url,omitempty"`

	CancellationReason string `bun:"cancellation_reason,nullzero" json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updated_at"`
}

// HasPhone reports whether the WhatsApp channel can reach the customer.
func (o *Order) HasPhone() bool {
	return o.CustomerPhone != ""
}
