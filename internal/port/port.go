// Package port declares the boundaries the payment core depends on. The
// reconciler and services program against these interfaces; the concrete
// implementations live in repository, gateway and notifier packages.
package port

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/igorwgn/vitrine/internal/entity"
)

// ErrOrderNotFound is returned by repositories when no order matches the
// transaction id. It is the one store outcome callers must distinguish.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository is the by-transaction-id record store for orders.
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByTxID(ctx context.Context, txID string) (*entity.Order, error)

	// UpdatePayment sets status and paid amount in one write.
	UpdatePayment(ctx context.Context, txID string, status entity.OrderStatus, paid decimal.NullDecimal) error
	// SetProof records the uploaded proof reference, the customer-declared
	// amount and the review status.
	SetProof(ctx context.Context, txID, proofRef string, declared decimal.NullDecimal, status entity.OrderStatus) error
	// SetCancellation cancels the order and persists the typed reason.
	SetCancellation(ctx context.Context, txID, reason string) error
}

// CheckoutSession is what the gateway returns for a redirect checkout.
type CheckoutSession struct {
	PreferenceID string
	RedirectURL  string
}

// GatewayPayment is the gateway's view of a payment, fetched by id after a
// webhook delivery.
type GatewayPayment struct {
	ID                string
	Status            string
	ExternalReference string
	TransactionAmount decimal.Decimal
}

// PaymentGateway is the hosted-checkout collaborator.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, order *entity.Order) (CheckoutSession, error)
	GetPayment(ctx context.Context, paymentID string) (GatewayPayment, error)
}

// NotificationKind selects the message template for a terminal transition.
type NotificationKind string

const (
	NotifyConfirmedFull NotificationKind = "confirmed_full"
	NotifyConfirmedHalf NotificationKind = "confirmed_half"
	NotifyCancelled     NotificationKind = "cancelled"
)

// Notifier delivers a rendered message through the email and WhatsApp
// channels. Delivery is best-effort: implementations attempt every channel
// and the returned error is for logging only.
type Notifier interface {
	Notify(ctx context.Context, order *entity.Order, kind NotificationKind, reason string) error
}
