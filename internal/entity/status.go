package entity

import "errors"

// OrderStatus is the payment lifecycle state of an order. The pt-BR values
// are the wire and database representation.
type OrderStatus string

const (
	StatusAwaitingPayment OrderStatus = "AGUARDANDO_PAGAMENTO"
	StatusAwaitingReview  OrderStatus = "AGUARDANDO_VALIDACAO"
	StatusPaidHalf        OrderStatus = "PAGO_METADE"
	StatusPaid            OrderStatus = "PAGO"
	StatusCancelled       OrderStatus = "CANCELADO"
)

// statusRank orders statuses by payment progress. Automatic (webhook-driven)
// transitions may only increase the rank, so a late "pending" event can never
// regress an order that was already confirmed.
var statusRank = map[OrderStatus]int{
	StatusAwaitingPayment: 0,
	StatusAwaitingReview:  1,
	StatusPaidHalf:        2,
	StatusPaid:            3,
	StatusCancelled:       3,
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := statusRank[status]; ok {
		return status, nil
	}
	return "", errors.New("invalid order status")
}

// Rank returns the precedence of the status; unknown statuses rank lowest.
func (s OrderStatus) Rank() int {
	return statusRank[s]
}

// Terminal reports whether no further transitions are expected.
func (s OrderStatus) Terminal() bool {
	return s == StatusCancelled
}

// CanAdvanceTo reports whether an automatic transition to next is allowed:
// strictly forward through the precedence ranks, never out of a terminal
// state. Reapplying the current status is allowed and treated as a no-op by
// callers.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	return next.Rank() > s.Rank()
}
