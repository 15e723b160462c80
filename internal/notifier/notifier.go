// Package notifier delivers order status messages over email and WhatsApp.
// Both channels are fire-and-forget: a failed channel is logged and never
// blocks the other channel or the status transition that triggered it.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/port"
)

var two = decimal.NewFromInt(2)

// EmailSender delivers a rendered email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// WhatsAppSender delivers a plain text instant message to a phone number.
type WhatsAppSender interface {
	Send(ctx context.Context, phone, message string) error
}

// Dispatcher fans a notification out to the configured channels.
type Dispatcher struct {
	email    EmailSender
	whatsapp WhatsAppSender
	cfg      config.Notify
	logger   *zap.Logger
}

var _ port.Notifier = (*Dispatcher)(nil)

// NewDispatcher wires the channel senders.
func NewDispatcher(email EmailSender, whatsapp WhatsAppSender, cfg config.Config, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		email:    email,
		whatsapp: whatsapp,
		cfg:      cfg.Notify,
		logger:   logger,
	}
}

// Notify renders the message for the transition and attempts every enabled
// channel. The returned error aggregates channel failures for the caller's
// log; it must never be treated as a hard failure.
func (d *Dispatcher) Notify(ctx context.Context, order *entity.Order, kind port.NotificationKind, reason string) error {
	msg := render(order, kind, reason)
	var errs []error

	if d.cfg.EmailEnabled && d.email != nil {
		if err := d.email.Send(ctx, order.CustomerEmail, msg.subject, msg.emailBody); err != nil {
			d.logger.Error("email delivery failed",
				zap.String("txid", order.TxID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if d.cfg.WhatsAppEnabled && d.whatsapp != nil {
		if !order.HasPhone() {
			d.logger.Info("whatsapp skipped, customer has no phone",
				zap.String("txid", order.TxID))
		} else if err := d.whatsapp.Send(ctx, digitsOnly(order.CustomerPhone), msg.whatsappText); err != nil {
			d.logger.Error("whatsapp delivery failed",
				zap.String("txid", order.TxID),
				zap.String("kind", string(kind)),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("whatsapp: %w", err))
		}
	}

	return errors.Join(errs...)
}

type message struct {
	subject      string
	emailBody    string
	whatsappText string
}

func render(order *entity.Order, kind port.NotificationKind, reason string) message {
	total := order.TotalAmount.StringFixed(2)
	switch kind {
	case port.NotifyConfirmedFull:
		return message{
			subject: fmt.Sprintf("Pedido %s confirmado", order.TxID),
			emailBody: fmt.Sprintf(
				"Olá %s,\n\nRecebemos o pagamento integral do pedido %s (R$ %s).\nSeu pedido está confirmado e entrará em produção.\n\nObrigado!",
				order.CustomerName, order.TxID, total),
			whatsappText: fmt.Sprintf("✅ Pedido %s confirmado! Pagamento de R$ %s recebido. Obrigado, %s!",
				order.TxID, total, order.CustomerName),
		}
	case port.NotifyConfirmedHalf:
		half := order.TotalAmount.Div(two).StringFixed(2)
		return message{
			subject: fmt.Sprintf("Pedido %s confirmado (50%%)", order.TxID),
			emailBody: fmt.Sprintf(
				"Olá %s,\n\nRecebemos metade do pagamento do pedido %s (R$ %s de R$ %s).\nO pedido está confirmado; o saldo restante de R$ %s deve ser pago na entrega.\n\nObrigado!",
				order.CustomerName, order.TxID, half, total, half),
			whatsappText: fmt.Sprintf("✅ Pedido %s confirmado! Recebemos R$ %s (50%%). Saldo de R$ %s na entrega.",
				order.TxID, half, half),
		}
	default:
		body := fmt.Sprintf("Olá %s,\n\nO pedido %s foi cancelado.", order.CustomerName, order.TxID)
		text := fmt.Sprintf("❌ Pedido %s cancelado.", order.TxID)
		if reason != "" {
			body += "\nMotivo: " + reason
			text += " Motivo: " + reason
		}
		return message{
			subject:      fmt.Sprintf("Pedido %s cancelado", order.TxID),
			emailBody:    body,
			whatsappText: text,
		}
	}
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
