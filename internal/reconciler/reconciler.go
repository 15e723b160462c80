// Package reconciler owns every mutation of an order's payment status. Both
// entry points, the administrator's manual decision and the gateway's webhook
// callback, funnel through here so the transitions stay consistent no matter
// how the two interleave.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/cache"
	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/messaging"
	"github.com/igorwgn/vitrine/internal/port"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

var reconcilerTracer = otel.Tracer("github.com/igorwgn/vitrine/reconciler")

// Manual decision payment fractions.
const (
	PartialHalf  = "METADE"
	PartialTotal = "TOTAL"
)

const lockStripes = 64

var two = decimal.NewFromInt(2)

// PaymentStatusChangedEvent is published after every applied transition.
// The notification worker consumes it to deliver customer messages.
type PaymentStatusChangedEvent struct {
	EventID    string                `json:"event_id"`
	TxID       string                `json:"txid"`
	Status     entity.OrderStatus    `json:"status"`
	Kind       port.NotificationKind `json:"kind"`
	Reason     string                `json:"reason,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// Service is the payment status state machine.
type Service struct {
	repo      port.OrderRepository
	gateway   port.PaymentGateway
	notifier  port.Notifier
	publisher messaging.Client
	cache     cache.Store
	logger    *zap.Logger

	messagingEnabled bool

	// Mutations for one transaction id are serialized through a striped
	// mutex so a manual approval and a webhook for the same order cannot
	// interleave their read-modify-write cycles. External calls happen
	// before the lock is taken.
	locks [lockStripes]sync.Mutex
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository port.OrderRepository
	Gateway    port.PaymentGateway
	Notifier   port.Notifier
	Publisher  messaging.Client
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires the reconciler.
func NewService(p Params) *Service {
	return &Service{
		repo:             p.Repository,
		gateway:          p.Gateway,
		notifier:         p.Notifier,
		publisher:        p.Publisher,
		cache:            p.Cache,
		logger:           p.Logger,
		messagingEnabled: p.Config.Messaging.Enabled,
	}
}

// Module provides the reconciler to Fx.
var Module = fx.Provide(NewService)

func (s *Service) lockFor(txID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(txID))
	return &s.locks[h.Sum32()%lockStripes]
}

// RecordProofUploaded stores the customer's proof-of-payment reference and
// moves the order into manual review. Re-uploading while already in review
// replaces the proof.
func (s *Service) RecordProofUploaded(ctx context.Context, txID, proofRef string, declared *decimal.Decimal) (*entity.Order, error) {
	ctx, span := reconcilerTracer.Start(ctx, "Reconciler.RecordProofUploaded", trace.WithAttributes(attribute.String("order.txid", txID)))
	defer span.End()

	if proofRef == "" {
		return nil, errorbank.BadRequest("comprovante é obrigatório")
	}

	mu := s.lockFor(txID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.getOrder(ctx, txID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case entity.StatusAwaitingPayment, entity.StatusAwaitingReview:
		// accepted, including idempotent re-upload
	default:
		return nil, errorbank.Unprocessable(
			fmt.Sprintf("pedido %s não aguarda pagamento", txID))
	}

	declaredAmount := decimal.NullDecimal{}
	if declared != nil {
		declaredAmount = decimal.NullDecimal{Decimal: *declared, Valid: true}
	}

	if err := s.repo.SetProof(ctx, txID, proofRef, declaredAmount, entity.StatusAwaitingReview); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, s.storeErr(err, txID)
	}
	s.invalidate(ctx, txID)

	order.Status = entity.StatusAwaitingReview
	order.ProofRef = proofRef
	order.DeclaredAmount = declaredAmount
	return order, nil
}

// ApplyManualDecision applies an administrator's review of a manual payment.
// Rejection cancels the order from any state and is safe to repeat; approval
// requires the payment fraction (METADE or TOTAL).
func (s *Service) ApplyManualDecision(ctx context.Context, txID string, approved bool, partialType, reason string) (*entity.Order, error) {
	ctx, span := reconcilerTracer.Start(ctx, "Reconciler.ApplyManualDecision", trace.WithAttributes(
		attribute.String("order.txid", txID),
		attribute.Bool("decision.approved", approved),
	))
	defer span.End()

	mu := s.lockFor(txID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.getOrder(ctx, txID)
	if err != nil {
		return nil, err
	}

	if !approved {
		return s.reject(ctx, order, reason)
	}

	switch strings.ToUpper(strings.TrimSpace(partialType)) {
	case PartialHalf:
		return s.approve(ctx, order, entity.StatusPaidHalf, order.TotalAmount.Div(two), port.NotifyConfirmedHalf)
	case PartialTotal:
		return s.approve(ctx, order, entity.StatusPaid, order.TotalAmount, port.NotifyConfirmedFull)
	default:
		return nil, errorbank.BadRequest("informe METADE ou TOTAL")
	}
}

func (s *Service) reject(ctx context.Context, order *entity.Order, reason string) (*entity.Order, error) {
	alreadyCancelled := order.Status == entity.StatusCancelled

	if !alreadyCancelled {
		if err := s.repo.SetCancellation(ctx, order.TxID, reason); err != nil {
			return nil, s.storeErr(err, order.TxID)
		}
		s.invalidate(ctx, order.TxID)
		order.Status = entity.StatusCancelled
		order.CancellationReason = reason
	}

	// Re-rejecting a cancelled order re-sends the notice instead of failing:
	// the admin explicitly asked for the cancellation message.
	s.dispatch(ctx, order, port.NotifyCancelled, reason)
	return order, nil
}

func (s *Service) approve(ctx context.Context, order *entity.Order, status entity.OrderStatus, paid decimal.Decimal, kind port.NotificationKind) (*entity.Order, error) {
	if order.Status == entity.StatusCancelled {
		return nil, errorbank.Conflict(fmt.Sprintf("pedido %s já está cancelado", order.TxID))
	}

	paidAmount := decimal.NullDecimal{Decimal: paid, Valid: true}
	if err := s.repo.UpdatePayment(ctx, order.TxID, status, paidAmount); err != nil {
		return nil, s.storeErr(err, order.TxID)
	}
	s.invalidate(ctx, order.TxID)

	order.Status = status
	order.PaidAmount = paidAmount
	s.dispatch(ctx, order, kind, "")
	return order, nil
}

// gatewayStatus maps the gateway vocabulary onto internal statuses. Anything
// unknown is treated as still awaiting payment.
func gatewayStatus(s string) entity.OrderStatus {
	switch strings.ToLower(s) {
	case "approved":
		return entity.StatusPaid
	case "rejected", "cancelled":
		return entity.StatusCancelled
	default:
		return entity.StatusAwaitingPayment
	}
}

// ApplyGatewayNotification reconciles an inbound webhook delivery. It is
// idempotent and tolerates duplicate and out-of-order deliveries: a
// transition that would lower the status precedence is discarded. Unknown
// transaction ids are logged and discarded, never raised, because webhook
// delivery may race order creation or reference a test payment.
func (s *Service) ApplyGatewayNotification(ctx context.Context, paymentID string) error {
	ctx, span := reconcilerTracer.Start(ctx, "Reconciler.ApplyGatewayNotification", trace.WithAttributes(attribute.String("payment.id", paymentID)))
	defer span.End()

	// External fetch happens before any lock is taken.
	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "gateway fetch failed")
		return fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	txID := payment.ExternalReference
	if txID == "" {
		s.logger.Info("gateway payment without external reference, discarding",
			zap.String("payment_id", paymentID),
			zap.String("gateway_status", payment.Status))
		return nil
	}

	mu := s.lockFor(txID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.repo.GetByTxID(ctx, txID)
	if errors.Is(err, port.ErrOrderNotFound) {
		s.logger.Warn("webhook for unknown order, discarding",
			zap.String("txid", txID),
			zap.String("payment_id", paymentID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order %s: %w", txID, err)
	}

	target := gatewayStatus(payment.Status)
	if order.Status == target {
		// duplicate delivery
		return nil
	}
	if !order.Status.CanAdvanceTo(target) {
		s.logger.Info("stale gateway status discarded",
			zap.String("txid", txID),
			zap.String("current", string(order.Status)),
			zap.String("incoming", string(target)))
		return nil
	}

	switch target {
	case entity.StatusPaid:
		paid := order.PaidAmount
		if payment.TransactionAmount.Sign() > 0 {
			paid = decimal.NullDecimal{Decimal: payment.TransactionAmount, Valid: true}
		}
		if err := s.repo.UpdatePayment(ctx, txID, target, paid); err != nil {
			return fmt.Errorf("update order %s: %w", txID, err)
		}
		s.invalidate(ctx, txID)
		order.Status = target
		order.PaidAmount = paid
		s.dispatch(ctx, order, port.NotifyConfirmedFull, "")

	case entity.StatusCancelled:
		reason := "pagamento recusado pelo gateway"
		if err := s.repo.SetCancellation(ctx, txID, reason); err != nil {
			return fmt.Errorf("cancel order %s: %w", txID, err)
		}
		s.invalidate(ctx, txID)
		order.Status = target
		order.CancellationReason = reason
		s.dispatch(ctx, order, port.NotifyCancelled, reason)

	default:
		// pending/in_process map to the initial state; reaching here means
		// the order is already there, so nothing to write.
	}

	return nil
}

// dispatch hands the transition to the notification path: through the
// message bus when enabled, directly otherwise. Failures are logged and
// never roll back the status change.
func (s *Service) dispatch(ctx context.Context, order *entity.Order, kind port.NotificationKind, reason string) {
	if s.messagingEnabled && s.publisher != nil {
		event := PaymentStatusChangedEvent{
			EventID:    uuid.NewString(),
			TxID:       order.TxID,
			Status:     order.Status,
			Kind:       kind,
			Reason:     reason,
			OccurredAt: time.Now().UTC(),
		}
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("marshal status change event", zap.Error(err))
			return
		}
		if err := s.publisher.Publish(ctx, []byte(order.TxID), payload); err != nil {
			s.logger.Error("publish status change event",
				zap.String("txid", order.TxID),
				zap.Error(err))
		}
		return
	}

	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, order, kind, reason); err != nil {
		s.logger.Error("notification dispatch failed",
			zap.String("txid", order.TxID),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}
}

func (s *Service) getOrder(ctx context.Context, txID string) (*entity.Order, error) {
	order, err := s.repo.GetByTxID(ctx, txID)
	if err != nil {
		return nil, s.storeErr(err, txID)
	}
	return order, nil
}

func (s *Service) storeErr(err error, txID string) error {
	if errors.Is(err, port.ErrOrderNotFound) {
		return errorbank.NotFound(fmt.Sprintf("pedido %s não encontrado", txID))
	}
	return errorbank.Internal("falha ao acessar pedido", errorbank.WithCause(err))
}

func (s *Service) invalidate(ctx context.Context, txID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "orders:"+txID); err != nil {
		s.logger.Warn("order cache invalidation failed",
			zap.String("txid", txID),
			zap.Error(err))
	}
}
