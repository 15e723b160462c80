package notification

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/messaging"
	"github.com/igorwgn/vitrine/internal/port"
	"github.com/igorwgn/vitrine/internal/reconciler"
	"github.com/igorwgn/vitrine/internal/worker"
)

var workerTracer = otel.Tracer("github.com/igorwgn/vitrine/worker/notification")

// Module registers the notification delivery handler.
var Module = fx.Module("worker_notification",
	fx.Provide(
		fx.Annotate(
			NewStatusChangedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewStatusChangedHandler builds the handler that turns payment status-change
// events into customer notifications. Delivery is best-effort: failures are
// logged and the message is still committed.
func NewStatusChangedHandler(repo port.OrderRepository, notifier port.Notifier, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.notification.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event reconciler.PaymentStatusChangedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode status change event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return nil
		}
		if event.Kind == "" {
			// other event families share the topic (e.g. order created)
			return nil
		}

		span.SetAttributes(
			attribute.String("order.txid", event.TxID),
			attribute.String("notification.kind", string(event.Kind)),
		)

		order, err := repo.GetByTxID(ctx, event.TxID)
		if err != nil {
			if errors.Is(err, port.ErrOrderNotFound) {
				logger.Warn("status change for unknown order",
					zap.String("txid", event.TxID),
					zap.String("event_id", event.EventID))
				return nil
			}
			logger.Error("failed to load order for notification",
				zap.String("txid", event.TxID),
				zap.Error(err))
			span.RecordError(err)
			return err
		}

		if err := notifier.Notify(ctx, order, event.Kind, event.Reason); err != nil {
			logger.Error("notification delivery failed",
				zap.String("txid", event.TxID),
				zap.String("event_id", event.EventID),
				zap.Error(err))
		} else {
			logger.Info("notification delivered",
				zap.String("txid", event.TxID),
				zap.String("kind", string(event.Kind)))
		}
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
