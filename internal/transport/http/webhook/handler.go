package webhook

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/dto"
	"github.com/igorwgn/vitrine/internal/reconciler"
)

var httpTracer = otel.Tracer("github.com/igorwgn/vitrine/transport/http/webhook")

// Handler receives the payment gateway's webhook deliveries. It always
// acknowledges with 200; internal failures are logged, never surfaced to
// the gateway.
type Handler struct {
	rec    *reconciler.Service
	logger *zap.Logger
}

// NewHandler constructs a webhook Handler.
func NewHandler(rec *reconciler.Service, logger *zap.Logger) *Handler {
	return &Handler{rec: rec, logger: logger}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/webhooks/gateway", h.receive)
}

func (h *Handler) receive(c echo.Context) error {
	var event dto.WebhookEvent
	if err := c.Bind(&event); err != nil {
		h.logger.Warn("unreadable webhook payload", zap.Error(err))
		return c.NoContent(http.StatusOK)
	}

	if event.Type != "payment" {
		return c.NoContent(http.StatusOK)
	}

	paymentID := event.Data.ID.String()
	if paymentID == "" {
		h.logger.Warn("payment webhook without id")
		return c.NoContent(http.StatusOK)
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "webhooks.gateway", trace.WithAttributes(
		attribute.String("payment.id", paymentID),
	))
	defer span.End()

	if err := h.rec.ApplyGatewayNotification(ctx, paymentID); err != nil {
		span.RecordError(err)
		h.logger.Error("webhook reconciliation failed",
			zap.String("payment_id", paymentID),
			zap.Error(err))
	}
	return c.NoContent(http.StatusOK)
}
