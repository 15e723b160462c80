package admin

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/igorwgn/vitrine/internal/dto"
	"github.com/igorwgn/vitrine/internal/presentation/http/response"
	"github.com/igorwgn/vitrine/internal/reconciler"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/igorwgn/vitrine/transport/http/admin")

// Handler exposes the administrator's payment review endpoint.
type Handler struct {
	rec *reconciler.Service
}

// NewHandler constructs an admin Handler.
func NewHandler(rec *reconciler.Service) *Handler {
	return &Handler{rec: rec}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/admin/orders")
	g.POST("/:txid/decision", h.decide)
}

func (h *Handler) decide(c echo.Context) error {
	b := response.New(c)
	txID := c.Param("txid")

	var payload dto.DecisionRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.orders.decide", trace.WithAttributes(
		attribute.String("order.txid", txID),
		attribute.Bool("decision.approved", payload.Approved),
	))
	defer span.End()

	order, err := h.rec.ApplyManualDecision(ctx, txID, payload.Approved, payload.PartialType, payload.Reason)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}
