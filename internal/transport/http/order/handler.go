package order

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/igorwgn/vitrine/internal/dto"
	"github.com/igorwgn/vitrine/internal/presentation/http/response"
	"github.com/igorwgn/vitrine/internal/pricing"
	"github.com/igorwgn/vitrine/internal/reconciler"
	service "github.com/igorwgn/vitrine/internal/service/order"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/igorwgn/vitrine/transport/http/order")

// Handler exposes customer-facing order endpoints over HTTP.
type Handler struct {
	svc *service.Service
	rec *reconciler.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, rec *reconciler.Service) *Handler {
	return &Handler{svc: svc, rec: rec}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("/uniform", h.createUniform)
	g.POST("/mug", h.createMugStrap)
	g.POST("/snacktray", h.createSnackTray)
	g.GET("/:txid", h.getByTxID)
	g.POST("/:txid/proof", h.uploadProof)
}

func (h *Handler) createUniform(c echo.Context) error {
	b := response.New(c)

	var payload dto.UniformOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.createUniform")
	defer span.End()

	order, err := h.svc.CreateUniform(ctx, toCustomer(payload.Customer), pricing.UniformInput{
		SKU:             payload.SKU,
		Model:           payload.Model,
		Size:            payload.Size,
		PrintName:       payload.PrintName,
		ExistingNumber:  payload.ExistingNumber,
		FallbackNumbers: payload.FallbackNumbers,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) createMugStrap(c echo.Context) error {
	b := response.New(c)

	var payload dto.MugStrapOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.createMugStrap")
	defer span.End()

	order, err := h.svc.CreateMugStrap(ctx, toCustomer(payload.Customer), pricing.MugStrapInput{
		SKU:      payload.SKU,
		Quantity: payload.Quantity,
	})
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) createSnackTray(c echo.Context) error {
	b := response.New(c)

	var payload dto.SnackTrayOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.createSnackTray")
	defer span.End()

	order, err := h.svc.CreateSnackTray(ctx, toCustomer(payload.Customer), payload.Flavors)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) getByTxID(c echo.Context) error {
	b := response.New(c)
	txID := c.Param("txid")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByTxID", trace.WithAttributes(attribute.String("order.txid", txID)))
	defer span.End()

	order, err := h.svc.Get(ctx, txID)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func (h *Handler) uploadProof(c echo.Context) error {
	b := response.New(c)
	txID := c.Param("txid")

	var payload dto.ProofUploadRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	var declared *decimal.Decimal
	if payload.DeclaredAmount != "" {
		parsed, err := decimal.NewFromString(payload.DeclaredAmount)
		if err != nil {
			return b.WithError(errorbank.BadRequest("valor declarado inválido", errorbank.WithCause(err))).Build()
		}
		declared = &parsed
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.uploadProof", trace.WithAttributes(attribute.String("order.txid", txID)))
	defer span.End()

	order, err := h.rec.RecordProofUploaded(ctx, txID, payload.Proof, declared)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.FromOrder(order)).Build()
}

func toCustomer(c dto.CustomerPayload) service.Customer {
	return service.Customer{Name: c.Name, Email: c.Email, Phone: c.Phone}
}
