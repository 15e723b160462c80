package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/port"
	"github.com/igorwgn/vitrine/internal/reconciler"
)

type stubRepo struct{}

func (stubRepo) Create(context.Context, *entity.Order) error { return nil }
func (stubRepo) GetByTxID(context.Context, string) (*entity.Order, error) {
	return nil, port.ErrOrderNotFound
}
func (stubRepo) UpdatePayment(context.Context, string, entity.OrderStatus, decimal.NullDecimal) error {
	return nil
}
func (stubRepo) SetProof(context.Context, string, string, decimal.NullDecimal, entity.OrderStatus) error {
	return nil
}
func (stubRepo) SetCancellation(context.Context, string, string) error { return nil }

type stubGateway struct {
	err   error
	calls int
}

func (g *stubGateway) CreateCheckout(context.Context, *entity.Order) (port.CheckoutSession, error) {
	return port.CheckoutSession{}, nil
}

func (g *stubGateway) GetPayment(context.Context, string) (port.GatewayPayment, error) {
	g.calls++
	if g.err != nil {
		return port.GatewayPayment{}, g.err
	}
	return port.GatewayPayment{ID: "1", Status: "pending"}, nil
}

type stubNotifier struct{}

func (stubNotifier) Notify(context.Context, *entity.Order, port.NotificationKind, string) error {
	return nil
}

func newTestHandler(gw *stubGateway) *Handler {
	rec := reconciler.NewService(reconciler.Params{
		Repository: stubRepo{},
		Gateway:    gw,
		Notifier:   stubNotifier{},
		Publisher:  nil,
		Cache:      nil,
		Config:     config.Config{},
		Logger:     zap.NewNop(),
	})
	return NewHandler(rec, zap.NewNop())
}

func deliver(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	require.NoError(t, h.receive(e.NewContext(req, rr)))
	return rr
}

func TestWebhookAcksNonPaymentEvents(t *testing.T) {
	gw := &stubGateway{}
	rr := deliver(t, newTestHandler(gw), `{"type":"plan","data":{"id":123}}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, gw.calls)
}

func TestWebhookAcksUnreadablePayload(t *testing.T) {
	gw := &stubGateway{}
	rr := deliver(t, newTestHandler(gw), `{not json`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, gw.calls)
}

func TestWebhookAcksWhenGatewayFetchFails(t *testing.T) {
	gw := &stubGateway{err: errors.New("gateway timeout")}
	rr := deliver(t, newTestHandler(gw), `{"type":"payment","data":{"id":987}}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, gw.calls)
}

func TestWebhookAcksUnmatchedPayment(t *testing.T) {
	gw := &stubGateway{}
	rr := deliver(t, newTestHandler(gw), `{"type":"payment","data":{"id":987}}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, gw.calls)
}
