package order

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/port"
	"github.com/igorwgn/vitrine/internal/pricing"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

type memRepo struct {
	orders map[string]*entity.Order
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]*entity.Order{}}
}

func (r *memRepo) Create(_ context.Context, order *entity.Order) error {
	r.orders[order.TxID] = order
	return nil
}

func (r *memRepo) GetByTxID(_ context.Context, txID string) (*entity.Order, error) {
	order, ok := r.orders[txID]
	if !ok {
		return nil, port.ErrOrderNotFound
	}
	return order, nil
}

func (r *memRepo) UpdatePayment(_ context.Context, txID string, status entity.OrderStatus, paid decimal.NullDecimal) error {
	order, ok := r.orders[txID]
	if !ok {
		return port.ErrOrderNotFound
	}
	order.Status = status
	order.PaidAmount = paid
	return nil
}

func (r *memRepo) SetProof(_ context.Context, txID, proofRef string, declared decimal.NullDecimal, status entity.OrderStatus) error {
	order, ok := r.orders[txID]
	if !ok {
		return port.ErrOrderNotFound
	}
	order.ProofRef = proofRef
	order.DeclaredAmount = declared
	order.Status = status
	return nil
}

func (r *memRepo) SetCancellation(_ context.Context, txID, reason string) error {
	order, ok := r.orders[txID]
	if !ok {
		return port.ErrOrderNotFound
	}
	order.Status = entity.StatusCancelled
	order.CancellationReason = reason
	return nil
}

type stubGateway struct {
	session port.CheckoutSession
	err     error
	calls   int
}

func (g *stubGateway) CreateCheckout(_ context.Context, _ *entity.Order) (port.CheckoutSession, error) {
	g.calls++
	if g.err != nil {
		return port.CheckoutSession{}, g.err
	}
	return g.session, nil
}

func (g *stubGateway) GetPayment(_ context.Context, _ string) (port.GatewayPayment, error) {
	return port.GatewayPayment{}, errors.New("not implemented")
}

func newTestService(repo *memRepo, gw *stubGateway, gatewayEnabled bool) *Service {
	cfg := config.Config{}
	cfg.Cache.DefaultTTL = time.Minute
	cfg.Pix.Key = "igorwagner@gmail.com"
	cfg.Pix.MerchantName = "IGOR WAGNER"
	cfg.Pix.MerchantCity = "BRASIL"
	cfg.Gateway.Enabled = gatewayEnabled

	return NewService(Params{
		Repository: repo,
		Gateway:    gw,
		Cache:      nil,
		Config:     cfg,
		Logger:     zap.NewNop(),
		Publisher:  nil,
	})
}

func validCustomer() Customer {
	return Customer{Name: "Maria Souza", Email: "maria@example.com", Phone: "47 99999-0000"}
}

func TestCreateUniformAssignsTxIDAndPixPayload(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubGateway{}, false)

	number := 10
	order, err := svc.CreateUniform(context.Background(), validCustomer(), pricing.UniformInput{
		SKU:            "KIT",
		Model:          "Masculino",
		Size:           "M",
		PrintName:      "MARIA",
		ExistingNumber: &number,
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{12}$`), order.TxID)
	assert.Equal(t, entity.FamilyUniform, order.Family)
	assert.Equal(t, entity.StatusAwaitingPayment, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.New(9000, -2)))

	require.NotEmpty(t, order.PixPayload)
	assert.True(t, strings.HasPrefix(order.PixPayload, "000201"))
	assert.Contains(t, order.PixPayload, "igorwagner@gmail.com")
	assert.Contains(t, order.PixPayload, "540590.00")
	assert.Contains(t, order.PixPayload, "6304")

	stored, err := repo.GetByTxID(context.Background(), order.TxID)
	require.NoError(t, err)
	assert.Equal(t, order.TxID, stored.TxID)
}

func TestCreateRejectsInvalidCustomer(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubGateway{}, false)

	number := 7
	in := pricing.UniformInput{SKU: "BLUSA", Model: "Feminino", Size: "P", PrintName: "ANA", ExistingNumber: &number}

	_, err := svc.CreateUniform(context.Background(), Customer{Name: "", Email: "ana@example.com"}, in)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	_, err = svc.CreateUniform(context.Background(), Customer{Name: "Ana", Email: "sem-arroba"}, in)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestCreateAttachesCheckoutWhenGatewayEnabled(t *testing.T) {
	repo := newMemRepo()
	gw := &stubGateway{session: port.CheckoutSession{PreferenceID: "pref-1", RedirectURL: "https://pay.example/pref-1"}}
	svc := newTestService(repo, gw, true)

	order, err := svc.CreateMugStrap(context.Background(), validCustomer(), pricing.MugStrapInput{SKU: "KIT", Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, "pref-1", order.PreferenceID)
	assert.Equal(t, "https://pay.example/pref-1", order.CheckoutURL)
	assert.True(t, order.TotalAmount.Equal(decimal.New(6000, -2)))
}

func TestCreateSurvivesCheckoutFailure(t *testing.T) {
	repo := newMemRepo()
	gw := &stubGateway{err: errors.New("gateway down")}
	svc := newTestService(repo, gw, true)

	order, err := svc.CreateSnackTray(context.Background(), validCustomer(), map[string]int{"coxinha": 60, "risole": 40})
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	assert.Empty(t, order.PreferenceID)
	assert.Empty(t, order.CheckoutURL)
	assert.NotEmpty(t, order.PixPayload)

	_, err = repo.GetByTxID(context.Background(), order.TxID)
	assert.NoError(t, err)
}

func TestGetReturnsNotFoundForUnknownTxID(t *testing.T) {
	svc := newTestService(newMemRepo(), &stubGateway{}, false)

	_, err := svc.Get(context.Background(), "FFFFFFFFFFFF")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}
