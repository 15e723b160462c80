package reconciler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/port"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[string]*entity.Order
}

func newMemRepo(orders ...*entity.Order) *memRepo {
	r := &memRepo{orders: make(map[string]*entity.Order)}
	for _, o := range orders {
		r.orders[o.TxID] = o
	}
	return r
}

func (r *memRepo) Create(_ context.Context, order *entity.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.TxID] = order
	return nil
}

func (r *memRepo) GetByTxID(_ context.Context, txID string) (*entity.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[txID]
	if !ok {
		return nil, port.ErrOrderNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *memRepo) UpdatePayment(_ context.Context, txID string, status entity.OrderStatus, paid decimal.NullDecimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[txID]
	if !ok {
		return port.ErrOrderNotFound
	}
	if o.Status == entity.StatusCancelled {
		return nil
	}
	o.Status = status
	o.PaidAmount = paid
	return nil
}

func (r *memRepo) SetProof(_ context.Context, txID, proofRef string, declared decimal.NullDecimal, status entity.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[txID]
	if !ok {
		return port.ErrOrderNotFound
	}
	o.ProofRef = proofRef
	o.DeclaredAmount = declared
	o.Status = status
	return nil
}

func (r *memRepo) SetCancellation(_ context.Context, txID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[txID]
	if !ok {
		return port.ErrOrderNotFound
	}
	o.Status = entity.StatusCancelled
	o.CancellationReason = reason
	return nil
}

func (r *memRepo) get(txID string) *entity.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[txID]
}

type fakeGateway struct {
	payments map[string]port.GatewayPayment
	err      error
}

func (g *fakeGateway) CreateCheckout(context.Context, *entity.Order) (port.CheckoutSession, error) {
	return port.CheckoutSession{}, errors.New("not used")
}

func (g *fakeGateway) GetPayment(_ context.Context, id string) (port.GatewayPayment, error) {
	if g.err != nil {
		return port.GatewayPayment{}, g.err
	}
	p, ok := g.payments[id]
	if !ok {
		return port.GatewayPayment{}, errors.New("unknown payment")
	}
	return p, nil
}

type notifyCall struct {
	txID   string
	kind   port.NotificationKind
	reason string
}

type recNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recNotifier) Notify(_ context.Context, order *entity.Order, kind port.NotificationKind, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{txID: order.TxID, kind: kind, reason: reason})
	return nil
}

func newService(repo port.OrderRepository, gw port.PaymentGateway, n port.Notifier) *Service {
	return NewService(Params{
		Repository: repo,
		Gateway:    gw,
		Notifier:   n,
		Config:     config.Config{},
		Logger:     zap.NewNop(),
	})
}

func pendingOrder(txID, total string) *entity.Order {
	return &entity.Order{
		TxID:          txID,
		Status:        entity.StatusAwaitingPayment,
		TotalAmount:   decimal.RequireFromString(total),
		CustomerName:  "Maria",
		CustomerEmail: "maria@example.com",
		CustomerPhone: "47999990000",
	}
}

func TestRecordProofUploaded(t *testing.T) {
	repo := newMemRepo(pendingOrder("TX1", "100.00"))
	svc := newService(repo, &fakeGateway{}, &recNotifier{})

	declared := decimal.RequireFromString("50.00")
	order, err := svc.RecordProofUploaded(context.Background(), "TX1", "blob-1", &declared)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAwaitingReview, order.Status)
	assert.Equal(t, "blob-1", repo.get("TX1").ProofRef)
	assert.True(t, repo.get("TX1").DeclaredAmount.Valid)

	// re-upload replaces the proof
	_, err = svc.RecordProofUploaded(context.Background(), "TX1", "blob-2", nil)
	require.NoError(t, err)
	assert.Equal(t, "blob-2", repo.get("TX1").ProofRef)
}

func TestRecordProofUploaded_UnknownOrder(t *testing.T) {
	svc := newService(newMemRepo(), &fakeGateway{}, &recNotifier{})

	_, err := svc.RecordProofUploaded(context.Background(), "NOPE", "blob", nil)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestApplyManualDecision_HalfThenFull(t *testing.T) {
	repo := newMemRepo(pendingOrder("TX2", "100.00"))
	notif := &recNotifier{}
	svc := newService(repo, &fakeGateway{}, notif)

	order, err := svc.ApplyManualDecision(context.Background(), "TX2", true, "METADE", "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPaidHalf, order.Status)
	require.True(t, order.PaidAmount.Valid)
	assert.True(t, order.PaidAmount.Decimal.Equal(decimal.RequireFromString("50.00")))

	order, err = svc.ApplyManualDecision(context.Background(), "TX2", true, "TOTAL", "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPaid, order.Status)
	assert.True(t, order.PaidAmount.Decimal.Equal(decimal.RequireFromString("100.00")))

	require.Len(t, notif.calls, 2)
	assert.Equal(t, port.NotifyConfirmedHalf, notif.calls[0].kind)
	assert.Equal(t, port.NotifyConfirmedFull, notif.calls[1].kind)
}

func TestApplyManualDecision_MissingPartialType(t *testing.T) {
	svc := newService(newMemRepo(pendingOrder("TX3", "90.00")), &fakeGateway{}, &recNotifier{})

	_, err := svc.ApplyManualDecision(context.Background(), "TX3", true, "", "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestApplyManualDecision_RejectIsRepeatable(t *testing.T) {
	repo := newMemRepo(pendingOrder("TX4", "90.00"))
	notif := &recNotifier{}
	svc := newService(repo, &fakeGateway{}, notif)

	order, err := svc.ApplyManualDecision(context.Background(), "TX4", false, "", "comprovante ilegível")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, order.Status)
	assert.Equal(t, "comprovante ilegível", repo.get("TX4").CancellationReason)

	// cancelling again must not fail
	_, err = svc.ApplyManualDecision(context.Background(), "TX4", false, "", "comprovante ilegível")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, repo.get("TX4").Status)

	require.Len(t, notif.calls, 2)
	assert.Equal(t, "comprovante ilegível", notif.calls[0].reason)
}

func TestApplyManualDecision_ApproveCancelledConflicts(t *testing.T) {
	order := pendingOrder("TX5", "90.00")
	order.Status = entity.StatusCancelled
	svc := newService(newMemRepo(order), &fakeGateway{}, &recNotifier{})

	_, err := svc.ApplyManualDecision(context.Background(), "TX5", true, "TOTAL", "")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestApplyGatewayNotification_ApprovedEndToEnd(t *testing.T) {
	repo := newMemRepo(pendingOrder("TX6", "100.00"))
	gw := &fakeGateway{payments: map[string]port.GatewayPayment{
		"pay-1": {
			ID:                "pay-1",
			Status:            "approved",
			ExternalReference: "TX6",
			TransactionAmount: decimal.RequireFromString("100.00"),
		},
	}}
	notif := &recNotifier{}
	svc := newService(repo, gw, notif)

	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "pay-1"))

	stored := repo.get("TX6")
	assert.Equal(t, entity.StatusPaid, stored.Status)
	assert.True(t, stored.PaidAmount.Decimal.Equal(decimal.RequireFromString("100.00")))
	require.Len(t, notif.calls, 1)
	assert.Equal(t, port.NotifyConfirmedFull, notif.calls[0].kind)
}

func TestApplyGatewayNotification_Idempotent(t *testing.T) {
	repo := newMemRepo(pendingOrder("TX7", "100.00"))
	gw := &fakeGateway{payments: map[string]port.GatewayPayment{
		"pay-2": {Status: "approved", ExternalReference: "TX7", TransactionAmount: decimal.RequireFromString("100.00")},
	}}
	notif := &recNotifier{}
	svc := newService(repo, gw, notif)

	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "pay-2"))
	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "pay-2"))

	stored := repo.get("TX7")
	assert.Equal(t, entity.StatusPaid, stored.Status)
	assert.True(t, stored.PaidAmount.Decimal.Equal(decimal.RequireFromString("100.00")))
	assert.Len(t, notif.calls, 1, "duplicate delivery must not re-notify")
}

func TestApplyGatewayNotification_LatePendingDoesNotRegress(t *testing.T) {
	repo := newMemRepo(pendingOrder("TX8", "100.00"))
	gw := &fakeGateway{payments: map[string]port.GatewayPayment{
		"pay-ok":   {Status: "approved", ExternalReference: "TX8", TransactionAmount: decimal.RequireFromString("100.00")},
		"pay-late": {Status: "pending", ExternalReference: "TX8"},
	}}
	svc := newService(repo, gw, &recNotifier{})

	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "pay-ok"))
	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "pay-late"))

	assert.Equal(t, entity.StatusPaid, repo.get("TX8").Status)
}

func TestApplyGatewayNotification_RejectedCancels(t *testing.T) {
	repo := newMemRepo(pendingOrder("TX9", "100.00"))
	gw := &fakeGateway{payments: map[string]port.GatewayPayment{
		"pay-3": {Status: "rejected", ExternalReference: "TX9"},
	}}
	notif := &recNotifier{}
	svc := newService(repo, gw, notif)

	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "pay-3"))
	assert.Equal(t, entity.StatusCancelled, repo.get("TX9").Status)
	require.Len(t, notif.calls, 1)
	assert.Equal(t, port.NotifyCancelled, notif.calls[0].kind)
}

func TestApplyGatewayNotification_DiscardsUnmatchedEvents(t *testing.T) {
	repo := newMemRepo()
	gw := &fakeGateway{payments: map[string]port.GatewayPayment{
		"no-ref":    {Status: "approved"},
		"wrong-ref": {Status: "approved", ExternalReference: "GHOST"},
	}}
	svc := newService(repo, gw, &recNotifier{})

	// missing external reference: discard, no error
	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "no-ref"))
	// unknown order: discard, no error
	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "wrong-ref"))
}

func TestApplyGatewayNotification_GatewayFetchFailure(t *testing.T) {
	svc := newService(newMemRepo(), &fakeGateway{err: errors.New("timeout")}, &recNotifier{})

	err := svc.ApplyGatewayNotification(context.Background(), "pay-x")
	assert.Error(t, err, "internal error is reported for logging; the webhook layer still acks")
}

func TestApplyGatewayNotification_PendingOnNewOrderIsNoop(t *testing.T) {
	repo := newMemRepo(pendingOrder("TXA", "80.00"))
	gw := &fakeGateway{payments: map[string]port.GatewayPayment{
		"pay-4": {Status: "in_process", ExternalReference: "TXA"},
	}}
	notif := &recNotifier{}
	svc := newService(repo, gw, notif)

	require.NoError(t, svc.ApplyGatewayNotification(context.Background(), "pay-4"))
	assert.Equal(t, entity.StatusAwaitingPayment, repo.get("TXA").Status)
	assert.Empty(t, notif.calls)
}
