package notifier

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/port"
)

type emailRecorder struct {
	to, subject, body string
	calls             int
	err               error
}

func (r *emailRecorder) Send(_ context.Context, to, subject, body string) error {
	r.calls++
	r.to, r.subject, r.body = to, subject, body
	return r.err
}

type whatsappRecorder struct {
	phone, text string
	calls       int
	err         error
}

func (r *whatsappRecorder) Send(_ context.Context, phone, text string) error {
	r.calls++
	r.phone, r.text = phone, text
	return r.err
}

func testDispatcher(email *emailRecorder, wa *whatsappRecorder) *Dispatcher {
	cfg := config.Config{}
	cfg.Notify.EmailEnabled = true
	cfg.Notify.WhatsAppEnabled = true
	return NewDispatcher(email, wa, cfg, zap.NewNop())
}

func sampleOrder() *entity.Order {
	return &entity.Order{
		TxID:          "A1B2C3D4E5F6",
		CustomerName:  "Maria",
		CustomerEmail: "maria@example.com",
		CustomerPhone: "(47) 99999-0000",
		TotalAmount:   decimal.RequireFromString("100.00"),
	}
}

func TestNotify_BothChannelsAttempted(t *testing.T) {
	email := &emailRecorder{}
	wa := &whatsappRecorder{}
	d := testDispatcher(email, wa)

	err := d.Notify(context.Background(), sampleOrder(), port.NotifyConfirmedFull, "")
	require.NoError(t, err)

	assert.Equal(t, 1, email.calls)
	assert.Equal(t, "maria@example.com", email.to)
	assert.Contains(t, email.subject, "A1B2C3D4E5F6")
	assert.Contains(t, email.body, "100.00")

	assert.Equal(t, 1, wa.calls)
	assert.Equal(t, "47999990000", wa.phone, "phone must be digits only")
	assert.Contains(t, wa.text, "A1B2C3D4E5F6")
}

func TestNotify_EmailFailureDoesNotBlockWhatsApp(t *testing.T) {
	email := &emailRecorder{err: errors.New("relay down")}
	wa := &whatsappRecorder{}
	d := testDispatcher(email, wa)

	err := d.Notify(context.Background(), sampleOrder(), port.NotifyCancelled, "sem estoque")
	assert.Error(t, err)
	assert.Equal(t, 1, wa.calls, "whatsapp must still be attempted")
	assert.Contains(t, wa.text, "sem estoque")
}

func TestNotify_NoPhoneSkipsWhatsApp(t *testing.T) {
	email := &emailRecorder{}
	wa := &whatsappRecorder{}
	d := testDispatcher(email, wa)

	order := sampleOrder()
	order.CustomerPhone = ""

	err := d.Notify(context.Background(), order, port.NotifyConfirmedHalf, "")
	require.NoError(t, err, "missing phone is not an error")
	assert.Equal(t, 0, wa.calls)
	assert.Equal(t, 1, email.calls)
	assert.Contains(t, email.body, "50.00")
}
