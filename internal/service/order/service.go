package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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
	"github.com/igorwgn/vitrine/internal/pix"
	"github.com/igorwgn/vitrine/internal/port"
	"github.com/igorwgn/vitrine/internal/pricing"
	"github.com/igorwgn/vitrine/internal/txid"
	"github.com/igorwgn/vitrine/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/igorwgn/vitrine/service/order")

// Customer is the buyer's contact data supplied at checkout. Phone is
// optional; without it only the email channel is notified.
type Customer struct {
	Name  string
	Email string
	Phone string
}

// Service handles order intake: pricing, txid assignment, PIX payload
// generation, gateway checkout creation and persistence.
type Service struct {
	repo       port.OrderRepository
	gateway    port.PaymentGateway
	cache      cache.Store
	cacheTTL   time.Duration
	logger     *zap.Logger
	publisher  messaging.Client
	pixAccount pix.Account

	gatewayEnabled   bool
	messagingEnabled bool
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository port.OrderRepository
	Gateway    port.PaymentGateway
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		gateway:   p.Gateway,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		pixAccount: pix.Account{
			Key:          p.Config.Pix.Key,
			MerchantName: p.Config.Pix.MerchantName,
			MerchantCity: p.Config.Pix.MerchantCity,
		},
		gatewayEnabled:   p.Config.Gateway.Enabled,
		messagingEnabled: p.Config.Messaging.Enabled,
	}
}

// CreateUniform prices and creates a uniform order.
func (s *Service) CreateUniform(ctx context.Context, customer Customer, in pricing.UniformInput) (*entity.Order, error) {
	draft, err := pricing.Uniform(in)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, customer, draft)
}

// CreateMugStrap prices and creates a mug/lanyard order.
func (s *Service) CreateMugStrap(ctx context.Context, customer Customer, in pricing.MugStrapInput) (*entity.Order, error) {
	draft, err := pricing.MugStrap(in)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, customer, draft)
}

// CreateSnackTray prices and creates a bulk snack tray order.
func (s *Service) CreateSnackTray(ctx context.Context, customer Customer, flavors map[string]int) (*entity.Order, error) {
	draft, err := pricing.SnackTray(flavors)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, customer, draft)
}

func (s *Service) create(ctx context.Context, customer Customer, draft pricing.Draft) (*entity.Order, error) {
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}

	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("order.family", string(draft.Family)),
	))
	defer span.End()

	id, err := txid.New()
	if err != nil {
		return nil, errorbank.Internal("failed to assign transaction id", errorbank.WithCause(err))
	}

	payload, err := pix.Encode(s.pixAccount, draft.Total)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pix encoding failed")
		return nil, errorbank.Internal("failed to build pix payload", errorbank.WithCause(err))
	}

	now := time.Now().UTC()
	order := &entity.Order{
		TxID:          id,
		Family:        draft.Family,
		Status:        entity.StatusAwaitingPayment,
		TotalAmount:   draft.Total,
		CustomerName:  strings.TrimSpace(customer.Name),
		CustomerEmail: strings.TrimSpace(customer.Email),
		CustomerPhone: strings.TrimSpace(customer.Phone),
		Items:         draft.Items,
		PixPayload:    payload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if s.gatewayEnabled {
		// Checkout failure is not fatal: the customer can still pay the
		// PIX code manually.
		session, err := s.gateway.CreateCheckout(ctx, order)
		if err != nil {
			s.logger.Warn("gateway checkout creation failed",
				zap.String("txid", order.TxID),
				zap.Error(err))
		} else {
			order.PreferenceID = session.PreferenceID
			order.CheckoutURL = session.RedirectURL
		}
	}

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("txid", order.TxID), zap.Error(err))
	}

	s.publishOrderCreated(ctx, order)
	return order, nil
}

func validateCustomer(c Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return errorbank.BadRequest("nome é obrigatório")
	}
	email := strings.TrimSpace(c.Email)
	if email == "" || !strings.Contains(email, "@") {
		return errorbank.BadRequest("e-mail inválido")
	}
	return nil
}

// Get retrieves an order by transaction id, consulting cache when available.
func (s *Service) Get(ctx context.Context, txID string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.txid", txID)))
	defer span.End()

	if order, err := s.getFromCache(ctx, txID); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("txid", txID), zap.Error(err))
	}

	order, err := s.repo.GetByTxID(ctx, txID)
	if err != nil {
		if errors.Is(err, port.ErrOrderNotFound) {
			return nil, errorbank.NotFound(fmt.Sprintf("pedido %s não encontrado", txID))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("txid", txID), zap.Error(err))
	}

	return order, nil
}

func (s *Service) publishOrderCreated(ctx context.Context, order *entity.Order) {
	if !s.messagingEnabled || s.publisher == nil {
		return
	}
	event := OrderCreatedEvent{
		EventID:     uuid.NewString(),
		TxID:        order.TxID,
		Family:      order.Family,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order created", zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(order.TxID), payload); err != nil {
		s.logger.Error("publish order created", zap.Error(err))
	}
}

func (s *Service) cacheKey(txID string) string {
	return "orders:" + txID
}

func (s *Service) getFromCache(ctx context.Context, txID string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(txID))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.TxID), bytes, s.cacheTTL)
}

// OrderCreatedEvent is emitted when a new order is persisted.
type OrderCreatedEvent struct {
	EventID     string               `json:"event_id"`
	TxID        string               `json:"txid"`
	Family      entity.ProductFamily `json:"family"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	CreatedAt   time.Time            `json:"created_at"`
}
