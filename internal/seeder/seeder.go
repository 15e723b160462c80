package seeder

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/igorwgn/vitrine/internal/config"
	"github.com/igorwgn/vitrine/internal/database"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/pix"
	"github.com/igorwgn/vitrine/internal/pricing"
	"github.com/igorwgn/vitrine/internal/txid"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db      *bun.DB
	account pix.Account
	logger  *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, cfg config.Config, logger *zap.Logger) *Seeder {
	return &Seeder{
		db: conns.Writer,
		account: pix.Account{
			Key:          cfg.Pix.Key,
			MerchantName: cfg.Pix.MerchantName,
			MerchantCity: cfg.Pix.MerchantCity,
		},
		logger: logger,
	}
}

// Orders seeds one example order per product family with fake customers.
func (s *Seeder) Orders(ctx context.Context) error {
	drafts := make([]pricing.Draft, 0, 3)

	number := 10
	uniform, err := pricing.Uniform(pricing.UniformInput{
		SKU:            "KIT",
		Model:          "Masculino",
		Size:           "M",
		PrintName:      gofakeit.FirstName(),
		ExistingNumber: &number,
	})
	if err != nil {
		return err
	}
	drafts = append(drafts, uniform)

	mug, err := pricing.MugStrap(pricing.MugStrapInput{SKU: "CANECA", Quantity: 2})
	if err != nil {
		return err
	}
	drafts = append(drafts, mug)

	tray, err := pricing.SnackTray(map[string]int{"coxinha": 50, "kibe": 50})
	if err != nil {
		return err
	}
	drafts = append(drafts, tray)

	now := time.Now().UTC()
	for _, draft := range drafts {
		id, err := txid.New()
		if err != nil {
			return err
		}
		payload, err := pix.Encode(s.account, draft.Total)
		if err != nil {
			return err
		}

		sample := entity.Order{
			TxID:          id,
			Family:        draft.Family,
			Status:        entity.StatusAwaitingPayment,
			TotalAmount:   draft.Total,
			CustomerName:  gofakeit.Name(),
			CustomerEmail: gofakeit.Email(),
			CustomerPhone: gofakeit.Phone(),
			Items:         draft.Items,
			PixPayload:    payload,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if _, err := s.db.NewInsert().Model(&sample).
			On("CONFLICT (txid) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(drafts)))
	}
	return nil
}
