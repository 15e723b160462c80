package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/igorwgn/vitrine/internal/database"
	"github.com/igorwgn/vitrine/internal/entity"
	"github.com/igorwgn/vitrine/internal/port"
)

var repoTracer = otel.Tracer("github.com/igorwgn/vitrine/repository/order")

// Repository is the bun-backed order store keyed by transaction id.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

var _ port.OrderRepository = (*Repository)(nil)

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.txid", order.TxID)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByTxID fetches an order by transaction id using the read replica when
// available.
func (r *Repository) GetByTxID(ctx context.Context, txID string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByTxID", trace.WithAttributes(attribute.String("order.txid", txID)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("txid = ?", txID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, port.ErrOrderNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// UpdatePayment writes the reconciled status and paid amount. The update is
// guarded so a row that has already reached the terminal CANCELADO state is
// never overwritten by a racing writer.
func (r *Repository) UpdatePayment(ctx context.Context, txID string, status entity.OrderStatus, paid decimal.NullDecimal) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdatePayment", trace.WithAttributes(
		attribute.String("order.txid", txID),
		attribute.String("order.status", string(status)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", status).
		Set("paid_amount = ?", paid).
		Set("updated_at = ?", time.Now().UTC()).
		Where("txid = ?", txID).
		Where("status != ?", entity.StatusCancelled).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return r.checkAffected(ctx, res, txID)
}

// SetProof records the uploaded proof blob reference and moves the order to
// the review status.
func (r *Repository) SetProof(ctx context.Context, txID, proofRef string, declared decimal.NullDecimal, status entity.OrderStatus) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SetProof", trace.WithAttributes(attribute.String("order.txid", txID)))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("proof_ref = ?", proofRef).
		Set("declared_amount = ?", declared).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("txid = ?", txID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return r.checkAffected(ctx, res, txID)
}

// SetCancellation cancels the order and persists the typed reason. Cancelling
// an already-cancelled order is a no-op at the row level.
func (r *Repository) SetCancellation(ctx context.Context, txID, reason string) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SetCancellation", trace.WithAttributes(attribute.String("order.txid", txID)))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", entity.StatusCancelled).
		Set("cancellation_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("txid = ?", txID).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return r.checkAffected(ctx, res, txID)
}

// checkAffected distinguishes "row missing" from "guard skipped the write".
func (r *Repository) checkAffected(ctx context.Context, res sql.Result, txID string) error {
	affected, err := res.RowsAffected()
	if err != nil || affected > 0 {
		return nil
	}
	exists, err := r.writer.NewSelect().
		Model((*entity.Order)(nil)).
		Where("txid = ?", txID).
		Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return port.ErrOrderNotFound
	}
	return nil
}
