package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/events"
	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	pgpkg "github.com/obkaraca/sportsmaker-backend-sub001/pkg/postgres"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// Compile-time interface checks.
var (
	_ port.TransactionRepository = (*TransactionRepo)(nil)
	_ events.OutboxRepository    = (*TransactionRepo)(nil)
)

const (
	activeRelatedConstraint = "transactions_active_related_key"
	primaryKeyConstraint    = "transactions_pkey"
)

// errNoWrite rolls back a conditional write whose WHERE clause matched nothing.
var errNoWrite = errors.New("conditional write matched no row")

const transactionColumns = `
	id, type, buyer_id, seller_id, related_id, amount, currency,
	commission_rate, commission_amount, seller_receives, description,
	gateway_token, payment_page_url, gateway_payment_id, paid_price,
	status, completion_source, error_kind, error_detail,
	effects_claimed_at, effects_applied_at, effects_failed_at, effects_error,
	refund_status, refunded_amount, refund_requested, refund_last_error,
	refund_requested_at, refunded_at,
	version, created_at, updated_at, completed_at`

// TransactionRepo implements TransactionRepository and the outbox using PostgreSQL.
type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Create(ctx context.Context, tx model.Transaction) error {
	var sellerID *uuid.UUID
	if tx.HasSeller() {
		id := tx.SellerID()
		sellerID = &id
	}
	var rate, commission, sellerReceives *decimal.Decimal
	if c := tx.Commission(); c != nil {
		rate, commission, sellerReceives = &c.Rate, &c.Commission, &c.SellerReceives
	}
	refund := tx.Refund()

	err := pgpkg.WithTransaction(ctx, r.pool, func(dbtx pgx.Tx) error {
		_, err := dbtx.Exec(ctx, `
			INSERT INTO transactions (`+transactionColumns+`
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
				$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)
		`,
			tx.ID(), tx.Type().String(), tx.BuyerID(), sellerID, tx.RelatedID(),
			tx.Amount().Amount(), tx.Amount().Currency().Code(),
			rate, commission, sellerReceives, tx.Description(),
			tx.GatewayToken(), tx.PaymentPageURL(), tx.GatewayPaymentID(), tx.PaidPrice(),
			tx.Status().String(), tx.CompletionSource().String(), tx.ErrorKind(), tx.ErrorDetail(),
			tx.EffectsClaimedAt(), tx.EffectsAppliedAt(), tx.EffectsFailedAt(), tx.EffectsError(),
			refund.Status.String(), refund.Refunded, refund.Requested, refund.LastError,
			refund.RequestedAt, refund.RefundedAt,
			tx.Version(), tx.CreatedAt(), tx.UpdatedAt(), tx.CompletedAt(),
		)
		if err != nil {
			if pgpkg.IsUniqueViolation(err, activeRelatedConstraint) || pgpkg.IsUniqueViolation(err, primaryKeyConstraint) {
				return model.ErrActiveTransactionExists
			}
			return fmt.Errorf("insert transaction: %w", err)
		}
		return insertOutbox(ctx, dbtx, tx.DomainEvents())
	})
	return err
}

func (r *TransactionRepo) FindByID(ctx context.Context, id uuid.UUID) (model.Transaction, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

func (r *TransactionRepo) FindActiveByRelated(ctx context.Context, relatedID uuid.UUID) (model.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE related_id = $1 AND status <> 'FAILED'
		ORDER BY created_at DESC
		LIMIT 1
	`, relatedID)
	return scanTransaction(row)
}

func (r *TransactionRepo) TransitionTerminal(ctx context.Context, tx model.Transaction) (bool, error) {
	if !tx.Status().IsTerminal() {
		return false, fmt.Errorf("%w: %s is not terminal", model.ErrInvalidStatusTransition, tx.Status())
	}

	err := pgpkg.WithTransaction(ctx, r.pool, func(dbtx pgx.Tx) error {
		tag, err := dbtx.Exec(ctx, `
			UPDATE transactions SET
				status = $2,
				completion_source = $3,
				gateway_payment_id = $4,
				paid_price = $5,
				error_kind = $6,
				error_detail = $7,
				effects_claimed_at = $8,
				version = $9,
				updated_at = $10,
				completed_at = $11
			WHERE id = $1 AND status NOT IN ('COMPLETED', 'FAILED')
		`,
			tx.ID(), tx.Status().String(), tx.CompletionSource().String(),
			tx.GatewayPaymentID(), tx.PaidPrice(), tx.ErrorKind(), tx.ErrorDetail(),
			tx.EffectsClaimedAt(), tx.Version(), tx.UpdatedAt(), tx.CompletedAt(),
		)
		if err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errNoWrite
		}
		return insertOutbox(ctx, dbtx, tx.DomainEvents())
	})
	if errors.Is(err, errNoWrite) {
		if _, findErr := r.FindByID(ctx, tx.ID()); findErr != nil {
			return false, findErr
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *TransactionRepo) ClaimEffects(ctx context.Context, id uuid.UUID, now time.Time, lease time.Duration) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET effects_claimed_at = $2
		WHERE id = $1
			AND status = 'COMPLETED'
			AND effects_applied_at IS NULL
			AND effects_failed_at IS NULL
			AND (effects_claimed_at IS NULL OR effects_claimed_at <= $3)
	`, id, now, now.Add(-lease))
	if err != nil {
		return false, fmt.Errorf("claim side effects: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	if _, err := r.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *TransactionRepo) ReleaseEffects(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE transactions SET effects_claimed_at = NULL
		WHERE id = $1 AND status = 'COMPLETED' AND effects_applied_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("release side effects: %w", err)
	}
	return nil
}

func (r *TransactionRepo) MarkEffectsApplied(ctx context.Context, id uuid.UUID, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE transactions SET effects_applied_at = $2
		WHERE id = $1 AND effects_applied_at IS NULL
	`, id, now)
	if err != nil {
		return fmt.Errorf("mark side effects applied: %w", err)
	}
	return nil
}

func (r *TransactionRepo) MarkEffectsFailed(ctx context.Context, id uuid.UUID, now time.Time, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE transactions SET effects_failed_at = $2, effects_error = $3, effects_claimed_at = NULL
		WHERE id = $1 AND status = 'COMPLETED' AND effects_applied_at IS NULL
	`, id, now, reason)
	if err != nil {
		return fmt.Errorf("mark side effects failed: %w", err)
	}
	return nil
}

func (r *TransactionRepo) UnblockEffects(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE transactions SET effects_failed_at = NULL, effects_error = ''
		WHERE id = $1 AND effects_failed_at IS NOT NULL
	`, id)
	if err != nil {
		return fmt.Errorf("unblock side effects: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransactionRepo) FindEffectsPending(ctx context.Context, claimedBefore time.Time, limit int) ([]model.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE status = 'COMPLETED'
			AND effects_applied_at IS NULL
			AND effects_failed_at IS NULL
			AND (effects_claimed_at IS NULL OR effects_claimed_at < $1)
		ORDER BY updated_at
		LIMIT $2
	`, claimedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending side effects: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) SaveRefund(ctx context.Context, tx model.Transaction, expectedVersion int) error {
	refund := tx.Refund()
	err := pgpkg.WithTransaction(ctx, r.pool, func(dbtx pgx.Tx) error {
		tag, err := dbtx.Exec(ctx, `
			UPDATE transactions SET
				refund_status = $3,
				refunded_amount = $4,
				refund_requested = $5,
				refund_last_error = $6,
				refund_requested_at = $7,
				refunded_at = $8,
				version = $9,
				updated_at = $10
			WHERE id = $1 AND version = $2
		`,
			tx.ID(), expectedVersion,
			refund.Status.String(), refund.Refunded, refund.Requested, refund.LastError,
			refund.RequestedAt, refund.RefundedAt,
			tx.Version(), tx.UpdatedAt(),
		)
		if err != nil {
			return fmt.Errorf("update refund: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return errNoWrite
		}
		return insertOutbox(ctx, dbtx, tx.DomainEvents())
	})
	if errors.Is(err, errNoWrite) {
		if _, findErr := r.FindByID(ctx, tx.ID()); findErr != nil {
			return findErr
		}
		return model.ErrConcurrentModification
	}
	return err
}

// FetchUnpublished returns outbox entries not yet relayed, oldest first.
func (r *TransactionRepo) FetchUnpublished(ctx context.Context, batchSize int) ([]events.OutboxEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, aggregate_id, aggregate_type, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, batchSize)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var out []events.OutboxEntry
	for rows.Next() {
		var e events.OutboxEntry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox SET published_at = now()
		WHERE id = ANY($1) AND published_at IS NULL
	`, ids)
	if err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

func insertOutbox(ctx context.Context, q pgpkg.Querier, domainEvents []events.DomainEvent) error {
	for _, evt := range domainEvents {
		entry := events.NewOutboxEntry(evt)
		payload := entry.Payload
		if len(payload) == 0 {
			payload = []byte("{}")
		}
		_, err := q.Exec(ctx, `
			INSERT INTO outbox (id, aggregate_id, aggregate_type, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, entry.ID, entry.AggregateID, entry.AggregateType, entry.EventType, payload, entry.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
	}
	return nil
}

func scanTransaction(row pgx.Row) (model.Transaction, error) {
	var (
		p                                    model.ReconstructParams
		typeStr, currency, statusStr, source string
		refundStatus                         string
		sellerID                             *uuid.UUID
		amount                               decimal.Decimal
		rate, commission, sellerReceives     decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &typeStr, &p.BuyerID, &sellerID, &p.RelatedID, &amount, &currency,
		&rate, &commission, &sellerReceives, &p.Description,
		&p.GatewayToken, &p.PaymentPageURL, &p.GatewayPaymentID, &p.PaidPrice,
		&statusStr, &source, &p.ErrorKind, &p.ErrorDetail,
		&p.EffectsClaimedAt, &p.EffectsAppliedAt, &p.EffectsFailedAt, &p.EffectsError,
		&refundStatus, &p.Refund.Refunded, &p.Refund.Requested, &p.Refund.LastError,
		&p.Refund.RequestedAt, &p.Refund.RefundedAt,
		&p.Version, &p.CreatedAt, &p.UpdatedAt, &p.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, model.ErrTransactionNotFound
		}
		return model.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	if p.Type, err = valueobject.NewTransactionType(typeStr); err != nil {
		return model.Transaction{}, err
	}
	if p.Status, err = valueobject.NewTransactionStatus(statusStr); err != nil {
		return model.Transaction{}, err
	}
	if p.CompletionSource, err = valueobject.NewCompletionSource(source); err != nil {
		return model.Transaction{}, err
	}
	if p.Refund.Status, err = valueobject.NewRefundStatus(refundStatus); err != nil {
		return model.Transaction{}, err
	}
	cur, err := money.NewCurrency(currency)
	if err != nil {
		return model.Transaction{}, err
	}
	p.Amount = money.New(amount, cur)
	if sellerID != nil {
		p.SellerID = *sellerID
	}
	if rate.Valid && commission.Valid && sellerReceives.Valid {
		p.Commission = &valueobject.CommissionSplit{
			Rate:           rate.Decimal,
			Commission:     commission.Decimal,
			SellerReceives: sellerReceives.Decimal,
		}
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return model.Reconstruct(p), nil
}
