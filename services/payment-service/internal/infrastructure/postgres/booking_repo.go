package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obkaraca/sportsmaker-backend-sub001/pkg/money"
	pgpkg "github.com/obkaraca/sportsmaker-backend-sub001/pkg/postgres"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

var _ port.BookingRepository = (*BookingRepo)(nil)

// Booking statuses written on payment.
const (
	bookingStatusConfirmed = "confirmed"
)

// BookingRepo reads and confirms events, reservations and memberships.
type BookingRepo struct {
	pool *pgxpool.Pool
}

func NewBookingRepo(pool *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

func (r *BookingRepo) QuotePurchase(ctx context.Context, typ valueobject.TransactionType, relatedID, buyerID uuid.UUID) (model.Purchase, error) {
	var (
		ownerID, sellerID uuid.UUID
		status, name      string
		period            string
		price             decimal.Decimal
		currency          string
		maxParticipants   int
		participantCount  int
		err               error
	)

	p := model.Purchase{Type: typ, RelatedID: relatedID, BuyerID: buyerID}
	switch typ {
	case valueobject.TransactionTypeEvent:
		err = r.pool.QueryRow(ctx, `
			SELECT p.user_id, p.status, e.organizer_id, e.title, e.price, e.currency,
				e.max_participants, e.participant_count
			FROM event_participations p
			JOIN events e ON e.id = p.event_id
			WHERE p.id = $1
		`, relatedID).Scan(&ownerID, &status, &sellerID, &name, &price, &currency, &maxParticipants, &participantCount)
		if err == nil {
			switch {
			case ownerID != buyerID:
				return model.Purchase{}, model.ErrForbidden
			case status == bookingStatusConfirmed:
				return model.Purchase{}, model.ErrAlreadyPaid
			case maxParticipants > 0 && participantCount >= maxParticipants:
				return model.Purchase{}, model.ErrEventFull
			}
			p.Description = fmt.Sprintf("Event: %s", name)
		}
	case valueobject.TransactionTypeReservation:
		err = r.pool.QueryRow(ctx, `
			SELECT user_id, status, owner_id, facility_name, total_price, currency
			FROM facility_reservations WHERE id = $1
		`, relatedID).Scan(&ownerID, &status, &sellerID, &name, &price, &currency)
		if err == nil {
			if e := checkBuyer(ownerID, buyerID, status == bookingStatusConfirmed); e != nil {
				return model.Purchase{}, e
			}
			p.Description = fmt.Sprintf("Reservation: %s", name)
		}
	case valueobject.TransactionTypeMembership:
		err = r.pool.QueryRow(ctx, `
			SELECT user_id, status, owner_id, facility_name, period, price, currency
			FROM memberships WHERE id = $1
		`, relatedID).Scan(&ownerID, &status, &sellerID, &name, &period, &price, &currency)
		if err == nil {
			if e := checkBuyer(ownerID, buyerID, status == model.MembershipStatusActive); e != nil {
				return model.Purchase{}, e
			}
			p.Description = fmt.Sprintf("Membership: %s (%s)", name, period)
		}
	case valueobject.TransactionTypePersonReservation:
		err = r.pool.QueryRow(ctx, `
			SELECT buyer_id, status, provider_id, service_name, price, currency
			FROM person_reservations WHERE id = $1
		`, relatedID).Scan(&ownerID, &status, &sellerID, &name, &price, &currency)
		if err == nil {
			if e := checkBuyer(ownerID, buyerID, status == bookingStatusConfirmed); e != nil {
				return model.Purchase{}, e
			}
			p.Description = fmt.Sprintf("Booking: %s", name)
		}
	default:
		return model.Purchase{}, fmt.Errorf("unsupported transaction type %q", typ)
	}
	if err != nil {
		return model.Purchase{}, notFound(err, "quote "+typ.String())
	}

	cur, err := money.NewCurrency(currency)
	if err != nil {
		return model.Purchase{}, err
	}
	p.SellerID = sellerID
	p.Amount = money.New(price, cur)
	return p, nil
}

func checkBuyer(owner, buyer uuid.UUID, paid bool) error {
	if owner != buyer {
		return model.ErrForbidden
	}
	if paid {
		return model.ErrAlreadyPaid
	}
	return nil
}

func (r *BookingRepo) GetEventParticipation(ctx context.Context, id uuid.UUID) (model.EventParticipation, error) {
	var p model.EventParticipation
	err := r.pool.QueryRow(ctx, `
		SELECT p.id, p.event_id, p.user_id, e.organizer_id, e.title, e.starts_at, e.location
		FROM event_participations p
		JOIN events e ON e.id = p.event_id
		WHERE p.id = $1
	`, id).Scan(&p.ID, &p.EventID, &p.UserID, &p.OrganizerID, &p.EventTitle, &p.StartsAt, &p.Location)
	if err != nil {
		return model.EventParticipation{}, notFound(err, "query event participation")
	}
	return p, nil
}

// AddEventParticipant inserts into the participant set and bumps the counter
// in one database transaction, so the counter moves at most once per user.
func (r *BookingRepo) AddEventParticipant(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var added bool
	err := pgpkg.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
			return fmt.Errorf("query event: %w", err)
		}
		if !exists {
			return model.ErrBookingNotFound
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO event_participants (event_id, user_id) VALUES ($1, $2)
			ON CONFLICT (event_id, user_id) DO NOTHING
		`, eventID, userID)
		if err != nil {
			return fmt.Errorf("insert event participant: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx, `
			UPDATE events SET participant_count = participant_count + 1 WHERE id = $1
		`, eventID); err != nil {
			return fmt.Errorf("increment participant count: %w", err)
		}
		added = true
		return nil
	})
	return added, err
}

func (r *BookingRepo) ConfirmEventParticipation(ctx context.Context, participationID, transactionID uuid.UUID) error {
	return r.confirm(ctx, `
		UPDATE event_participations SET status = $3, transaction_id = $2 WHERE id = $1
	`, participationID, transactionID, bookingStatusConfirmed)
}

func (r *BookingRepo) GetFacilityReservation(ctx context.Context, id uuid.UUID) (model.FacilityReservation, error) {
	var res model.FacilityReservation
	err := r.pool.QueryRow(ctx, `
		SELECT id, facility_id, facility_name, owner_id, user_id, customer_name, customer_phone,
			date, start_time, end_time, address
		FROM facility_reservations WHERE id = $1
	`, id).Scan(
		&res.ID, &res.FacilityID, &res.FacilityName, &res.OwnerID, &res.UserID,
		&res.CustomerName, &res.CustomerPhone, &res.Date, &res.StartTime, &res.EndTime, &res.Address,
	)
	if err != nil {
		return model.FacilityReservation{}, notFound(err, "query facility reservation")
	}
	return res, nil
}

func (r *BookingRepo) ConfirmFacilityReservation(ctx context.Context, id, transactionID uuid.UUID) error {
	return r.confirm(ctx, `
		UPDATE facility_reservations SET status = $3, transaction_id = $2, payment_status = 'completed'
		WHERE id = $1
	`, id, transactionID, bookingStatusConfirmed)
}

func (r *BookingRepo) GetMembership(ctx context.Context, id uuid.UUID) (model.Membership, error) {
	var m model.Membership
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, facility_id, facility_name, owner_id, period, status, start_date, end_date
		FROM memberships WHERE id = $1
	`, id).Scan(&m.ID, &m.UserID, &m.FacilityID, &m.FacilityName, &m.OwnerID, &m.Period, &m.Status, &m.StartDate, &m.EndDate)
	if err != nil {
		return model.Membership{}, notFound(err, "query membership")
	}
	return m, nil
}

// ActivateMembership activates a membership awaiting payment. Re-activating
// an active one is a no-op write; any other status is left alone.
func (r *BookingRepo) ActivateMembership(ctx context.Context, id, transactionID uuid.UUID) error {
	err := r.confirm(ctx, `
		UPDATE memberships SET status = $3, transaction_id = $2
		WHERE id = $1 AND status IN ('pending_payment', 'active')
	`, id, transactionID, model.MembershipStatusActive)
	if !errors.Is(err, model.ErrBookingNotFound) {
		return err
	}
	m, findErr := r.GetMembership(ctx, id)
	if findErr != nil {
		return findErr
	}
	return fmt.Errorf("%w: membership %s is %s", model.ErrBookingNotPayable, id, m.Status)
}

func (r *BookingRepo) GetPersonReservation(ctx context.Context, id uuid.UUID) (model.PersonReservation, error) {
	var res model.PersonReservation
	err := r.pool.QueryRow(ctx, `
		SELECT id, buyer_id, provider_id, service_name, buyer_name, buyer_phone,
			date, start_time, end_time, location
		FROM person_reservations WHERE id = $1
	`, id).Scan(
		&res.ID, &res.BuyerID, &res.ProviderID, &res.ServiceName, &res.BuyerName, &res.BuyerPhone,
		&res.Date, &res.StartTime, &res.EndTime, &res.Location,
	)
	if err != nil {
		return model.PersonReservation{}, notFound(err, "query person reservation")
	}
	return res, nil
}

func (r *BookingRepo) ConfirmPersonReservation(ctx context.Context, id, transactionID uuid.UUID) error {
	return r.confirm(ctx, `
		UPDATE person_reservations SET status = $3, transaction_id = $2 WHERE id = $1
	`, id, transactionID, bookingStatusConfirmed)
}

func (r *BookingRepo) RecordCommission(ctx context.Context, e model.CommissionEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO commission_entries (
			transaction_id, type, seller_id, amount, currency, rate, commission, seller_receives, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (transaction_id) DO UPDATE SET
			rate = EXCLUDED.rate,
			commission = EXCLUDED.commission,
			seller_receives = EXCLUDED.seller_receives
	`, e.TransactionID, e.Type.String(), e.SellerID, e.Amount, e.Currency, e.Rate, e.Commission, e.SellerReceives, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert commission entry: %w", err)
	}
	return nil
}

func (r *BookingRepo) confirm(ctx context.Context, sql string, id, transactionID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, sql, id, transactionID, status)
	if err != nil {
		return fmt.Errorf("confirm booking %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrBookingNotFound
	}
	return nil
}

func notFound(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrBookingNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
