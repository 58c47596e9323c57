package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/valueobject"
)

// EffectStep is one durable consequence of a completed payment.
type EffectStep string

const (
	EffectStepAddParticipant           EffectStep = "ADD_PARTICIPANT"
	EffectStepConfirmParticipation     EffectStep = "CONFIRM_PARTICIPATION"
	EffectStepConfirmReservation       EffectStep = "CONFIRM_RESERVATION"
	EffectStepActivateMembership       EffectStep = "ACTIVATE_MEMBERSHIP"
	EffectStepConfirmPersonReservation EffectStep = "CONFIRM_PERSON_RESERVATION"
	EffectStepRecordCommission         EffectStep = "RECORD_COMMISSION"
	EffectStepBuyerCalendar            EffectStep = "BUYER_CALENDAR"
	EffectStepSellerCalendar           EffectStep = "SELLER_CALENDAR"
)

// EffectState tracks how far side-effect application got for one transaction.
type EffectState struct {
	StartedAt      time.Time
	FailedStep     *EffectStep
	CompletedAt    *time.Time
	CurrentStep    EffectStep
	FailureReason  string
	CompletedSteps []EffectStep
	TransactionID  uuid.UUID
}

// SideEffectApplier turns a completed transaction into booking confirmations,
// counters, commission entries and calendar entries. Every step is an upsert
// or a conditional update, so running Apply again after a partial failure
// finishes the job without doubling anything.
type SideEffectApplier struct {
	bookings port.BookingRepository
	calendar port.CalendarRepository
	backOff  BackOffFactory
	logger   *slog.Logger
}

func NewSideEffectApplier(bookings port.BookingRepository, calendar port.CalendarRepository, backOff BackOffFactory, logger *slog.Logger) *SideEffectApplier {
	if backOff == nil {
		backOff = DefaultBackOff
	}
	return &SideEffectApplier{
		bookings: bookings,
		calendar: calendar,
		backOff:  backOff,
		logger:   logger,
	}
}

type effectPlan struct {
	steps []EffectStep
	run   map[EffectStep]func(context.Context) error
}

func (p *effectPlan) add(step EffectStep, fn func(context.Context) error) {
	p.steps = append(p.steps, step)
	if p.run == nil {
		p.run = make(map[EffectStep]func(context.Context) error)
	}
	p.run[step] = fn
}

// Apply runs the side effects of tx, which must be COMPLETED.
func (a *SideEffectApplier) Apply(ctx context.Context, tx model.Transaction) (EffectState, error) {
	state := EffectState{
		TransactionID: tx.ID(),
		StartedAt:     time.Now().UTC(),
	}
	if tx.Status() != valueobject.TransactionStatusCompleted {
		return a.fail(state, "", "transaction is not completed"),
			fmt.Errorf("%w: side effects of %s transaction", model.ErrInvalidStatusTransition, tx.Status())
	}

	plan, err := a.plan(ctx, tx)
	if err != nil {
		return a.fail(state, "", err.Error()), err
	}

	for _, step := range plan.steps {
		state.CurrentStep = step
		fn := plan.run[step]
		if err := retry(ctx, a.backOff, func() error { return permanentIfNotFound(fn(ctx)) }); err != nil {
			a.logger.Error("side effect step failed",
				"transaction_id", tx.ID(),
				"step", step,
				"completed_steps", state.CompletedSteps,
				"error", err)
			return a.fail(state, step, err.Error()), fmt.Errorf("failed to apply %s: %w", step, err)
		}
		state.CompletedSteps = append(state.CompletedSteps, step)
	}

	now := time.Now().UTC()
	state.CompletedAt = &now
	a.logger.Info("side effects applied",
		"transaction_id", tx.ID(),
		"type", tx.Type().String(),
		"steps", state.CompletedSteps)
	return state, nil
}

// plan loads the booking behind tx and lists the steps to run.
func (a *SideEffectApplier) plan(ctx context.Context, tx model.Transaction) (*effectPlan, error) {
	p := &effectPlan{}
	var err error
	switch tx.Type() {
	case valueobject.TransactionTypeEvent:
		err = a.planEvent(ctx, tx, p)
	case valueobject.TransactionTypeReservation:
		err = a.planReservation(ctx, tx, p)
	case valueobject.TransactionTypeMembership:
		err = a.planMembership(ctx, tx, p)
	case valueobject.TransactionTypePersonReservation:
		err = a.planPersonReservation(ctx, tx, p)
	default:
		err = fmt.Errorf("no side effects defined for transaction type %q", tx.Type())
	}
	if err != nil {
		return nil, err
	}

	if tx.HasSeller() && tx.Commission() != nil {
		split := *tx.Commission()
		entry := model.CommissionEntry{
			TransactionID:  tx.ID(),
			Type:           tx.Type(),
			SellerID:       tx.SellerID(),
			Amount:         tx.Amount().Amount(),
			Currency:       tx.Amount().Currency().Code(),
			Rate:           split.Rate,
			Commission:     split.Commission,
			SellerReceives: split.SellerReceives,
			CreatedAt:      completedAt(tx),
		}
		p.add(EffectStepRecordCommission, func(ctx context.Context) error {
			return a.bookings.RecordCommission(ctx, entry)
		})
	}
	return p, nil
}

func (a *SideEffectApplier) planEvent(ctx context.Context, tx model.Transaction, p *effectPlan) error {
	part, err := a.bookings.GetEventParticipation(ctx, tx.RelatedID())
	if err != nil {
		return fmt.Errorf("failed to load event participation: %w", err)
	}

	p.add(EffectStepAddParticipant, func(ctx context.Context) error {
		added, err := a.bookings.AddEventParticipant(ctx, part.EventID, tx.BuyerID())
		if err == nil && !added {
			a.logger.Debug("buyer already a participant", "event_id", part.EventID, "user_id", tx.BuyerID())
		}
		return err
	})
	p.add(EffectStepConfirmParticipation, func(ctx context.Context) error {
		return a.bookings.ConfirmEventParticipation(ctx, part.ID, tx.ID())
	})
	entry := model.CalendarEntry{
		ID:        model.CalendarEntryID(tx.RelatedID(), "buyer"),
		UserID:    tx.BuyerID(),
		Type:      model.CalendarTypeEvent,
		Title:     part.EventTitle,
		Date:      part.StartsAt,
		StartTime: part.StartsAt.Format("15:04"),
		Location:  part.Location,
		RelatedID: part.EventID,
		CreatedAt: completedAt(tx),
	}
	p.add(EffectStepBuyerCalendar, a.upsertCalendar(entry))
	return nil
}

func (a *SideEffectApplier) planReservation(ctx context.Context, tx model.Transaction, p *effectPlan) error {
	res, err := a.bookings.GetFacilityReservation(ctx, tx.RelatedID())
	if err != nil {
		return fmt.Errorf("failed to load facility reservation: %w", err)
	}

	p.add(EffectStepConfirmReservation, func(ctx context.Context) error {
		return a.bookings.ConfirmFacilityReservation(ctx, res.ID, tx.ID())
	})
	p.add(EffectStepBuyerCalendar, a.upsertCalendar(model.CalendarEntry{
		ID:        model.CalendarEntryID(res.ID, "buyer"),
		UserID:    tx.BuyerID(),
		Type:      model.CalendarTypeReservation,
		Title:     res.FacilityName,
		Date:      res.Date,
		StartTime: res.StartTime,
		EndTime:   res.EndTime,
		Location:  res.Address,
		RelatedID: res.ID,
		CreatedAt: completedAt(tx),
	}))
	if res.OwnerID != uuid.Nil {
		p.add(EffectStepSellerCalendar, a.upsertCalendar(model.CalendarEntry{
			ID:           model.CalendarEntryID(res.ID, "owner"),
			UserID:       res.OwnerID,
			Type:         model.CalendarTypeReservation,
			Title:        fmt.Sprintf("%s: %s", res.FacilityName, res.CustomerName),
			Date:         res.Date,
			StartTime:    res.StartTime,
			EndTime:      res.EndTime,
			Location:     res.Address,
			RelatedID:    res.ID,
			ContactName:  res.CustomerName,
			ContactPhone: res.CustomerPhone,
			CreatedAt:    completedAt(tx),
		}))
	}
	return nil
}

func (a *SideEffectApplier) planMembership(ctx context.Context, tx model.Transaction, p *effectPlan) error {
	m, err := a.bookings.GetMembership(ctx, tx.RelatedID())
	if err != nil {
		return fmt.Errorf("failed to load membership: %w", err)
	}
	p.add(EffectStepActivateMembership, func(ctx context.Context) error {
		return a.bookings.ActivateMembership(ctx, m.ID, tx.ID())
	})
	return nil
}

func (a *SideEffectApplier) planPersonReservation(ctx context.Context, tx model.Transaction, p *effectPlan) error {
	res, err := a.bookings.GetPersonReservation(ctx, tx.RelatedID())
	if err != nil {
		return fmt.Errorf("failed to load person reservation: %w", err)
	}

	p.add(EffectStepConfirmPersonReservation, func(ctx context.Context) error {
		return a.bookings.ConfirmPersonReservation(ctx, res.ID, tx.ID())
	})
	p.add(EffectStepBuyerCalendar, a.upsertCalendar(model.CalendarEntry{
		ID:        model.CalendarEntryID(res.ID, "buyer"),
		UserID:    res.BuyerID,
		Type:      model.CalendarTypeReservationOut,
		Title:     res.ServiceName,
		Date:      res.Date,
		StartTime: res.StartTime,
		EndTime:   res.EndTime,
		Location:  res.Location,
		RelatedID: res.ID,
		CreatedAt: completedAt(tx),
	}))
	p.add(EffectStepSellerCalendar, a.upsertCalendar(model.CalendarEntry{
		ID:           model.CalendarEntryID(res.ID, "seller"),
		UserID:       res.ProviderID,
		Type:         model.CalendarTypeReservationIn,
		Title:        fmt.Sprintf("%s: %s", res.ServiceName, res.BuyerName),
		Date:         res.Date,
		StartTime:    res.StartTime,
		EndTime:      res.EndTime,
		Location:     res.Location,
		RelatedID:    res.ID,
		ContactName:  res.BuyerName,
		ContactPhone: res.BuyerPhone,
		CreatedAt:    completedAt(tx),
	}))
	return nil
}

func (a *SideEffectApplier) upsertCalendar(entry model.CalendarEntry) func(context.Context) error {
	return func(ctx context.Context) error {
		return a.calendar.UpsertEntry(ctx, entry)
	}
}

func (a *SideEffectApplier) fail(state EffectState, step EffectStep, reason string) EffectState {
	if step != "" {
		state.FailedStep = &step
	}
	state.FailureReason = reason
	return state
}

// A missing or withdrawn booking will not change on retry.
func permanentIfNotFound(err error) error {
	if errors.Is(err, model.ErrBookingNotFound) || errors.Is(err, model.ErrBookingNotPayable) {
		return backoff.Permanent(err)
	}
	return err
}

func completedAt(tx model.Transaction) time.Time {
	if tx.CompletedAt() != nil {
		return *tx.CompletedAt()
	}
	return tx.UpdatedAt()
}
