package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

var _ port.CalendarRepository = (*CalendarRepo)(nil)

type CalendarRepo struct {
	pool *pgxpool.Pool
}

func NewCalendarRepo(pool *pgxpool.Pool) *CalendarRepo {
	return &CalendarRepo{pool: pool}
}

func (r *CalendarRepo) UpsertEntry(ctx context.Context, e model.CalendarEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO calendar_entries (
			id, user_id, type, title, description, date, start_time, end_time,
			location, related_id, contact_name, contact_phone, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`,
		e.ID, e.UserID, e.Type, e.Title, e.Description, e.Date, e.StartTime, e.EndTime,
		e.Location, e.RelatedID, e.ContactName, e.ContactPhone, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calendar entry %s: %w", e.ID, err)
	}
	return nil
}
