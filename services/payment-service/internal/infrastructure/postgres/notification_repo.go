package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/model"
	"github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service/internal/domain/port"
)

var _ port.NotificationStore = (*NotificationRepo)(nil)

type NotificationRepo struct {
	pool *pgxpool.Pool
}

func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Save inserts n unless its deterministic id is already stored.
func (r *NotificationRepo) Save(ctx context.Context, n model.Notification) (bool, error) {
	data := n.Data
	if data == nil {
		data = map[string]string{}
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("marshal notification data: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (
			id, user_id, role, kind, title, message, transaction_id, related_id, data, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, n.ID, n.UserID, string(n.Role), n.Kind, n.Title, n.Message, n.TransactionID, n.RelatedID, payload, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}
