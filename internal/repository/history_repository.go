package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dlfdkwl/discord-tiket/internal/domain"
)

// HistoryRepository stores durable ticket lifecycle audit entries.
type HistoryRepository interface {
	Record(ctx context.Context, event *domain.TicketEvent) error
	ListByChannel(ctx context.Context, channelID uint64) ([]domain.TicketEvent, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Record(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (tenant_id, channel_id, event_type, actor_id, payload)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		event.TenantID,
		event.ChannelID,
		event.EventType,
		event.ActorID,
		event.Payload,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *historyRepository) ListByChannel(ctx context.Context, channelID uint64) ([]domain.TicketEvent, error) {
	const query = `
        SELECT id, tenant_id, channel_id, event_type, actor_id, payload, created_at
        FROM ticket_events WHERE channel_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TenantID,
			&event.ChannelID,
			&event.EventType,
			&event.ActorID,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
