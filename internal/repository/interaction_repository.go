package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskcore/helpdesk-service/internal/domain"
)

// InteractionRepository stores append-only audit entries.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *domain.Interaction) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Interaction, error)
}

type interactionRepository struct {
	pool *pgxpool.Pool
}

// NewInteractionRepository builds repository.
func NewInteractionRepository(pool *pgxpool.Pool) InteractionRepository {
	return &interactionRepository{pool: pool}
}

func (r *interactionRepository) Create(ctx context.Context, interaction *domain.Interaction) error {
	const query = `
        INSERT INTO interactions (ticket_id, author_type, author_id, interaction_type, payload)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		interaction.TicketID,
		interaction.AuthorType,
		interaction.AuthorID,
		interaction.Type,
		interaction.Payload,
	).Scan(&interaction.ID, &interaction.CreatedAt)
}

func (r *interactionRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.Interaction, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, ticket_id, author_type, author_id, interaction_type, payload, created_at
        FROM interactions WHERE ticket_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, ticketID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Interaction
	for rows.Next() {
		var interaction domain.Interaction
		if err := rows.Scan(
			&interaction.ID,
			&interaction.TicketID,
			&interaction.AuthorType,
			&interaction.AuthorID,
			&interaction.Type,
			&interaction.Payload,
			&interaction.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, interaction)
	}
	return result, rows.Err()
}
