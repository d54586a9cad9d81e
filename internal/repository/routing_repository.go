package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskcore/helpdesk-service/internal/domain"
	"github.com/deskcore/helpdesk-service/internal/routing"
)

// routingRepository is the pgx-backed routing.Store. Reads delegate to the
// tag and team repositories; the commit runs the ticket update and the
// audit insert in one transaction so an assignment can never land
// unaudited.
type routingRepository struct {
	pool  *pgxpool.Pool
	tags  TagRepository
	teams TeamRepository
}

// NewRoutingRepository builds the routing store.
func NewRoutingRepository(pool *pgxpool.Pool, tags TagRepository, teams TeamRepository) routing.Store {
	return &routingRepository{pool: pool, tags: tags, teams: teams}
}

func (r *routingRepository) TicketTagIDs(ctx context.Context, ticketID string) ([]string, error) {
	tags, err := r.tags.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func (r *routingRepository) TeamsBySpecialtyTags(ctx context.Context, tagIDs []string) ([]string, error) {
	return r.teams.ListBySpecialtyTags(ctx, tagIDs)
}

func (r *routingRepository) OpenTicketCounts(ctx context.Context, teamIDs []string) (map[string]int, error) {
	return r.teams.OpenTicketCounts(ctx, teamIDs)
}

func (r *routingRepository) TicketTeam(ctx context.Context, ticketID string) (*string, error) {
	var teamID *string
	if err := r.pool.QueryRow(ctx, `SELECT team_id FROM tickets WHERE id=$1`, ticketID).Scan(&teamID); err != nil {
		return nil, err
	}
	return teamID, nil
}

func (r *routingRepository) CommitAssignment(ctx context.Context, ticketID string, oldTeam *string, newTeam, actorID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	// Conditional on the pre-read team so a racing re-route or manual
	// assignment cannot be silently overwritten.
	const update = `
        UPDATE tickets SET team_id=$1, updated_at=NOW()
        WHERE id=$2 AND team_id IS NOT DISTINCT FROM $3`
	cmd, err := tx.Exec(ctx, update, newTeam, ticketID, oldTeam)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return routing.ErrTicketMoved
	}

	const insert = `
        INSERT INTO interactions (ticket_id, author_type, author_id, interaction_type, payload)
        VALUES ($1,$2,$3,$4,$5)`
	payload := map[string]any{
		"old_team_id": oldTeam,
		"new_team_id": newTeam,
	}
	if _, err := tx.Exec(ctx, insert,
		ticketID,
		domain.AuthorTypeSystem,
		actorID,
		domain.InteractionAssignment,
		payload,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
