package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskcore/helpdesk-service/internal/domain"
)

// TeamRepository manages persistence for teams and their specialties.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	ListActive(ctx context.Context) ([]domain.Team, error)
	SetSpecialties(ctx context.Context, teamID string, tagIDs []string) error
	ListSpecialties(ctx context.Context, teamID string) ([]domain.Tag, error)
	ListBySpecialtyTags(ctx context.Context, tagIDs []string) ([]string, error)
	OpenTicketCounts(ctx context.Context, teamIDs []string) (map[string]int, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository constructs repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (name, description, is_active)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.Name,
		team.Description,
		team.IsActive,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	const query = `
        UPDATE teams SET name=$1, description=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		team.Name,
		team.Description,
		team.IsActive,
		team.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM teams WHERE id=$1`
	var team domain.Team
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&team.Description,
		&team.IsActive,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) ListActive(ctx context.Context) ([]domain.Team, error) {
	const query = `
        SELECT id, name, description, is_active, created_at, updated_at
        FROM teams WHERE is_active=TRUE ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.Name, &team.Description, &team.IsActive, &team.CreatedAt, &team.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}

// SetSpecialties replaces a team's specialty list in a single transaction.
func (r *teamRepository) SetSpecialties(ctx context.Context, teamID string, tagIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM team_specialties WHERE team_id=$1`, teamID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO team_specialties (team_id, tag_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`,
			teamID, tagID,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *teamRepository) ListSpecialties(ctx context.Context, teamID string) ([]domain.Tag, error) {
	const query = `
        SELECT t.id, t.name, t.color, t.description, t.created_at
        FROM tags t
        JOIN team_specialties ts ON ts.tag_id = t.id
        WHERE ts.team_id = $1
        ORDER BY t.name ASC`
	rows, err := r.pool.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTags(rows)
}

// ListBySpecialtyTags returns the distinct active teams declaring at least
// one of the given tags as a specialty. A single overlapping tag qualifies.
func (r *teamRepository) ListBySpecialtyTags(ctx context.Context, tagIDs []string) ([]string, error) {
	if len(tagIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT DISTINCT ts.team_id
        FROM team_specialties ts
        JOIN teams tm ON tm.id = ts.team_id
        WHERE ts.tag_id = ANY($1) AND tm.is_active = TRUE
        ORDER BY ts.team_id ASC`
	rows, err := r.pool.Query(ctx, query, tagIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result = append(result, id)
	}
	return result, rows.Err()
}

// OpenTicketCounts returns the live OPEN/IN_PROGRESS ticket count for each
// requested team in one query. Teams with no open tickets appear with 0.
func (r *teamRepository) OpenTicketCounts(ctx context.Context, teamIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(teamIDs))
	for _, id := range teamIDs {
		counts[id] = 0
	}
	if len(teamIDs) == 0 {
		return counts, nil
	}
	const query = `
        SELECT team_id, COUNT(*)
        FROM tickets
        WHERE team_id = ANY($1) AND status IN ('OPEN','IN_PROGRESS')
        GROUP BY team_id`
	rows, err := r.pool.Query(ctx, query, teamIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}
