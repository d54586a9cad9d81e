package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deskcore/helpdesk-service/internal/domain"
)

// TagRepository manages tags and the ticket_tags join.
type TagRepository interface {
	Create(ctx context.Context, tag *domain.Tag) error
	GetByID(ctx context.Context, id string) (*domain.Tag, error)
	GetByName(ctx context.Context, name string) (*domain.Tag, error)
	List(ctx context.Context) ([]domain.Tag, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Tag, error)
	AttachToTicket(ctx context.Context, ticketID, tagID string) error
	DetachFromTicket(ctx context.Context, ticketID, tagID string) error
}

type tagRepository struct {
	pool *pgxpool.Pool
}

// NewTagRepository constructs repository.
func NewTagRepository(pool *pgxpool.Pool) TagRepository {
	return &tagRepository{pool: pool}
}

func (r *tagRepository) Create(ctx context.Context, tag *domain.Tag) error {
	const query = `
        INSERT INTO tags (name, color, description)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		tag.Name,
		tag.Color,
		tag.Description,
	).Scan(&tag.ID, &tag.CreatedAt)
}

func (r *tagRepository) GetByID(ctx context.Context, id string) (*domain.Tag, error) {
	const query = `SELECT id, name, color, description, created_at FROM tags WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *tagRepository) GetByName(ctx context.Context, name string) (*domain.Tag, error) {
	const query = `SELECT id, name, color, description, created_at FROM tags WHERE name=$1`
	return r.fetchSingle(ctx, query, name)
}

func (r *tagRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Tag, error) {
	var tag domain.Tag
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&tag.ID,
		&tag.Name,
		&tag.Color,
		&tag.Description,
		&tag.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) List(ctx context.Context) ([]domain.Tag, error) {
	const query = `SELECT id, name, color, description, created_at FROM tags ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTags(rows)
}

func (r *tagRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Tag, error) {
	const query = `
        SELECT t.id, t.name, t.color, t.description, t.created_at
        FROM tags t
        JOIN ticket_tags tt ON tt.tag_id = t.id
        WHERE tt.ticket_id = $1
        ORDER BY t.name ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTags(rows)
}

func (r *tagRepository) AttachToTicket(ctx context.Context, ticketID, tagID string) error {
	const query = `
        INSERT INTO ticket_tags (ticket_id, tag_id)
        VALUES ($1,$2)
        ON CONFLICT (ticket_id, tag_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, ticketID, tagID)
	return err
}

func (r *tagRepository) DetachFromTicket(ctx context.Context, ticketID, tagID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_tags WHERE ticket_id=$1 AND tag_id=$2`, ticketID, tagID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTags(rows pgx.Rows) ([]domain.Tag, error) {
	var result []domain.Tag
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.Description, &tag.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}
