package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskcore/helpdesk-service/internal/domain"
	"github.com/deskcore/helpdesk-service/internal/repository"
	apperrors "github.com/deskcore/helpdesk-service/pkg/util/errorutil"
)

// TagService manages the tag catalog.
type TagService struct {
	tags repository.TagRepository
}

// NewTagService constructs the service.
func NewTagService(tags repository.TagRepository) *TagService {
	return &TagService{tags: tags}
}

// TagInput describes tag creation payload.
type TagInput struct {
	Name        string
	Color       string
	Description string
}

// CreateTag creates a tag; names are unique.
func (s *TagService) CreateTag(ctx context.Context, input TagInput) (*domain.Tag, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	if existing, err := s.tags.GetByName(ctx, name); err == nil && existing != nil {
		return nil, apperrors.NewConflict("tag name already exists", map[string]any{"name": name})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	tag := &domain.Tag{
		Name:        name,
		Color:       strings.TrimSpace(input.Color),
		Description: strings.TrimSpace(input.Description),
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, apperrors.MapError(err)
	}
	return tag, nil
}

// ListTags returns every tag ordered by name.
func (s *TagService) ListTags(ctx context.Context) ([]domain.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tags, nil
}
