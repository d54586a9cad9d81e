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

// TeamService manages teams and their specialty declarations.
type TeamService struct {
	teams repository.TeamRepository
	tags  repository.TagRepository
}

// NewTeamService constructs the service.
func NewTeamService(teams repository.TeamRepository, tags repository.TagRepository) *TeamService {
	return &TeamService{teams: teams, tags: tags}
}

// TeamInput describes create/update payload.
type TeamInput struct {
	Name        string
	Description string
	IsActive    *bool
}

// CreateTeam creates an active team.
func (s *TeamService) CreateTeam(ctx context.Context, input TeamInput) (*domain.Team, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	team := &domain.Team{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// UpdateTeam applies changes to an existing team.
func (s *TeamService) UpdateTeam(ctx context.Context, teamID string, input TeamInput) (*domain.Team, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, apperrors.MapError(err)
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		team.Name = name
	}
	if desc := strings.TrimSpace(input.Description); desc != "" {
		team.Description = desc
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.teams.Update(ctx, team); err != nil {
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

// GetTeam fetches a team with its specialties.
func (s *TeamService) GetTeam(ctx context.Context, teamID string) (*domain.Team, []domain.Tag, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, nil, apperrors.MapError(err)
	}
	specialties, err := s.teams.ListSpecialties(ctx, teamID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return team, specialties, nil
}

// ListTeams returns all active teams.
func (s *TeamService) ListTeams(ctx context.Context) ([]domain.Team, error) {
	teams, err := s.teams.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return teams, nil
}

// SetSpecialties replaces a team's specialty tag list. Every tag must
// exist; the router picks the change up on its next pass.
func (s *TeamService) SetSpecialties(ctx context.Context, teamID string, tagIDs []string) error {
	if _, err := s.teams.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return apperrors.MapError(err)
	}
	for _, tagID := range tagIDs {
		if _, err := s.tags.GetByID(ctx, tagID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("tag", map[string]any{"tag_id": tagID})
			}
			return apperrors.MapError(err)
		}
	}
	if err := s.teams.SetSpecialties(ctx, teamID, tagIDs); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TeamLoads reports the live open-ticket load per active team.
func (s *TeamService) TeamLoads(ctx context.Context) ([]domain.TeamLoad, error) {
	teams, err := s.teams.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ids := make([]string, 0, len(teams))
	for _, team := range teams {
		ids = append(ids, team.ID)
	}
	counts, err := s.teams.OpenTicketCounts(ctx, ids)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	loads := make([]domain.TeamLoad, 0, len(ids))
	for _, id := range ids {
		loads = append(loads, domain.TeamLoad{TeamID: id, Load: counts[id]})
	}
	return loads, nil
}
