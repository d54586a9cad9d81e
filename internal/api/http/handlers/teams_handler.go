package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskcore/helpdesk-service/internal/api/dto"
	"github.com/deskcore/helpdesk-service/internal/domain"
	"github.com/deskcore/helpdesk-service/internal/service"
	apperrors "github.com/deskcore/helpdesk-service/pkg/util/errorutil"
)

// TeamsHandler manages team administration endpoints.
type TeamsHandler struct {
	service *service.TeamService
}

// NewTeamsHandler constructs handler.
func NewTeamsHandler(teamService *service.TeamService) *TeamsHandler {
	return &TeamsHandler{service: teamService}
}

// CreateTeam POST /teams.
func (h *TeamsHandler) CreateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.service.CreateTeam(c.Context(), service.TeamInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": teamResponse(team, nil)})
}

// UpdateTeam PATCH /teams/:id.
func (h *TeamsHandler) UpdateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	team, err := h.service.UpdateTeam(c.Context(), c.Params("id"), service.TeamInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team, nil)})
}

// GetTeam GET /teams/:id.
func (h *TeamsHandler) GetTeam(c *fiber.Ctx) error {
	team, specialties, err := h.service.GetTeam(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": teamResponse(team, specialties)})
}

// ListTeams GET /teams.
func (h *TeamsHandler) ListTeams(c *fiber.Ctx) error {
	teams, err := h.service.ListTeams(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for i := range teams {
		items = append(items, teamResponse(&teams[i], nil))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetSpecialties PUT /teams/:id/specialties.
func (h *TeamsHandler) SetSpecialties(c *fiber.Ctx) error {
	var req dto.SetSpecialtiesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.service.SetSpecialties(c.Context(), c.Params("id"), req.TagIDs); err != nil {
		return err
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

// TeamLoads GET /teams/loads.
func (h *TeamsHandler) TeamLoads(c *fiber.Ctx) error {
	loads, err := h.service.TeamLoads(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TeamLoadResponse, 0, len(loads))
	for _, load := range loads {
		items = append(items, dto.TeamLoadResponse{TeamID: load.TeamID, Load: load.Load})
	}
	return c.JSON(fiber.Map{"data": items})
}

func teamResponse(team *domain.Team, specialties []domain.Tag) dto.TeamResponse {
	resp := dto.TeamResponse{
		ID:          team.ID,
		Name:        team.Name,
		Description: team.Description,
		IsActive:    team.IsActive,
		CreatedAt:   team.CreatedAt,
		UpdatedAt:   team.UpdatedAt,
	}
	for _, tag := range specialties {
		resp.Specialties = append(resp.Specialties, tagResponse(tag))
	}
	return resp
}
