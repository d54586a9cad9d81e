package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskcore/helpdesk-service/internal/api/dto"
	"github.com/deskcore/helpdesk-service/internal/domain"
	"github.com/deskcore/helpdesk-service/internal/service"
	apperrors "github.com/deskcore/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RequesterID == "" || req.Title == "" {
		return apperrors.NewValidationError("requester_id and title required", nil)
	}

	input := service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		TagIDs:      req.TagIDs,
	}
	ticket, err := h.service.CreateTicket(c.Context(), req.RequesterID, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.service.ListTickets(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffID == "" || req.Status == "" {
		return apperrors.NewValidationError("staff_id and status required", nil)
	}
	ticket, err := h.service.UpdateStatus(c.Context(), req.StaffID, c.Params("id"), req.Status, req.Comment)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddNote POST /tickets/:id/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	var req dto.AddNoteRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AuthorID == "" || strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("author_id and body required", nil)
	}
	authorType := req.AuthorType
	if authorType == "" {
		authorType = domain.AuthorTypeUser
	}
	note, err := h.service.AddNote(c.Context(), authorType, req.AuthorID, c.Params("id"), req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": interactionResponse(note)})
}

// ListInteractions GET /tickets/:id/interactions.
func (h *TicketsHandler) ListInteractions(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	items, err := h.service.ListInteractions(c.Context(), c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	result := make([]dto.InteractionResponse, 0, len(items))
	for i := range items {
		result = append(result, interactionResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": result})
}

// AttachTag POST /tickets/:id/tags.
func (h *TicketsHandler) AttachTag(c *fiber.Ctx) error {
	var req dto.TagChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ActorID == "" || req.TagID == "" {
		return apperrors.NewValidationError("actor_id and tag_id required", nil)
	}
	if err := h.service.AttachTag(c.Context(), req.ActorID, c.Params("id"), req.TagID); err != nil {
		return err
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

// DetachTag DELETE /tickets/:id/tags/:tagId.
func (h *TicketsHandler) DetachTag(c *fiber.Ctx) error {
	actorID := c.Query("actor_id")
	if actorID == "" {
		return apperrors.NewValidationError("actor_id required", nil)
	}
	if err := h.service.DetachTag(c.Context(), actorID, c.Params("id"), c.Params("tagId")); err != nil {
		return err
	}
	return c.Status(http.StatusNoContent).Send(nil)
}

// AssignTeam POST /tickets/:id/assign.
func (h *TicketsHandler) AssignTeam(c *fiber.Ctx) error {
	var req dto.AssignTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.StaffID == "" || req.TeamID == "" {
		return apperrors.NewValidationError("staff_id and team_id required", nil)
	}
	ticket, err := h.service.AssignTeam(c.Context(), req.StaffID, c.Params("id"), req.TeamID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// RouteTicket POST /tickets/:id/route.
func (h *TicketsHandler) RouteTicket(c *fiber.Ctx) error {
	assignment, err := h.service.RouteTicket(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if assignment == nil {
		return c.JSON(fiber.Map{"data": dto.RouteResponse{
			Routed: false,
			Reason: "no candidate team or already on best team",
		}})
	}
	return c.JSON(fiber.Map{"data": dto.RouteResponse{
		Routed:    true,
		OldTeamID: assignment.OldTeam,
		NewTeamID: &assignment.NewTeam,
	}})
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}

	if requester := c.Query("requester_id"); requester != "" {
		filter.RequesterID = &requester
	}
	if team := c.Query("team_id"); team != "" {
		filter.TeamID = &team
	}
	for _, raw := range strings.Split(c.Query("status"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(raw)))
		}
	}
	for _, raw := range strings.Split(c.Query("priority"), ",") {
		if raw = strings.TrimSpace(raw); raw != "" {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(raw)))
		}
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := c.Query("created_from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filter.CreatedFrom = &parsed
		}
	}
	if to := c.Query("created_to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filter.CreatedTo = &parsed
		}
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit", "20"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset", "0"))
	return filter
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		RequesterID: ticket.RequesterID,
		TeamID:      ticket.TeamID,
		Title:       ticket.Title,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	tags := make([]dto.TagResponse, 0, len(ticket.Tags))
	for _, tag := range ticket.Tags {
		tags = append(tags, tagResponse(tag))
	}
	return dto.TicketDetailResponse{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		RequesterID: ticket.RequesterID,
		TeamID:      ticket.TeamID,
		Title:       ticket.Title,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		Tags:        tags,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
		ClosedAt:    ticket.ClosedAt,
	}
}

func interactionResponse(interaction *domain.Interaction) dto.InteractionResponse {
	return dto.InteractionResponse{
		ID:         interaction.ID,
		TicketID:   interaction.TicketID,
		AuthorType: interaction.AuthorType,
		AuthorID:   interaction.AuthorID,
		Type:       interaction.Type,
		Payload:    interaction.Payload,
		CreatedAt:  interaction.CreatedAt,
	}
}

func tagResponse(tag domain.Tag) dto.TagResponse {
	return dto.TagResponse{
		ID:          tag.ID,
		Name:        tag.Name,
		Color:       tag.Color,
		Description: tag.Description,
		CreatedAt:   tag.CreatedAt,
	}
}
