package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskcore/helpdesk-service/internal/domain"
	"github.com/deskcore/helpdesk-service/internal/events"
	"github.com/deskcore/helpdesk-service/internal/observability"
	"github.com/deskcore/helpdesk-service/internal/repository"
	"github.com/deskcore/helpdesk-service/internal/routing"
	apperrors "github.com/deskcore/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows. Tagging feeds the auto-router
// best-effort: a routing failure is logged and never blocks the tag change
// itself.
type TicketService struct {
	tickets      repository.TicketRepository
	tags         repository.TagRepository
	teams        repository.TeamRepository
	interactions repository.InteractionRepository
	router       *routing.Engine
	dispatcher   events.Dispatcher
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo      repository.TicketRepository
	TagRepo         repository.TagRepository
	TeamRepo        repository.TeamRepository
	InteractionRepo repository.InteractionRepository
	Router          *routing.Engine
	Dispatcher      events.Dispatcher
	Metrics         *observability.Metrics
	Logger          *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
	TagIDs      []string
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	RequesterID *string
	TeamID      *string
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		tags:         deps.TagRepo,
		teams:        deps.TeamRepo,
		interactions: deps.InteractionRepo,
		router:       deps.Router,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger,
	}
}

// CreateTicket creates a ticket for a requester. New tickets start OPEN and
// unrouted; any initial tags are attached and a routing pass runs
// best-effort afterwards.
func (s *TicketService) CreateTicket(ctx context.Context, requesterID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		RequesterID: requesterID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, tagID := range input.TagIDs {
		if _, err := s.tags.GetByID(ctx, tagID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("tag", map[string]any{"tag_id": tagID})
			}
			return nil, apperrors.MapError(err)
		}
		if err := s.tags.AttachToTicket(ctx, ticket.ID, tagID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketCreated, ticket.ID, events.UserActor(requesterID), events.TicketCreatedPayload{
		TeamID:   ticket.TeamID,
		Priority: ticket.Priority,
		Title:    ticket.Title,
	}))

	if len(input.TagIDs) > 0 {
		s.routeBestEffort(ctx, ticket.ID)
	}
	return ticket, nil
}

// GetTicket fetches a ticket with its tags.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	tags, err := s.tags.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Tags = tags
	return ticket, nil
}

// ListTickets returns tickets matching the filter.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		RequesterID: filter.RequesterID,
		TeamID:      filter.TeamID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListInteractions returns the audit trail for a ticket.
func (s *TicketService) ListInteractions(ctx context.Context, ticketID string, limit, offset int) ([]domain.Interaction, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	result, err := s.interactions.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// UpdateStatus moves a ticket through its lifecycle and records a
// STATUS_CHANGE interaction.
func (s *TicketService) UpdateStatus(ctx context.Context, staffID, ticketID string, newStatus domain.TicketStatus, comment string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	if newStatus == domain.TicketStatusClosed {
		now := time.Now()
		ticket.ClosedAt = &now
	} else if ticket.ClosedAt != nil {
		ticket.ClosedAt = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.interactions.Create(ctx, &domain.Interaction{
		TicketID:   ticket.ID,
		AuthorType: domain.AuthorTypeStaff,
		AuthorID:   &staffID,
		Type:       domain.InteractionStatusChange,
		Payload: map[string]any{
			"old_status": oldStatus,
			"new_status": newStatus,
			"comment":    comment,
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketStatusChanged, ticket.ID, events.StaffActor(staffID), events.TicketStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Comment:   comment,
	}))
	return ticket, nil
}

// AddNote appends a NOTE interaction to a ticket.
func (s *TicketService) AddNote(ctx context.Context, authorType domain.InteractionAuthorType, authorID, ticketID, body string) (*domain.Interaction, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("body required", nil)
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	note := &domain.Interaction{
		TicketID:   ticketID,
		AuthorType: authorType,
		AuthorID:   &authorID,
		Type:       domain.InteractionNote,
		Payload:    map[string]any{"body": body},
	}
	if err := s.interactions.Create(ctx, note); err != nil {
		return nil, apperrors.MapError(err)
	}

	actor := events.UserActor(authorID)
	if authorType == domain.AuthorTypeStaff {
		actor = events.StaffActor(authorID)
	}
	s.publishEvent(ctx, events.NewEvent(events.EventTicketNoteAdded, ticketID, actor, events.TicketNoteAddedPayload{
		InteractionID: note.ID,
		BodyPreview:   stringPreview(body, 120),
	}))
	return note, nil
}

// AttachTag attaches a tag to a ticket and triggers a best-effort routing
// pass. Routing problems never fail the tag change.
func (s *TicketService) AttachTag(ctx context.Context, actorID, ticketID, tagID string) error {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return apperrors.MapError(err)
	}
	if _, err := s.tags.GetByID(ctx, tagID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("tag", map[string]any{"tag_id": tagID})
		}
		return apperrors.MapError(err)
	}
	if err := s.tags.AttachToTicket(ctx, ticketID, tagID); err != nil {
		return apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketTagged, ticketID, events.StaffActor(actorID), events.TicketTaggedPayload{
		TagID:    tagID,
		Attached: true,
	}))

	s.routeBestEffort(ctx, ticketID)
	return nil
}

// DetachTag removes a tag from a ticket. Detaching does not trigger
// routing; the router never un-assigns.
func (s *TicketService) DetachTag(ctx context.Context, actorID, ticketID, tagID string) error {
	if err := s.tags.DetachFromTicket(ctx, ticketID, tagID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket tag", map[string]any{"ticket_id": ticketID, "tag_id": tagID})
		}
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.NewEvent(events.EventTicketTagged, ticketID, events.StaffActor(actorID), events.TicketTaggedPayload{
		TagID:    tagID,
		Attached: false,
	}))
	return nil
}

// AssignTeam manually reassigns a ticket (staff override). The next routing
// pass treats the result as the new current state.
func (s *TicketService) AssignTeam(ctx context.Context, staffID, ticketID, teamID string) (*domain.Ticket, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("team", map[string]any{"team_id": teamID})
		}
		return nil, apperrors.MapError(err)
	}
	if !team.IsActive {
		return nil, apperrors.NewConflict("team inactive", map[string]any{"team_id": teamID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if ticket.TeamID != nil && *ticket.TeamID == team.ID {
		return ticket, nil
	}

	oldTeam := ticket.TeamID
	ticket.TeamID = &team.ID
	ticket.AssigneeID = nil
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := s.interactions.Create(ctx, &domain.Interaction{
		TicketID:   ticket.ID,
		AuthorType: domain.AuthorTypeStaff,
		AuthorID:   &staffID,
		Type:       domain.InteractionAssignment,
		Payload: map[string]any{
			"old_team_id": oldTeam,
			"new_team_id": team.ID,
		},
	}); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventTicketAssigned, ticket.ID, events.StaffActor(staffID), events.TicketAssignedPayload{
		OldTeamID: oldTeam,
		NewTeamID: ticket.TeamID,
	}))
	return ticket, nil
}

// RouteTicket runs a routing pass on demand and reports the outcome. Unlike
// the tag-triggered path, errors propagate to the caller.
func (s *TicketService) RouteTicket(ctx context.Context, ticketID string) (*routing.Assignment, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}

	start := time.Now()
	assignment, err := s.router.AutoAssign(ctx, ticketID)
	s.recordRouting(assignment, err, time.Since(start))
	if err != nil {
		if errors.Is(err, routing.ErrTicketMoved) {
			return nil, apperrors.NewConflict("ticket reassigned concurrently", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return assignment, nil
}

// routeBestEffort runs routing as an enrichment step after a tag change.
func (s *TicketService) routeBestEffort(ctx context.Context, ticketID string) {
	if s.router == nil {
		return
	}
	start := time.Now()
	assignment, err := s.router.AutoAssign(ctx, ticketID)
	s.recordRouting(assignment, err, time.Since(start))
	if err != nil {
		s.logger.Warn("auto-routing failed",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func (s *TicketService) recordRouting(assignment *routing.Assignment, err error, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	outcome := observability.RoutingOutcomeNoop
	switch {
	case err != nil:
		outcome = observability.RoutingOutcomeError
	case assignment != nil:
		outcome = observability.RoutingOutcomeAssigned
	}
	s.metrics.RecordRouting(outcome, duration)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusInProgress: {domain.TicketStatusOpen, domain.TicketStatusResolved},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
