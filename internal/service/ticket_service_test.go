package service

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/deskcore/helpdesk-service/internal/domain"
	"github.com/deskcore/helpdesk-service/internal/repository"
	"github.com/deskcore/helpdesk-service/internal/routing"
)

type fakeTicketRepo struct {
	tickets map[string]*domain.Ticket
	nextID  int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.nextID++
	ticket.ID = "ticket-" + strconv.Itoa(r.nextID)
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *ticket
	r.tickets[ticket.ID] = &copied
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (r *fakeTicketRepo) GetByExternalKey(_ context.Context, key string) (*domain.Ticket, error) {
	for _, ticket := range r.tickets {
		if ticket.ExternalKey == key {
			copied := *ticket
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(_ context.Context, _ repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		result = append(result, *ticket)
	}
	return result, nil
}

type fakeTagRepo struct {
	tags       map[string]*domain.Tag
	ticketTags map[string][]string
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: map[string]*domain.Tag{}, ticketTags: map[string][]string{}}
}

func (r *fakeTagRepo) Create(_ context.Context, tag *domain.Tag) error {
	tag.ID = "tag-" + tag.Name
	copied := *tag
	r.tags[tag.ID] = &copied
	return nil
}

func (r *fakeTagRepo) GetByID(_ context.Context, id string) (*domain.Tag, error) {
	tag, ok := r.tags[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return tag, nil
}

func (r *fakeTagRepo) GetByName(_ context.Context, name string) (*domain.Tag, error) {
	for _, tag := range r.tags {
		if tag.Name == name {
			return tag, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTagRepo) List(_ context.Context) ([]domain.Tag, error) {
	var result []domain.Tag
	for _, tag := range r.tags {
		result = append(result, *tag)
	}
	return result, nil
}

func (r *fakeTagRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Tag, error) {
	var result []domain.Tag
	for _, id := range r.ticketTags[ticketID] {
		if tag, ok := r.tags[id]; ok {
			result = append(result, *tag)
		}
	}
	return result, nil
}

func (r *fakeTagRepo) AttachToTicket(_ context.Context, ticketID, tagID string) error {
	for _, existing := range r.ticketTags[ticketID] {
		if existing == tagID {
			return nil
		}
	}
	r.ticketTags[ticketID] = append(r.ticketTags[ticketID], tagID)
	return nil
}

func (r *fakeTagRepo) DetachFromTicket(_ context.Context, ticketID, tagID string) error {
	ids := r.ticketTags[ticketID]
	for i, existing := range ids {
		if existing == tagID {
			r.ticketTags[ticketID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeTeamRepo struct {
	teams       map[string]*domain.Team
	specialties map[string][]string
	loads       map[string]int
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{
		teams:       map[string]*domain.Team{},
		specialties: map[string][]string{},
		loads:       map[string]int{},
	}
}

func (r *fakeTeamRepo) Create(_ context.Context, team *domain.Team) error {
	team.ID = "team-" + team.Name
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) Update(_ context.Context, team *domain.Team) error {
	if _, ok := r.teams[team.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *team
	r.teams[team.ID] = &copied
	return nil
}

func (r *fakeTeamRepo) GetByID(_ context.Context, id string) (*domain.Team, error) {
	team, ok := r.teams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *team
	return &copied, nil
}

func (r *fakeTeamRepo) ListActive(_ context.Context) ([]domain.Team, error) {
	var result []domain.Team
	for _, team := range r.teams {
		if team.IsActive {
			result = append(result, *team)
		}
	}
	return result, nil
}

func (r *fakeTeamRepo) SetSpecialties(_ context.Context, teamID string, tagIDs []string) error {
	r.specialties[teamID] = append([]string{}, tagIDs...)
	return nil
}

func (r *fakeTeamRepo) ListSpecialties(_ context.Context, _ string) ([]domain.Tag, error) {
	return nil, nil
}

func (r *fakeTeamRepo) ListBySpecialtyTags(_ context.Context, tagIDs []string) ([]string, error) {
	wanted := map[string]bool{}
	for _, id := range tagIDs {
		wanted[id] = true
	}
	var result []string
	for teamID, specialtyTags := range r.specialties {
		for _, tagID := range specialtyTags {
			if wanted[tagID] {
				result = append(result, teamID)
				break
			}
		}
	}
	return result, nil
}

func (r *fakeTeamRepo) OpenTicketCounts(_ context.Context, teamIDs []string) (map[string]int, error) {
	counts := map[string]int{}
	for _, id := range teamIDs {
		counts[id] = r.loads[id]
	}
	return counts, nil
}

type fakeInteractionRepo struct {
	interactions []domain.Interaction
	nextID       int
}

func (r *fakeInteractionRepo) Create(_ context.Context, interaction *domain.Interaction) error {
	r.nextID++
	interaction.ID = "int-" + strconv.Itoa(r.nextID)
	r.interactions = append(r.interactions, *interaction)
	return nil
}

func (r *fakeInteractionRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.Interaction, error) {
	var result []domain.Interaction
	for _, interaction := range r.interactions {
		if interaction.TicketID == ticketID {
			result = append(result, interaction)
		}
	}
	return result, nil
}

func (r *fakeInteractionRepo) byType(interactionType domain.InteractionType) []domain.Interaction {
	var result []domain.Interaction
	for _, interaction := range r.interactions {
		if interaction.Type == interactionType {
			result = append(result, interaction)
		}
	}
	return result
}

// serviceStore adapts the fake repos into a routing.Store so the service
// tests run a real engine end to end.
type serviceStore struct {
	tickets      *fakeTicketRepo
	tags         *fakeTagRepo
	teams        *fakeTeamRepo
	interactions *fakeInteractionRepo
	commitErr    error
}

func (s *serviceStore) TicketTagIDs(ctx context.Context, ticketID string) ([]string, error) {
	return s.tags.ticketTags[ticketID], nil
}

func (s *serviceStore) TeamsBySpecialtyTags(ctx context.Context, tagIDs []string) ([]string, error) {
	return s.teams.ListBySpecialtyTags(ctx, tagIDs)
}

func (s *serviceStore) OpenTicketCounts(ctx context.Context, teamIDs []string) (map[string]int, error) {
	return s.teams.OpenTicketCounts(ctx, teamIDs)
}

func (s *serviceStore) TicketTeam(_ context.Context, ticketID string) (*string, error) {
	ticket, ok := s.tickets.tickets[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ticket.TeamID, nil
}

func (s *serviceStore) CommitAssignment(_ context.Context, ticketID string, oldTeam *string, newTeam, actorID string) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	ticket, ok := s.tickets.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	team := newTeam
	ticket.TeamID = &team
	s.teams.loads[newTeam]++
	s.interactions.interactions = append(s.interactions.interactions, domain.Interaction{
		TicketID:   ticketID,
		AuthorType: domain.AuthorTypeSystem,
		AuthorID:   &actorID,
		Type:       domain.InteractionAssignment,
		Payload: map[string]any{
			"old_team_id": oldTeam,
			"new_team_id": newTeam,
		},
	})
	return nil
}

type serviceFixture struct {
	service      *TicketService
	tickets      *fakeTicketRepo
	tags         *fakeTagRepo
	teams        *fakeTeamRepo
	interactions *fakeInteractionRepo
	store        *serviceStore
}

func newServiceFixture() *serviceFixture {
	tickets := newFakeTicketRepo()
	tags := newFakeTagRepo()
	teams := newFakeTeamRepo()
	interactions := &fakeInteractionRepo{}
	store := &serviceStore{tickets: tickets, tags: tags, teams: teams, interactions: interactions}

	router := routing.NewEngine(routing.Dependencies{
		Store:         store,
		SystemActorID: "svc-router",
	})

	return &serviceFixture{
		service: NewTicketService(TicketDependencies{
			TicketRepo:      tickets,
			TagRepo:         tags,
			TeamRepo:        teams,
			InteractionRepo: interactions,
			Router:          router,
		}),
		tickets:      tickets,
		tags:         tags,
		teams:        teams,
		interactions: interactions,
		store:        store,
	}
}

func (f *serviceFixture) addTag(t *testing.T, name string) string {
	t.Helper()
	tag := &domain.Tag{Name: name}
	if err := f.tags.Create(context.Background(), tag); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	return tag.ID
}

func (f *serviceFixture) addTeam(t *testing.T, name string, specialtyTagIDs ...string) string {
	t.Helper()
	team := &domain.Team{Name: name, IsActive: true}
	if err := f.teams.Create(context.Background(), team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	f.teams.specialties[team.ID] = specialtyTagIDs
	return team.ID
}

func TestCreateTicketStartsOpenAndUnrouted(t *testing.T) {
	f := newServiceFixture()

	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title: "printer on fire",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("expected OPEN, got %s", ticket.Status)
	}
	if ticket.TeamID != nil {
		t.Fatalf("expected unrouted ticket, got team %q", *ticket.TeamID)
	}
	if ticket.ExternalKey == "" {
		t.Fatal("expected external key")
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("expected default MEDIUM priority, got %s", ticket.Priority)
	}
}

func TestCreateTicketWithTagsRoutesImmediately(t *testing.T) {
	f := newServiceFixture()
	billing := f.addTag(t, "billing")
	teamID := f.addTeam(t, "payments", billing)

	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{
		Title:  "refund request",
		TagIDs: []string{billing},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := f.tickets.tickets[ticket.ID]
	if stored.TeamID == nil || *stored.TeamID != teamID {
		t.Fatalf("expected routing to %q, got %v", teamID, stored.TeamID)
	}
	audits := f.interactions.byType(domain.InteractionAssignment)
	if len(audits) != 1 {
		t.Fatalf("expected 1 assignment audit, got %d", len(audits))
	}
}

func TestCreateTicketRequiresTitle(t *testing.T) {
	f := newServiceFixture()
	if _, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAttachTagTriggersRoutingBestEffort(t *testing.T) {
	f := newServiceFixture()
	vpn := f.addTag(t, "vpn")
	teamID := f.addTeam(t, "network", vpn)

	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "vpn broken"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := f.service.AttachTag(context.Background(), "staff-1", ticket.ID, vpn); err != nil {
		t.Fatalf("attach: %v", err)
	}
	stored := f.tickets.tickets[ticket.ID]
	if stored.TeamID == nil || *stored.TeamID != teamID {
		t.Fatalf("expected routing to %q, got %v", teamID, stored.TeamID)
	}
}

func TestAttachTagSucceedsWhenRoutingFails(t *testing.T) {
	// Routing is enrichment: a failing routing pass must not fail the tag
	// change itself.
	f := newServiceFixture()
	vpn := f.addTag(t, "vpn")
	f.addTeam(t, "network", vpn)
	f.store.commitErr = errors.New("store down")

	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "vpn broken"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.service.AttachTag(context.Background(), "staff-1", ticket.ID, vpn); err != nil {
		t.Fatalf("attach should not fail on routing error, got %v", err)
	}
	if tags := f.tags.ticketTags[ticket.ID]; len(tags) != 1 {
		t.Fatalf("expected tag attached, got %v", tags)
	}
	if f.tickets.tickets[ticket.ID].TeamID != nil {
		t.Fatal("expected ticket to stay unrouted after failed commit")
	}
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	f := newServiceFixture()
	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "help"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.service.UpdateStatus(context.Background(), "staff-1", ticket.ID, domain.TicketStatusClosed, ""); err == nil {
		t.Fatal("expected OPEN -> CLOSED to be rejected")
	}

	updated, err := f.service.UpdateStatus(context.Background(), "staff-1", ticket.ID, domain.TicketStatusInProgress, "picking up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", updated.Status)
	}

	changes := f.interactions.byType(domain.InteractionStatusChange)
	if len(changes) != 1 {
		t.Fatalf("expected 1 status interaction, got %d", len(changes))
	}
	if changes[0].Payload["new_status"] != domain.TicketStatusInProgress {
		t.Fatalf("unexpected payload %v", changes[0].Payload)
	}
}

func TestUpdateStatusClosedSetsClosedAt(t *testing.T) {
	f := newServiceFixture()
	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "help"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.service.UpdateStatus(context.Background(), "staff-1", ticket.ID, domain.TicketStatusResolved, ""); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	closed, err := f.service.UpdateStatus(context.Background(), "staff-1", ticket.ID, domain.TicketStatusClosed, "done")
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.ClosedAt == nil {
		t.Fatal("expected closed_at to be set")
	}
}

func TestAssignTeamRecordsStaffAuthoredAudit(t *testing.T) {
	f := newServiceFixture()
	teamID := f.addTeam(t, "payments")
	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "help"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.service.AssignTeam(context.Background(), "staff-9", ticket.ID, teamID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.TeamID == nil || *updated.TeamID != teamID {
		t.Fatalf("expected team %q, got %v", teamID, updated.TeamID)
	}

	audits := f.interactions.byType(domain.InteractionAssignment)
	if len(audits) != 1 {
		t.Fatalf("expected 1 audit, got %d", len(audits))
	}
	if audits[0].AuthorType != domain.AuthorTypeStaff {
		t.Fatalf("expected STAFF author, got %s", audits[0].AuthorType)
	}

	// Assigning the same team again is a no-op without a second audit.
	if _, err := f.service.AssignTeam(context.Background(), "staff-9", ticket.ID, teamID); err != nil {
		t.Fatalf("re-assign: %v", err)
	}
	if audits := f.interactions.byType(domain.InteractionAssignment); len(audits) != 1 {
		t.Fatalf("expected still 1 audit, got %d", len(audits))
	}
}

func TestRouteTicketReportsNoCandidate(t *testing.T) {
	f := newServiceFixture()
	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "untagged"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	assignment, err := f.service.RouteTicket(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if assignment != nil {
		t.Fatalf("expected nil assignment for untagged ticket, got %+v", assignment)
	}
	if len(f.interactions.interactions) != 0 {
		t.Fatalf("expected no interactions, got %d", len(f.interactions.interactions))
	}
}

func TestAddNoteCreatesInteraction(t *testing.T) {
	f := newServiceFixture()
	ticket, err := f.service.CreateTicket(context.Background(), "user-1", TicketCreateInput{Title: "help"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	note, err := f.service.AddNote(context.Background(), domain.AuthorTypeUser, "user-1", ticket.ID, "any update?")
	if err != nil {
		t.Fatalf("note: %v", err)
	}
	if note.Type != domain.InteractionNote {
		t.Fatalf("expected NOTE, got %s", note.Type)
	}
	if note.Payload["body"] != "any update?" {
		t.Fatalf("unexpected payload %v", note.Payload)
	}
}
