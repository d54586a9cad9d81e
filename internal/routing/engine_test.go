package routing

import (
	"context"
	"errors"
	"testing"

	"github.com/deskcore/helpdesk-service/internal/events"
)

type committedAssignment struct {
	TicketID string
	OldTeam  *string
	NewTeam  string
	ActorID  string
}

// fakeStore is an in-memory routing.Store with per-method error injection.
type fakeStore struct {
	ticketTags  map[string][]string
	specialties map[string][]string // teamID -> tagIDs
	loads       map[string]int
	ticketTeam  map[string]*string

	tagsErr   error
	teamsErr  error
	countsErr error
	teamErr   error
	commitErr error

	commits []committedAssignment
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ticketTags:  map[string][]string{},
		specialties: map[string][]string{},
		loads:       map[string]int{},
		ticketTeam:  map[string]*string{},
	}
}

func (s *fakeStore) TicketTagIDs(_ context.Context, ticketID string) ([]string, error) {
	if s.tagsErr != nil {
		return nil, s.tagsErr
	}
	return s.ticketTags[ticketID], nil
}

func (s *fakeStore) TeamsBySpecialtyTags(_ context.Context, tagIDs []string) ([]string, error) {
	if s.teamsErr != nil {
		return nil, s.teamsErr
	}
	wanted := map[string]bool{}
	for _, id := range tagIDs {
		wanted[id] = true
	}
	var result []string
	for teamID, specialtyTags := range s.specialties {
		for _, tagID := range specialtyTags {
			if wanted[tagID] {
				result = append(result, teamID)
				break
			}
		}
	}
	return result, nil
}

func (s *fakeStore) OpenTicketCounts(_ context.Context, teamIDs []string) (map[string]int, error) {
	if s.countsErr != nil {
		return nil, s.countsErr
	}
	counts := map[string]int{}
	for _, id := range teamIDs {
		counts[id] = s.loads[id]
	}
	return counts, nil
}

func (s *fakeStore) TicketTeam(_ context.Context, ticketID string) (*string, error) {
	if s.teamErr != nil {
		return nil, s.teamErr
	}
	return s.ticketTeam[ticketID], nil
}

func (s *fakeStore) CommitAssignment(_ context.Context, ticketID string, oldTeam *string, newTeam, actorID string) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, committedAssignment{
		TicketID: ticketID,
		OldTeam:  oldTeam,
		NewTeam:  newTeam,
		ActorID:  actorID,
	})
	team := newTeam
	s.ticketTeam[ticketID] = &team
	s.loads[newTeam]++
	return nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func newTestEngine(store *fakeStore) (*Engine, *recordingDispatcher) {
	dispatcher := &recordingDispatcher{}
	engine := NewEngine(Dependencies{
		Store:         store,
		Dispatcher:    dispatcher,
		SystemActorID: "svc-router",
	})
	return engine, dispatcher
}

func strPtr(s string) *string { return &s }

func TestFindBestTeamNoTagsIsNoMatch(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = nil
	engine, _ := newTestEngine(store)

	best, err := engine.FindBestTeam(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best != nil {
		t.Fatalf("expected no match, got %q", *best)
	}

	assignment, err := engine.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment != nil {
		t.Fatalf("expected no-op, got assignment to %q", assignment.NewTeam)
	}
	if len(store.commits) != 0 {
		t.Fatalf("expected no commits, got %d", len(store.commits))
	}
}

func TestFindBestTeamNoSpecialtyOverlapIsNoMatch(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"network"}
	store.specialties["team-a"] = []string{"billing"}
	engine, _ := newTestEngine(store)

	best, err := engine.FindBestTeam(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best != nil {
		t.Fatalf("expected no match, got %q", *best)
	}
}

func TestFindBestTeamLowestLoadWins(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing", "vpn"}
	store.specialties["team-a"] = []string{"billing"}
	store.specialties["team-b"] = []string{"vpn"}
	store.specialties["team-c"] = []string{"hardware"} // no overlap, excluded
	store.loads["team-a"] = 3
	store.loads["team-b"] = 1
	store.loads["team-c"] = 1
	engine, _ := newTestEngine(store)

	best, err := engine.FindBestTeam(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best == nil || *best != "team-b" {
		t.Fatalf("expected team-b, got %v", best)
	}
}

func TestFindBestTeamSingleOverlappingTagQualifies(t *testing.T) {
	// Union match: one shared tag is enough, full coverage is not required.
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing", "vpn", "hardware"}
	store.specialties["team-a"] = []string{"vpn"}
	engine, _ := newTestEngine(store)

	best, err := engine.FindBestTeam(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best == nil || *best != "team-a" {
		t.Fatalf("expected team-a, got %v", best)
	}
}

func TestFindBestTeamTieBreaksOnLowestTeamID(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing"}
	store.specialties["team-z"] = []string{"billing"}
	store.specialties["team-a"] = []string{"billing"}
	store.specialties["team-m"] = []string{"billing"}
	engine, _ := newTestEngine(store)

	// All at load zero; the lowest id must win regardless of map order.
	for i := 0; i < 20; i++ {
		best, err := engine.FindBestTeam(context.Background(), "t1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if best == nil || *best != "team-a" {
			t.Fatalf("expected team-a, got %v", best)
		}
	}
}

func TestFindBestTeamZeroLoadBeatsAnyLoad(t *testing.T) {
	// Closed tickets never count: a team with many closed tickets still has
	// load zero and wins over a team with one open ticket.
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing"}
	store.specialties["team-busy"] = []string{"billing"}
	store.specialties["team-idle"] = []string{"billing"}
	store.loads["team-busy"] = 1
	store.loads["team-idle"] = 0
	engine, _ := newTestEngine(store)

	best, err := engine.FindBestTeam(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if best == nil || *best != "team-idle" {
		t.Fatalf("expected team-idle, got %v", best)
	}
}

func TestFindBestTeamReadErrorsPropagate(t *testing.T) {
	boom := errors.New("store unavailable")

	cases := []struct {
		name  string
		setup func(*fakeStore)
	}{
		{"tags read fails", func(s *fakeStore) { s.tagsErr = boom }},
		{"teams read fails", func(s *fakeStore) { s.teamsErr = boom }},
		{"counts read fails", func(s *fakeStore) { s.countsErr = boom }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			store.ticketTags["t1"] = []string{"billing"}
			store.specialties["team-a"] = []string{"billing"}
			tc.setup(store)
			engine, _ := newTestEngine(store)

			if _, err := engine.FindBestTeam(context.Background(), "t1"); !errors.Is(err, boom) {
				t.Fatalf("expected propagated error, got %v", err)
			}
		})
	}
}

func TestAutoAssignScenarioBillingTicket(t *testing.T) {
	// Team A specializes in billing+sales with 2 open tickets; Team B in
	// billing with 0. The billing ticket goes to B, audited old=nil new=B.
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing"}
	store.specialties["team-a"] = []string{"billing", "sales"}
	store.specialties["team-b"] = []string{"billing"}
	store.loads["team-a"] = 2
	engine, dispatcher := newTestEngine(store)

	assignment, err := engine.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment == nil || assignment.NewTeam != "team-b" {
		t.Fatalf("expected assignment to team-b, got %+v", assignment)
	}
	if assignment.OldTeam != nil {
		t.Fatalf("expected nil old team, got %q", *assignment.OldTeam)
	}

	if len(store.commits) != 1 {
		t.Fatalf("expected 1 commit, got %d", len(store.commits))
	}
	commit := store.commits[0]
	if commit.OldTeam != nil || commit.NewTeam != "team-b" || commit.ActorID != "svc-router" {
		t.Fatalf("unexpected commit %+v", commit)
	}
	if got := store.ticketTeam["t1"]; got == nil || *got != "team-b" {
		t.Fatalf("ticket team not updated, got %v", got)
	}

	if len(dispatcher.published) != 1 {
		t.Fatalf("expected 1 event, got %d", len(dispatcher.published))
	}
	if dispatcher.published[0].Type != events.EventTicketAssigned {
		t.Fatalf("unexpected event type %q", dispatcher.published[0].Type)
	}
}

func TestAutoAssignIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing"}
	store.specialties["team-a"] = []string{"billing"}
	engine, _ := newTestEngine(store)

	first, err := engine.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == nil {
		t.Fatal("expected first pass to assign")
	}

	second, err := engine.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second != nil {
		t.Fatalf("expected second pass to be a no-op, got %+v", second)
	}
	if len(store.commits) != 1 {
		t.Fatalf("expected exactly 1 audit write, got %d", len(store.commits))
	}
}

func TestAutoAssignSkipsSelfReassignment(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing"}
	store.specialties["team-a"] = []string{"billing"}
	store.ticketTeam["t1"] = strPtr("team-a")
	engine, dispatcher := newTestEngine(store)

	assignment, err := engine.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment != nil {
		t.Fatalf("expected no-op, got %+v", assignment)
	}
	if len(store.commits) != 0 {
		t.Fatalf("expected no commits, got %d", len(store.commits))
	}
	if len(dispatcher.published) != 0 {
		t.Fatalf("expected no events, got %d", len(dispatcher.published))
	}
}

func TestAutoAssignReroutesToLessLoadedTeam(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing"}
	store.specialties["team-a"] = []string{"billing"}
	store.specialties["team-b"] = []string{"billing"}
	store.ticketTeam["t1"] = strPtr("team-b")
	store.loads["team-b"] = 5
	engine, _ := newTestEngine(store)

	assignment, err := engine.AutoAssign(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment == nil || assignment.NewTeam != "team-a" {
		t.Fatalf("expected reroute to team-a, got %+v", assignment)
	}
	if assignment.OldTeam == nil || *assignment.OldTeam != "team-b" {
		t.Fatalf("expected old team team-b, got %v", assignment.OldTeam)
	}
}

func TestAutoAssignCommitFailureLeavesNoAssignment(t *testing.T) {
	store := newFakeStore()
	store.ticketTags["t1"] = []string{"billing"}
	store.specialties["team-a"] = []string{"billing"}
	store.commitErr = ErrTicketMoved
	engine, dispatcher := newTestEngine(store)

	_, err := engine.AutoAssign(context.Background(), "t1")
	if !errors.Is(err, ErrTicketMoved) {
		t.Fatalf("expected ErrTicketMoved, got %v", err)
	}
	if len(dispatcher.published) != 0 {
		t.Fatalf("expected no events after failed commit, got %d", len(dispatcher.published))
	}
}
