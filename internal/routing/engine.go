// Package routing decides which team a ticket belongs to. Candidate teams
// are those whose declared specialties intersect the ticket's tags; among
// candidates the one with the fewest OPEN/IN_PROGRESS tickets wins.
package routing

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/deskcore/helpdesk-service/internal/domain"
	"github.com/deskcore/helpdesk-service/internal/events"
)

// ErrTicketMoved reports that the ticket's team changed between the
// routing read and the commit, so the decision was discarded unwritten.
var ErrTicketMoved = errors.New("ticket team changed concurrently")

// Store is the read/write surface the engine needs. Reads are independently
// consistent; the commit is transactional on the implementation side.
type Store interface {
	// TicketTagIDs returns the ids of all tags currently attached to the
	// ticket. An untagged ticket yields an empty slice, not an error.
	TicketTagIDs(ctx context.Context, ticketID string) ([]string, error)
	// TeamsBySpecialtyTags returns the distinct active teams declaring at
	// least one of the given tags as a specialty.
	TeamsBySpecialtyTags(ctx context.Context, tagIDs []string) ([]string, error)
	// OpenTicketCounts returns the live OPEN/IN_PROGRESS ticket count per
	// team, including zero entries for teams with no open tickets.
	OpenTicketCounts(ctx context.Context, teamIDs []string) (map[string]int, error)
	// TicketTeam returns the ticket's current team id, nil when unrouted.
	TicketTeam(ctx context.Context, ticketID string) (*string, error)
	// CommitAssignment atomically moves the ticket from oldTeam to newTeam
	// and appends one ASSIGNMENT interaction authored by actorID. The
	// update is conditional on the ticket still referencing oldTeam;
	// ErrTicketMoved means a concurrent change won and nothing was
	// written.
	CommitAssignment(ctx context.Context, ticketID string, oldTeam *string, newTeam, actorID string) error
}

// TicketLocker serializes routing per ticket id.
type TicketLocker interface {
	// Lock acquires the routing lock for a ticket and returns its release
	// function.
	Lock(ctx context.Context, ticketID string) (func(), error)
}

// Assignment describes a committed team change.
type Assignment struct {
	TicketID string
	OldTeam  *string
	NewTeam  string
}

// Engine performs ticket-to-team auto-routing.
type Engine struct {
	store      Store
	locker     TicketLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	actorID    string
}

// Dependencies bundles engine collaborators. SystemActorID identifies the
// service account recorded as the author of machine-generated assignments.
type Dependencies struct {
	Store         Store
	Locker        TicketLocker
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	SystemActorID string
}

// NewEngine creates the engine.
func NewEngine(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Engine{
		store:      deps.Store,
		locker:     locker,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		actorID:    deps.SystemActorID,
	}
}

// FindBestTeam returns the id of the least-loaded team whose specialties
// intersect the ticket's tags, or nil when no team matches. Ties on load
// break toward the lowest team id; the ordering is deterministic by
// construction, not inherited from iteration order.
func (e *Engine) FindBestTeam(ctx context.Context, ticketID string) (*string, error) {
	tagIDs, err := e.store.TicketTagIDs(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if len(tagIDs) == 0 {
		return nil, nil
	}

	teamIDs, err := e.store.TeamsBySpecialtyTags(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	if len(teamIDs) == 0 {
		return nil, nil
	}

	loads, err := e.store.OpenTicketCounts(ctx, teamIDs)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.TeamLoad, 0, len(teamIDs))
	for _, id := range teamIDs {
		ranked = append(ranked, domain.TeamLoad{TeamID: id, Load: loads[id]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Load != ranked[j].Load {
			return ranked[i].Load < ranked[j].Load
		}
		return ranked[i].TeamID < ranked[j].TeamID
	})

	best := ranked[0].TeamID
	return &best, nil
}

// AutoAssign routes the ticket and, only when the decision differs from the
// ticket's current team, commits the new team reference together with one
// ASSIGNMENT interaction. A nil Assignment with nil error means no
// candidate matched or the ticket is already on its best team; re-running
// on an unchanged ticket is a no-op and writes nothing.
func (e *Engine) AutoAssign(ctx context.Context, ticketID string) (*Assignment, error) {
	release, err := e.locker.Lock(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	defer release()

	current, err := e.store.TicketTeam(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	best, err := e.FindBestTeam(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if best == nil {
		e.logger.Debug("no candidate team", zap.String("ticket_id", ticketID))
		return nil, nil
	}
	if current != nil && *current == *best {
		return nil, nil
	}

	if err := e.store.CommitAssignment(ctx, ticketID, current, *best, e.actorID); err != nil {
		return nil, err
	}

	assignment := &Assignment{TicketID: ticketID, OldTeam: current, NewTeam: *best}
	e.publishAssigned(ctx, assignment)
	e.logger.Info("ticket auto-assigned",
		zap.String("ticket_id", ticketID),
		zap.Stringp("old_team_id", current),
		zap.String("new_team_id", *best))
	return assignment, nil
}

func (e *Engine) publishAssigned(ctx context.Context, assignment *Assignment) {
	if e.dispatcher == nil {
		return
	}
	_ = e.dispatcher.Publish(ctx, events.NewEvent(
		events.EventTicketAssigned,
		assignment.TicketID,
		events.SystemActor(e.actorID),
		events.TicketAssignedPayload{
			OldTeamID: assignment.OldTeam,
			NewTeamID: &assignment.NewTeam,
		},
	))
}
