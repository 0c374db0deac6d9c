package rotation

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/models"
	"github.com/partydeck/partydeck/internal/random"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
)

var (
	// ErrNoActiveActors is returned when every actor in the order is
	// inactive and rotation halts
	ErrNoActiveActors = errors.New("no active actors in rotation")

	// ErrRotationNotBuilt is returned when advancing before BuildOrder
	ErrRotationNotBuilt = errors.New("rotation order has not been built")
)

// Scheduler computes whose turn it is to act. Rotation runs over
// participants in individual mode and over teams in team mode; within a
// team the member performing the action is incidental, so it is re-picked
// at random from the team's active members each turn.
type Scheduler struct {
	sessionRepo sessionRepo.Repository
	roundRepo   roundRepo.Repository
	presence    PresenceSource
	random      *random.Generator
	logger      zerolog.Logger
}

// New creates a new rotation scheduler
func New(cfg *Config) (*Scheduler, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.SessionRepo == nil {
		return nil, errors.New("session repository cannot be nil")
	}

	if cfg.RoundRepo == nil {
		return nil, errors.New("round repository cannot be nil")
	}

	if cfg.Presence == nil {
		return nil, errors.New("presence source cannot be nil")
	}

	if cfg.Random == nil {
		return nil, errors.New("random generator cannot be nil")
	}

	return &Scheduler{
		sessionRepo: cfg.SessionRepo,
		roundRepo:   cfg.RoundRepo,
		presence:    cfg.Presence,
		random:      cfg.Random,
		logger:      cfg.Logger,
	}, nil
}

// roster is the liveness-filtered view of the room used for rotation
type roster struct {
	mode models.Mode

	// activeParticipants maps participant id to active
	activeParticipants map[string]bool

	// teamMembers maps team id to its active member ids
	teamMembers map[string][]string
}

// actorActive reports whether a rotation actor (participant or team) can act
func (r *roster) actorActive(actorID string) bool {
	if r.mode == models.ModeTeams {
		return len(r.teamMembers[actorID]) > 0
	}
	return r.activeParticipants[actorID]
}

func (s *Scheduler) loadRoster(ctx context.Context, code string) (*models.Session, *roster, error) {
	sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: code})
	if err != nil {
		return nil, nil, err
	}

	participants, err := s.sessionRepo.ListParticipants(ctx, &sessionRepo.ListParticipantsInput{Code: code})
	if err != nil {
		return nil, nil, err
	}

	statuses, err := s.presence.Snapshot(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	r := &roster{
		mode:               sess.Config.Mode,
		activeParticipants: make(map[string]bool),
		teamMembers:        make(map[string][]string),
	}

	for _, p := range participants {
		if p.Status != models.ParticipantStatusActive {
			continue
		}
		if statuses[p.ID] == models.PresenceOffline || statuses[p.ID] == "" {
			continue
		}

		r.activeParticipants[p.ID] = true
		if p.TeamID != "" {
			r.teamMembers[p.TeamID] = append(r.teamMembers[p.TeamID], p.ID)
		}
	}

	return sess, r, nil
}

// BuildOrder fixes the turn order for the session: a one-time shuffle of
// the currently-active actors, with the cursor at the start
func (s *Scheduler) BuildOrder(ctx context.Context, input *BuildOrderInput) (*BuildOrderOutput, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	sess, r, err := s.loadRoster(ctx, input.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	var actorIDs []string
	if sess.Config.Mode == models.ModeTeams {
		teams, err := s.sessionRepo.ListTeams(ctx, &sessionRepo.ListTeamsInput{Code: input.Code})
		if err != nil {
			return nil, fmt.Errorf("failed to list teams: %w", err)
		}
		for _, team := range teams {
			if len(r.teamMembers[team.ID]) > 0 {
				actorIDs = append(actorIDs, team.ID)
			}
		}
	} else {
		for id := range r.activeParticipants {
			actorIDs = append(actorIDs, id)
		}
	}

	if len(actorIDs) == 0 {
		return nil, ErrNoActiveActors
	}

	rotation := models.RotationState{
		Order:  s.random.Shuffle(actorIDs),
		Cursor: 0,
	}
	rotation.CurrentActorID = rotation.Order[0]
	if sess.Config.Mode == models.ModeTeams {
		rotation.CurrentActingMemberID = s.random.Pick(r.teamMembers[rotation.CurrentActorID])
	}

	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		if !errors.Is(err, roundRepo.ErrRoundNotFound) {
			return nil, fmt.Errorf("failed to load round: %w", err)
		}
		state = &models.RoundState{}
	}

	if state.Number == 0 {
		state.Number = 1
	}
	state.Rotation = rotation

	if err := s.roundRepo.SaveRound(ctx, &roundRepo.SaveRoundInput{Code: input.Code, Round: state}); err != nil {
		return nil, fmt.Errorf("failed to save rotation: %w", err)
	}

	s.logger.Debug().
		Str("code", input.Code).
		Strs("order", rotation.Order).
		Str("current", rotation.CurrentActorID).
		Msg("rotation order built")

	return &BuildOrderOutput{Rotation: rotation}, nil
}

// Advance moves the cursor to the next active actor. Skips are bounded by
// the order length so a fully-inactive room halts with ErrNoActiveActors
// instead of looping forever.
func (s *Scheduler) Advance(ctx context.Context, input *AdvanceInput) (*AdvanceOutput, error) {
	if input == nil || input.Code == "" {
		return nil, errors.New("input and code cannot be empty")
	}

	sess, r, err := s.loadRoster(ctx, input.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %w", err)
	}

	order := state.Rotation.Order
	if len(order) == 0 {
		return nil, ErrRotationNotBuilt
	}

	for step := 1; step <= len(order); step++ {
		idx := (state.Rotation.Cursor + step) % len(order)
		candidate := order[idx]

		if !r.actorActive(candidate) {
			s.logger.Debug().
				Str("code", input.Code).
				Str("actor_id", candidate).
				Msg("skipping inactive actor")
			continue
		}

		state.Rotation.Cursor = idx
		state.Rotation.CurrentActorID = candidate
		state.Rotation.CurrentActingMemberID = ""
		if sess.Config.Mode == models.ModeTeams {
			state.Rotation.CurrentActingMemberID = s.random.Pick(r.teamMembers[candidate])
		}
		state.Number++

		if err := s.roundRepo.SaveRound(ctx, &roundRepo.SaveRoundInput{Code: input.Code, Round: state}); err != nil {
			return nil, fmt.Errorf("failed to save rotation advance: %w", err)
		}

		out := &AdvanceOutput{
			ActorID:        candidate,
			ActingMemberID: state.Rotation.CurrentActingMemberID,
		}
		if sess.Config.Mode == models.ModeTeams {
			out.TeamID = candidate
		}

		s.logger.Debug().
			Str("code", input.Code).
			Str("actor_id", candidate).
			Str("acting_member", out.ActingMemberID).
			Msg("rotation advanced")

		return out, nil
	}

	return nil, ErrNoActiveActors
}

// HandleInactive advances immediately when the actor due to act has gone
// inactive, so the session never waits on an actor who will not act. When
// only the acting member of an otherwise-active team dropped, a new member
// is picked instead of skipping the team's turn.
func (s *Scheduler) HandleInactive(ctx context.Context, input *HandleInactiveInput) (*HandleInactiveOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, r, err := s.loadRoster(ctx, input.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, fmt.Errorf("failed to load round: %w", err)
	}

	rotation := state.Rotation
	if rotation.CurrentActorID != input.ActorID && rotation.CurrentActingMemberID != input.ActorID {
		return &HandleInactiveOutput{Advanced: false}, nil
	}

	if sess.Config.Mode == models.ModeTeams &&
		rotation.CurrentActingMemberID == input.ActorID &&
		r.actorActive(rotation.CurrentActorID) {
		state.Rotation.CurrentActingMemberID = s.random.Pick(r.teamMembers[rotation.CurrentActorID])

		if err := s.roundRepo.SaveRound(ctx, &roundRepo.SaveRoundInput{Code: input.Code, Round: state}); err != nil {
			return nil, fmt.Errorf("failed to save acting member replacement: %w", err)
		}

		return &HandleInactiveOutput{
			Advanced: true,
			Next: &AdvanceOutput{
				ActorID:        rotation.CurrentActorID,
				TeamID:         rotation.CurrentActorID,
				ActingMemberID: state.Rotation.CurrentActingMemberID,
			},
		}, nil
	}

	next, err := s.Advance(ctx, &AdvanceInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	return &HandleInactiveOutput{Advanced: true, Next: next}, nil
}
