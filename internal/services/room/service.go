package room

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/clocksync"
	"github.com/partydeck/partydeck/internal/common/uuid"
	"github.com/partydeck/partydeck/internal/models"
	"github.com/partydeck/partydeck/internal/random"
	presenceRepo "github.com/partydeck/partydeck/internal/repositories/presence"
	roundRepo "github.com/partydeck/partydeck/internal/repositories/round"
	sessionRepo "github.com/partydeck/partydeck/internal/repositories/session"
	"github.com/partydeck/partydeck/internal/services/buzz"
	"github.com/partydeck/partydeck/internal/services/rotation"
	"github.com/partydeck/partydeck/internal/services/timer"
)

// Define errors
var (
	ErrSessionClosed       = errors.New("session is closed")
	ErrNotAuthority        = errors.New("caller is not the authority for this command")
	ErrInvalidPhase        = errors.New("command not valid in current phase")
	ErrTooFewParticipants  = errors.New("not enough participants for the requested team count")
	ErrTeamNotFound        = errors.New("team not found")
	ErrNotTeamMember       = errors.New("caller is not a member of this team")
	ErrInvalidTeamCount    = errors.New("team count must be at least two")
	ErrJoinCodeExhausted   = errors.New("could not generate a unique join code")
	ErrWindowNotResolved   = buzz.ErrWindowNotResolved
)

const (
	joinCodeLength   = 5
	joinCodeAttempts = 5
)

// Default team colors, assigned by team index
var teamColors = []string{"red", "blue", "green", "yellow", "purple", "orange", "teal", "pink"}

// service implements the Service interface
type service struct {
	sessionRepo  sessionRepo.Repository
	roundRepo    roundRepo.Repository
	presenceRepo presenceRepo.Repository
	timer        *timer.Controller
	arbiter      *buzz.Arbiter
	rotation     *rotation.Scheduler
	adjuster     clocksync.Adjuster
	uuids        uuid.UUID
	random       *random.Generator
	clock        clockwork.Clock
	logger       zerolog.Logger
	events       func(models.Event)
	onHostLoss   func(code, hostID string)
}

// New creates a new room service
func New(cfg *Config) (*service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.SessionRepo == nil || cfg.RoundRepo == nil || cfg.PresenceRepo == nil {
		return nil, errors.New("repositories cannot be nil")
	}

	if cfg.Timer == nil || cfg.Arbiter == nil || cfg.Rotation == nil {
		return nil, errors.New("timer, arbiter and rotation cannot be nil")
	}

	if cfg.Adjuster == nil {
		return nil, errors.New("adjuster cannot be nil")
	}

	if cfg.UUIDGenerator == nil {
		return nil, errors.New("uuid generator cannot be nil")
	}

	if cfg.Random == nil {
		return nil, errors.New("random generator cannot be nil")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &service{
		sessionRepo:  cfg.SessionRepo,
		roundRepo:    cfg.RoundRepo,
		presenceRepo: cfg.PresenceRepo,
		timer:        cfg.Timer,
		arbiter:      cfg.Arbiter,
		rotation:     cfg.Rotation,
		adjuster:     cfg.Adjuster,
		uuids:        cfg.UUIDGenerator,
		random:       cfg.Random,
		clock:        clock,
		logger:       cfg.Logger,
		events:       cfg.Events,
		onHostLoss:   cfg.OnHostLoss,
	}, nil
}

func (s *service) emit(event models.Event) {
	if s.events != nil {
		s.events(event)
	}
}

// applyConfigDefaults fills unset session configuration fields
func applyConfigDefaults(cfg models.SessionConfig) models.SessionConfig {
	if cfg.Mode == "" {
		cfg.Mode = models.ModeIndividual
	}
	if cfg.RotationMode == "" {
		cfg.RotationMode = models.RotationSingle
	}
	if cfg.RoundSeconds <= 0 {
		cfg.RoundSeconds = 60
	}
	if cfg.RaceWindowMs <= 0 {
		cfg.RaceWindowMs = 150
	}
	if cfg.LockoutMs <= 0 {
		cfg.LockoutMs = 5000
	}
	if cfg.HeartbeatSeconds <= 0 {
		cfg.HeartbeatSeconds = 3
	}
	if cfg.LivenessSeconds <= 0 {
		cfg.LivenessSeconds = 3 * cfg.HeartbeatSeconds
	}
	if cfg.MinTeamSize <= 0 {
		cfg.MinTeamSize = 2
	}
	return cfg
}

// roleOf derives the caller's actual role from stored state
func (s *service) roleOf(sess *models.Session, rotationState *models.RotationState, actorID string) models.Role {
	if actorID == sess.HostID {
		return models.RoleHost
	}

	if sess.Config.RotationMode == models.RotationRotating && rotationState != nil {
		if rotationState.CurrentActorID == actorID || rotationState.CurrentActingMemberID == actorID {
			return models.RoleFacilitator
		}
	}

	return models.RolePlayer
}

// requireAuthority validates the caller's claimed role against stored state
// and rejects the command unless the caller holds the authority role. The
// claimed role must match the derived one: claiming host without being the
// host is rejected, closing a cheating vector the client-side role checks
// left open.
func (s *service) requireAuthority(ctx context.Context, code, actorID string, claimed models.Role) (*models.Session, error) {
	sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: code})
	if err != nil {
		return nil, err
	}

	if sess.Closed || sess.Phase == models.PhaseEnded {
		return nil, ErrSessionClosed
	}

	var rotationState *models.RotationState
	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: code})
	if err == nil {
		rotationState = &state.Rotation
	} else if !errors.Is(err, roundRepo.ErrRoundNotFound) {
		return nil, err
	}

	derived := s.roleOf(sess, rotationState, actorID)
	if claimed != derived {
		return nil, ErrNotAuthority
	}

	if derived != models.RoleHost && derived != models.RoleFacilitator {
		return nil, ErrNotAuthority
	}

	return sess, nil
}

// CreateSession creates a room and its host participant
func (s *service) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input == nil || input.HostName == "" {
		return nil, errors.New("input and host name cannot be empty")
	}

	hostID := input.HostID
	if hostID == "" {
		hostID = s.uuids.NewUUID()
	}

	var code string
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		candidate := s.random.JoinCode(joinCodeLength)
		_, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: candidate})
		if errors.Is(err, sessionRepo.ErrSessionNotFound) {
			code = candidate
			break
		}
		if err != nil {
			return nil, err
		}
	}
	if code == "" {
		return nil, ErrJoinCodeExhausted
	}

	now := s.adjuster.AdjustedNow()
	sess := &models.Session{
		Code:      code,
		HostID:    hostID,
		Phase:     models.PhaseLobby,
		Config:    applyConfigDefaults(input.Config),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sessionRepo.SaveRoom(ctx, &sessionRepo.SaveRoomInput{Room: sess}); err != nil {
		return nil, err
	}

	host := &models.Participant{
		ID:          hostID,
		DisplayName: input.HostName,
		Status:      models.ParticipantStatusActive,
		JoinedAt:    now,
	}

	if err := s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: code, Participant: host}); err != nil {
		return nil, err
	}

	s.logger.Info().Str("code", code).Str("host_id", hostID).Msg("session created")

	return &CreateSessionOutput{Code: code, HostID: hostID}, nil
}

// JoinSession adds a participant to a room by join code
func (s *service) JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error) {
	if input == nil || input.Code == "" || input.DisplayName == "" {
		return nil, errors.New("input, code and display name cannot be empty")
	}

	sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	if sess.Closed || sess.Phase == models.PhaseEnded {
		return nil, ErrSessionClosed
	}

	// Rejoin: a known id re-activates the stored participant
	if input.ActorID != "" {
		existing, err := s.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
			Code:          input.Code,
			ParticipantID: input.ActorID,
		})
		if err == nil {
			existing.Status = models.ParticipantStatusActive
			existing.DisplayName = input.DisplayName
			if err := s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: input.Code, Participant: existing}); err != nil {
				return nil, err
			}
			return &JoinSessionOutput{Participant: existing}, nil
		}
		if !errors.Is(err, sessionRepo.ErrParticipantNotFound) {
			return nil, err
		}
	}

	actorID := input.ActorID
	if actorID == "" {
		actorID = s.uuids.NewUUID()
	}

	participant := &models.Participant{
		ID:          actorID,
		DisplayName: input.DisplayName,
		Status:      models.ParticipantStatusActive,
		JoinedAt:    s.adjuster.AdjustedNow(),
	}

	if err := s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: input.Code, Participant: participant}); err != nil {
		return nil, err
	}

	s.logger.Info().Str("code", input.Code).Str("actor_id", actorID).Msg("participant joined")

	return &JoinSessionOutput{Participant: participant}, nil
}

// LeaveSession marks a participant as having left. Removal is always an
// explicit write, never a liveness inference.
func (s *service) LeaveSession(ctx context.Context, input *LeaveSessionInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: input.Code})
	if err != nil {
		return err
	}

	participant, err := s.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
		Code:          input.Code,
		ParticipantID: input.ActorID,
	})
	if err != nil {
		return err
	}

	participant.Status = models.ParticipantStatusLeft
	if err := s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: input.Code, Participant: participant}); err != nil {
		return err
	}

	if input.ActorID == sess.HostID && s.onHostLoss != nil {
		s.onHostLoss(input.Code, sess.HostID)
	}

	s.logger.Info().Str("code", input.Code).Str("actor_id", input.ActorID).Msg("participant left")

	return nil
}

// CloseSession ends the session and deletes the room subtree. All derived
// state is scoped to the room and discarded with it.
func (s *service) CloseSession(ctx context.Context, input *CloseSessionInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return err
	}

	if input.ActorID != sess.HostID {
		return ErrNotAuthority
	}

	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err == nil && state.BuzzWindowID != "" {
		_ = s.arbiter.CloseWindow(ctx, &buzz.CloseWindowInput{Code: input.Code, WindowID: state.BuzzWindowID})
	}

	if err := s.roundRepo.DeleteRound(ctx, &roundRepo.DeleteRoundInput{Code: input.Code}); err != nil {
		return err
	}

	if err := s.presenceRepo.ClearRoom(ctx, &presenceRepo.ClearRoomInput{Code: input.Code}); err != nil {
		return err
	}

	if err := s.sessionRepo.DeleteRoom(ctx, &sessionRepo.DeleteRoomInput{Code: input.Code}); err != nil {
		return err
	}

	s.emit(models.Event{
		Type: models.EventSessionClosed,
		Code: input.Code,
		At:   s.adjuster.AdjustedNow(),
	})

	s.logger.Info().Str("code", input.Code).Msg("session closed")

	return nil
}

// SetTeamCount creates the requested number of teams and assigns the
// active participants round-robin over a fresh shuffle
func (s *service) SetTeamCount(ctx context.Context, input *SetTeamCountInput) (*SetTeamCountOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return nil, err
	}

	if input.ActorID != sess.HostID {
		return nil, ErrNotAuthority
	}

	if sess.Phase != models.PhaseLobby {
		return nil, ErrInvalidPhase
	}

	if input.Count < 2 {
		return nil, ErrInvalidTeamCount
	}

	participants, err := s.sessionRepo.ListParticipants(ctx, &sessionRepo.ListParticipantsInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	assignable := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.Status == models.ParticipantStatusActive {
			assignable = append(assignable, p.ID)
		}
	}

	if len(assignable) < input.Count*sess.Config.MinTeamSize {
		return nil, ErrTooFewParticipants
	}

	if err := s.sessionRepo.DeleteTeams(ctx, &sessionRepo.DeleteTeamsInput{Code: input.Code}); err != nil {
		return nil, err
	}

	teams := make([]*models.Team, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		team := &models.Team{
			ID:    s.uuids.NewUUID(),
			Name:  fmt.Sprintf("Team %d", i+1),
			Color: teamColors[i%len(teamColors)],
		}
		if err := s.sessionRepo.SaveTeam(ctx, &sessionRepo.SaveTeamInput{Code: input.Code, Team: team}); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}

	// Stable order before the shuffle so assignment depends only on the seed
	sort.Strings(assignable)
	shuffled := s.random.Shuffle(assignable)

	byID := make(map[string]*models.Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	for i, participantID := range shuffled {
		p := byID[participantID]
		p.TeamID = teams[i%len(teams)].ID
		if err := s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: input.Code, Participant: p}); err != nil {
			return nil, err
		}
	}

	s.logger.Info().Str("code", input.Code).Int("count", input.Count).Msg("teams created")

	return &SetTeamCountOutput{Teams: teams}, nil
}

// AssignActorToTeam moves a participant to a team
func (s *service) AssignActorToTeam(ctx context.Context, input *AssignActorToTeamInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" || input.TargetID == "" || input.TeamID == "" {
		return errors.New("input, code, actor ID, target ID and team ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return err
	}

	if input.ActorID != sess.HostID {
		return ErrNotAuthority
	}

	teams, err := s.sessionRepo.ListTeams(ctx, &sessionRepo.ListTeamsInput{Code: input.Code})
	if err != nil {
		return err
	}

	found := false
	for _, team := range teams {
		if team.ID == input.TeamID {
			found = true
			break
		}
	}
	if !found {
		return ErrTeamNotFound
	}

	participant, err := s.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
		Code:          input.Code,
		ParticipantID: input.TargetID,
	})
	if err != nil {
		return err
	}

	participant.TeamID = input.TeamID

	return s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: input.Code, Participant: participant})
}

// RenameTeam renames a team, allowed only for its own members
func (s *service) RenameTeam(ctx context.Context, input *RenameTeamInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" || input.TeamID == "" || input.Name == "" {
		return errors.New("input, code, actor ID, team ID and name cannot be empty")
	}

	participant, err := s.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
		Code:          input.Code,
		ParticipantID: input.ActorID,
	})
	if err != nil {
		return err
	}

	if participant.TeamID != input.TeamID {
		return ErrNotTeamMember
	}

	teams, err := s.sessionRepo.ListTeams(ctx, &sessionRepo.ListTeamsInput{Code: input.Code})
	if err != nil {
		return err
	}

	for _, team := range teams {
		if team.ID == input.TeamID {
			team.Name = input.Name
			return s.sessionRepo.SaveTeam(ctx, &sessionRepo.SaveTeamInput{Code: input.Code, Team: team})
		}
	}

	return ErrTeamNotFound
}

// SetLocation records which screen a participant is on. The host leaving
// the game screen is how the presentation layer detects an abandoned room.
func (s *service) SetLocation(ctx context.Context, input *SetLocationInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return errors.New("input, code and actor ID cannot be empty")
	}

	participant, err := s.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
		Code:          input.Code,
		ParticipantID: input.ActorID,
	})
	if err != nil {
		return err
	}

	participant.Location = input.Location

	return s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: input.Code, Participant: participant})
}

// facilitatorFor determines who is excluded from buzzing for the new round
func facilitatorFor(sess *models.Session, rot models.RotationState, participants []*models.Participant) (string, string) {
	if sess.Config.RotationMode == models.RotationRotating {
		if sess.Config.Mode == models.ModeTeams {
			return rot.CurrentActingMemberID, rot.CurrentActorID
		}
		return rot.CurrentActorID, ""
	}

	// Single-facilitator mode: the host facilitates every round
	for _, p := range participants {
		if p.ID == sess.HostID {
			return sess.HostID, p.TeamID
		}
	}
	return sess.HostID, ""
}

// StartRound moves the session into play: fixes the turn order, starts the
// countdown and opens the first buzz window
func (s *service) StartRound(ctx context.Context, input *StartRoundInput) (*StartRoundOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return nil, err
	}

	if sess.Phase != models.PhaseLobby {
		return nil, ErrInvalidPhase
	}

	// Only the host can take the room out of the lobby
	if input.ActorID != sess.HostID {
		return nil, ErrNotAuthority
	}

	built, err := s.rotation.BuildOrder(ctx, &rotation.BuildOrderInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	sess.Phase = models.PhasePlaying
	sess.UpdatedAt = s.adjuster.AdjustedNow()
	if err := s.sessionRepo.SaveRoom(ctx, &sessionRepo.SaveRoomInput{Room: sess}); err != nil {
		return nil, err
	}

	durationMs := input.DurationMs
	if durationMs <= 0 {
		durationMs = int64(sess.Config.RoundSeconds) * 1000
	}

	if err := s.timer.Start(ctx, &timer.StartInput{Code: input.Code, DurationMs: durationMs}); err != nil {
		return nil, err
	}

	participants, err := s.sessionRepo.ListParticipants(ctx, &sessionRepo.ListParticipantsInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	facilitatorID, facilitatorTeamID := facilitatorFor(sess, built.Rotation, participants)
	opened, err := s.arbiter.OpenWindow(ctx, &buzz.OpenWindowInput{
		Code:              input.Code,
		FacilitatorID:     facilitatorID,
		FacilitatorTeamID: facilitatorTeamID,
	})
	if err != nil {
		return nil, err
	}

	out := &StartRoundOutput{
		ActorID:        built.Rotation.CurrentActorID,
		ActingMemberID: built.Rotation.CurrentActingMemberID,
		WindowID:       opened.WindowID,
	}
	if sess.Config.Mode == models.ModeTeams {
		out.TeamID = built.Rotation.CurrentActorID
	}

	s.emit(models.Event{
		Type:    models.EventActorChanged,
		Code:    input.Code,
		ActorID: actingActor(sess, built.Rotation),
		TeamID:  out.TeamID,
		At:      s.adjuster.AdjustedNow(),
	})

	s.logger.Info().
		Str("code", input.Code).
		Str("actor_id", out.ActorID).
		Msg("round started")

	return out, nil
}

// actingActor is the individual performing the action this round
func actingActor(sess *models.Session, rot models.RotationState) string {
	if sess.Config.Mode == models.ModeTeams {
		return rot.CurrentActingMemberID
	}
	return rot.CurrentActorID
}

// PauseTimer pauses the shared countdown
func (s *service) PauseTimer(ctx context.Context, input *TimerCommandInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return err
	}

	if sess.Phase != models.PhasePlaying {
		return ErrInvalidPhase
	}

	if err := s.timer.Pause(ctx, &timer.PauseInput{Code: input.Code}); err != nil {
		return err
	}

	sess.Phase = models.PhasePaused
	sess.UpdatedAt = s.adjuster.AdjustedNow()

	return s.sessionRepo.SaveRoom(ctx, &sessionRepo.SaveRoomInput{Room: sess})
}

// ResumeTimer resumes the shared countdown
func (s *service) ResumeTimer(ctx context.Context, input *TimerCommandInput) error {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return err
	}

	if sess.Phase != models.PhasePaused {
		return ErrInvalidPhase
	}

	if err := s.timer.Resume(ctx, &timer.ResumeInput{Code: input.Code}); err != nil {
		return err
	}

	sess.Phase = models.PhasePlaying
	sess.UpdatedAt = s.adjuster.AdjustedNow()

	return s.sessionRepo.SaveRoom(ctx, &sessionRepo.SaveRoomInput{Room: sess})
}

// SubmitBuzz records the caller's buzz signal
func (s *service) SubmitBuzz(ctx context.Context, input *SubmitBuzzInput) (*SubmitBuzzOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	if sess.Phase != models.PhasePlaying {
		return nil, ErrInvalidPhase
	}

	out, err := s.arbiter.Submit(ctx, &buzz.SubmitInput{Code: input.Code, ActorID: input.ActorID})
	if err != nil {
		return nil, err
	}

	return &SubmitBuzzOutput{WindowID: out.WindowID, AdjustedAt: out.AdjustedAt}, nil
}

// resolvedWindow loads the round's window and requires a committed winner
func (s *service) resolvedWindow(ctx context.Context, code string) (*models.RoundState, *models.BuzzWindow, error) {
	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: code})
	if err != nil {
		return nil, nil, err
	}

	if state.BuzzWindowID == "" {
		return nil, nil, buzz.ErrWindowNotOpen
	}

	window, err := s.roundRepo.GetWindow(ctx, &roundRepo.GetWindowInput{Code: code, WindowID: state.BuzzWindowID})
	if err != nil {
		return nil, nil, err
	}

	if window.State != models.BuzzStateResolved || window.WinnerID == "" {
		return nil, nil, ErrWindowNotResolved
	}

	return state, window, nil
}

// award adds a point to the winner (team score in team mode) and, in
// rotating modes, to the facilitator who asked the question
func (s *service) award(ctx context.Context, sess *models.Session, window *models.BuzzWindow) error {
	winner, err := s.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
		Code:          sess.Code,
		ParticipantID: window.WinnerID,
	})
	if err != nil {
		return err
	}

	if sess.Config.Mode == models.ModeTeams && winner.TeamID != "" {
		teams, err := s.sessionRepo.ListTeams(ctx, &sessionRepo.ListTeamsInput{Code: sess.Code})
		if err != nil {
			return err
		}
		for _, team := range teams {
			if team.ID == winner.TeamID {
				team.Score++
				if err := s.sessionRepo.SaveTeam(ctx, &sessionRepo.SaveTeamInput{Code: sess.Code, Team: team}); err != nil {
					return err
				}
				break
			}
		}
	} else {
		winner.Score++
		if err := s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: sess.Code, Participant: winner}); err != nil {
			return err
		}
	}

	if sess.Config.RotationMode == models.RotationRotating && window.FacilitatorID != "" {
		facilitator, err := s.sessionRepo.GetParticipant(ctx, &sessionRepo.GetParticipantInput{
			Code:          sess.Code,
			ParticipantID: window.FacilitatorID,
		})
		if err != nil {
			return err
		}
		facilitator.Score++
		if err := s.sessionRepo.SaveParticipant(ctx, &sessionRepo.SaveParticipantInput{Code: sess.Code, Participant: facilitator}); err != nil {
			return err
		}
	}

	return nil
}

// nextRound discards the current window, advances rotation, restarts the
// countdown and opens a fresh window for the next actor
func (s *service) nextRound(ctx context.Context, sess *models.Session, state *models.RoundState) (*rotation.AdvanceOutput, error) {
	if state.BuzzWindowID != "" {
		if err := s.arbiter.CloseWindow(ctx, &buzz.CloseWindowInput{Code: sess.Code, WindowID: state.BuzzWindowID}); err != nil {
			return nil, err
		}
	}

	next, err := s.rotation.Advance(ctx, &rotation.AdvanceInput{Code: sess.Code})
	if err != nil {
		return nil, err
	}

	durationMs := int64(sess.Config.RoundSeconds) * 1000
	if err := s.timer.Start(ctx, &timer.StartInput{Code: sess.Code, DurationMs: durationMs}); err != nil {
		return nil, err
	}

	participants, err := s.sessionRepo.ListParticipants(ctx, &sessionRepo.ListParticipantsInput{Code: sess.Code})
	if err != nil {
		return nil, err
	}

	rot := models.RotationState{
		CurrentActorID:        next.ActorID,
		CurrentActingMemberID: next.ActingMemberID,
	}
	facilitatorID, facilitatorTeamID := facilitatorFor(sess, rot, participants)

	if _, err := s.arbiter.OpenWindow(ctx, &buzz.OpenWindowInput{
		Code:              sess.Code,
		FacilitatorID:     facilitatorID,
		FacilitatorTeamID: facilitatorTeamID,
	}); err != nil {
		return nil, err
	}

	s.emit(models.Event{
		Type:    models.EventActorChanged,
		Code:    sess.Code,
		ActorID: actingActor(sess, rot),
		TeamID:  next.TeamID,
		At:      s.adjuster.AdjustedNow(),
	})

	return next, nil
}

// ResolveCorrect awards the resolved winner and advances the round
func (s *service) ResolveCorrect(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return nil, err
	}

	state, window, err := s.resolvedWindow(ctx, input.Code)
	if err != nil {
		return nil, err
	}

	if err := s.award(ctx, sess, window); err != nil {
		return nil, err
	}

	next, err := s.nextRound(ctx, sess, state)
	if err != nil {
		return nil, err
	}

	return &ResolutionOutput{
		WinnerID:    window.WinnerID,
		NextActorID: next.ActorID,
		NextTeamID:  next.TeamID,
	}, nil
}

// ResolveWrong penalizes the resolved winner and reopens the same window.
// The countdown was paused while the window was locked, so resuming it
// here means a wrong buzz never consumes round time.
func (s *service) ResolveWrong(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return nil, err
	}

	state, window, err := s.resolvedWindow(ctx, input.Code)
	if err != nil {
		return nil, err
	}

	if _, err := s.arbiter.Reopen(ctx, &buzz.ReopenInput{
		Code:           input.Code,
		WindowID:       state.BuzzWindowID,
		PenalizeWinner: true,
		LockoutMs:      sess.Config.LockoutMs,
	}); err != nil {
		return nil, err
	}

	if err := s.timer.Resume(ctx, &timer.ResumeInput{Code: input.Code}); err != nil && !errors.Is(err, timer.ErrTimerNotStarted) {
		return nil, err
	}

	return &ResolutionOutput{WinnerID: window.WinnerID}, nil
}

// CancelBuzz discards the resolved winner without a verdict: the window
// reopens with no penalty and the countdown resumes. Used when the
// facilitator locked the race by accident or the winner withdraws.
func (s *service) CancelBuzz(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	_, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return nil, err
	}

	state, window, err := s.resolvedWindow(ctx, input.Code)
	if err != nil {
		return nil, err
	}

	if _, err := s.arbiter.Reopen(ctx, &buzz.ReopenInput{
		Code:     input.Code,
		WindowID: state.BuzzWindowID,
	}); err != nil {
		return nil, err
	}

	if err := s.timer.Resume(ctx, &timer.ResumeInput{Code: input.Code}); err != nil && !errors.Is(err, timer.ErrTimerNotStarted) {
		return nil, err
	}

	return &ResolutionOutput{WinnerID: window.WinnerID}, nil
}

// Skip abandons the current question without awarding and advances
func (s *service) Skip(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return nil, err
	}

	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	next, err := s.nextRound(ctx, sess, state)
	if err != nil {
		return nil, err
	}

	return &ResolutionOutput{NextActorID: next.ActorID, NextTeamID: next.TeamID}, nil
}

// AdvanceRotation explicitly moves to the next actor
func (s *service) AdvanceRotation(ctx context.Context, input *AdvanceRotationInput) (*AdvanceRotationOutput, error) {
	if input == nil || input.Code == "" || input.ActorID == "" {
		return nil, errors.New("input, code and actor ID cannot be empty")
	}

	sess, err := s.requireAuthority(ctx, input.Code, input.ActorID, input.Role)
	if err != nil {
		return nil, err
	}

	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: input.Code})
	if err != nil {
		return nil, err
	}

	next, err := s.nextRound(ctx, sess, state)
	if err != nil {
		return nil, err
	}

	return &AdvanceRotationOutput{
		ActorID:        next.ActorID,
		TeamID:         next.TeamID,
		ActingMemberID: next.ActingMemberID,
	}, nil
}

// HandleActorOffline reacts to a presence transition: when the actor due
// to act goes offline, rotation advances immediately instead of waiting
// out the round
func (s *service) HandleActorOffline(ctx context.Context, code, actorID string) error {
	sess, err := s.sessionRepo.GetRoom(ctx, &sessionRepo.GetRoomInput{Code: code})
	if err != nil {
		return err
	}

	if sess.Phase != models.PhasePlaying {
		return nil
	}

	out, err := s.rotation.HandleInactive(ctx, &rotation.HandleInactiveInput{Code: code, ActorID: actorID})
	if err != nil {
		if errors.Is(err, rotation.ErrNoActiveActors) {
			s.logger.Warn().Str("code", code).Msg("rotation halted: no active actors")
			return err
		}
		return err
	}

	if !out.Advanced {
		return nil
	}

	// Fresh turn means fresh countdown and fresh buzz window
	state, err := s.roundRepo.GetRound(ctx, &roundRepo.GetRoundInput{Code: code})
	if err != nil {
		return err
	}

	if state.BuzzWindowID != "" {
		if err := s.arbiter.CloseWindow(ctx, &buzz.CloseWindowInput{Code: code, WindowID: state.BuzzWindowID}); err != nil {
			return err
		}
	}

	durationMs := int64(sess.Config.RoundSeconds) * 1000
	if err := s.timer.Start(ctx, &timer.StartInput{Code: code, DurationMs: durationMs}); err != nil {
		return err
	}

	participants, err := s.sessionRepo.ListParticipants(ctx, &sessionRepo.ListParticipantsInput{Code: code})
	if err != nil {
		return err
	}

	rot := models.RotationState{
		CurrentActorID:        out.Next.ActorID,
		CurrentActingMemberID: out.Next.ActingMemberID,
	}
	facilitatorID, facilitatorTeamID := facilitatorFor(sess, rot, participants)

	if _, err := s.arbiter.OpenWindow(ctx, &buzz.OpenWindowInput{
		Code:              code,
		FacilitatorID:     facilitatorID,
		FacilitatorTeamID: facilitatorTeamID,
	}); err != nil {
		return err
	}

	s.emit(models.Event{
		Type:    models.EventActorChanged,
		Code:    code,
		ActorID: actingActor(sess, rot),
		TeamID:  out.Next.TeamID,
		At:      s.adjuster.AdjustedNow(),
	})

	if actorID == sess.HostID && s.onHostLoss != nil {
		s.onHostLoss(code, sess.HostID)
	}

	return nil
}
