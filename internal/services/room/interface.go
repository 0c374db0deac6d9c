package room

import "context"

// Service defines the command surface consumed by the presentation layer.
// Every mutating command carries the caller's claimed role; commands from
// non-authorities are rejected rather than trusted.
type Service interface {
	// CreateSession creates a room and its host participant
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// JoinSession adds a participant to a room by join code
	JoinSession(ctx context.Context, input *JoinSessionInput) (*JoinSessionOutput, error)

	// LeaveSession marks a participant as having left
	LeaveSession(ctx context.Context, input *LeaveSessionInput) error

	// CloseSession ends the session and deletes the room subtree
	CloseSession(ctx context.Context, input *CloseSessionInput) error

	// SetTeamCount creates the requested number of teams and assigns
	// participants round-robin
	SetTeamCount(ctx context.Context, input *SetTeamCountInput) (*SetTeamCountOutput, error)

	// AssignActorToTeam moves a participant to a team
	AssignActorToTeam(ctx context.Context, input *AssignActorToTeamInput) error

	// RenameTeam renames a team, allowed only for its own members
	RenameTeam(ctx context.Context, input *RenameTeamInput) error

	// SetLocation records which screen a participant is on
	SetLocation(ctx context.Context, input *SetLocationInput) error

	// StartRound moves the session into play and opens the first round
	StartRound(ctx context.Context, input *StartRoundInput) (*StartRoundOutput, error)

	// PauseTimer pauses the shared countdown
	PauseTimer(ctx context.Context, input *TimerCommandInput) error

	// ResumeTimer resumes the shared countdown
	ResumeTimer(ctx context.Context, input *TimerCommandInput) error

	// SubmitBuzz records the caller's buzz signal
	SubmitBuzz(ctx context.Context, input *SubmitBuzzInput) (*SubmitBuzzOutput, error)

	// ResolveCorrect awards the resolved winner and advances the round
	ResolveCorrect(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error)

	// ResolveWrong penalizes the resolved winner and reopens the window
	ResolveWrong(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error)

	// CancelBuzz reopens the window without penalty or award
	CancelBuzz(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error)

	// Skip abandons the current question and advances the round
	Skip(ctx context.Context, input *ResolutionInput) (*ResolutionOutput, error)

	// AdvanceRotation explicitly moves to the next actor
	AdvanceRotation(ctx context.Context, input *AdvanceRotationInput) (*AdvanceRotationOutput, error)
}
