package round

import (
	"github.com/partydeck/partydeck/internal/models"
)

// SaveRoundInput contains parameters for saving the round state
type SaveRoundInput struct {
	// Code is the join code
	Code string

	// Round is the round state to persist
	Round *models.RoundState
}

// GetRoundInput contains parameters for retrieving the round state
type GetRoundInput struct {
	// Code is the join code
	Code string
}

// DeleteRoundInput contains parameters for removing the round state
type DeleteRoundInput struct {
	// Code is the join code
	Code string
}

// SaveWindowInput contains parameters for saving a buzz window
type SaveWindowInput struct {
	// Code is the join code
	Code string

	// Window is the buzz window to persist
	Window *models.BuzzWindow
}

// GetWindowInput contains parameters for retrieving a buzz window
type GetWindowInput struct {
	// Code is the join code
	Code string

	// WindowID is the buzz window id
	WindowID string
}

// SubmitSignalInput contains parameters for recording a buzz signal
type SubmitSignalInput struct {
	// Code is the join code
	Code string

	// WindowID is the buzz window id
	WindowID string

	// Signal is the buzz signal to record
	Signal *models.BuzzSignal
}

// ListSignalsInput contains parameters for listing a window's signals
type ListSignalsInput struct {
	// Code is the join code
	Code string

	// WindowID is the buzz window id
	WindowID string
}

// CommitWinnerInput contains parameters for committing a winner
type CommitWinnerInput struct {
	// Code is the join code
	Code string

	// WindowID is the buzz window id
	WindowID string

	// WinnerID is the actor picked by the arbiter
	WinnerID string
}

// CommitWinnerOutput contains the result of committing a winner
type CommitWinnerOutput struct {
	// WinnerID is the winner actually committed, which differs from the
	// input when another resolver won the commit race
	WinnerID string

	// Committed indicates this call performed the commit
	Committed bool
}

// ClearSignalsInput contains parameters for wiping a window's signals
type ClearSignalsInput struct {
	// Code is the join code
	Code string

	// WindowID is the buzz window id
	WindowID string
}

// DeleteWindowInput contains parameters for removing a window
type DeleteWindowInput struct {
	// Code is the join code
	Code string

	// WindowID is the buzz window id
	WindowID string
}

// WatchInput contains parameters for watching the round subtree
type WatchInput struct {
	// Code is the join code
	Code string
}
