package models

// BuzzState represents the lifecycle of a buzz window
type BuzzState string

const (
	// BuzzStateOpen indicates signals are being accepted
	BuzzStateOpen BuzzState = "open"

	// BuzzStateResolving indicates the race window is counting down
	BuzzStateResolving BuzzState = "resolving"

	// BuzzStateResolved indicates a winner has been committed
	BuzzStateResolved BuzzState = "resolved"
)

// BuzzSignal is one actor's "I answered" claim
type BuzzSignal struct {
	// ActorID is the participant who buzzed
	ActorID string

	// AdjustedAt is the skew-corrected submission time in unix milliseconds
	AdjustedAt int64
}

// BuzzWindow is the ephemeral race state for one question/word
type BuzzWindow struct {
	// ID is the unique identifier for this window
	ID string

	// State is the current lifecycle state
	State BuzzState

	// WinnerID is the resolved winner, empty until resolution
	WinnerID string

	// FacilitatorID is the actor excluded from buzzing
	FacilitatorID string

	// FacilitatorTeamID excludes the whole facilitating team in team mode
	FacilitatorTeamID string

	// OpenedAt is when the window opened, adjusted unix milliseconds
	OpenedAt int64

	// LockedAt is when the window entered the resolving state, adjusted
	// unix milliseconds. Zero while the window is open.
	LockedAt int64
}
