package models

import (
	"time"
)

// ParticipantStatus represents the membership state of a participant
type ParticipantStatus string

const (
	// ParticipantStatusActive indicates the participant is playing
	ParticipantStatusActive ParticipantStatus = "active"

	// ParticipantStatusDisconnected indicates the participant dropped
	// without explicitly leaving
	ParticipantStatusDisconnected ParticipantStatus = "disconnected"

	// ParticipantStatusLeft indicates the participant explicitly left
	ParticipantStatusLeft ParticipantStatus = "left"
)

// PresenceStatus is the liveness classification derived from heartbeat age
type PresenceStatus string

const (
	// PresenceOnline indicates a recent heartbeat
	PresenceOnline PresenceStatus = "online"

	// PresenceUncertain indicates the last heartbeat is getting stale
	PresenceUncertain PresenceStatus = "uncertain"

	// PresenceOffline indicates the heartbeat is missing or too old
	PresenceOffline PresenceStatus = "offline"
)

// Participant represents one actor in a session
type Participant struct {
	// ID is the unique identifier for this participant
	ID string

	// DisplayName is the name shown to other participants
	DisplayName string

	// TeamID is the team this participant belongs to, empty in
	// individual mode or before assignment
	TeamID string

	// Score is the participant's individual score
	Score int

	// Status is the membership state
	Status ParticipantStatus

	// PenalizedUntil is set while a wrong-buzz lockout is in effect
	PenalizedUntil *time.Time

	// Location is the screen the participant is on, used for
	// host-exit detection
	Location string

	// JoinedAt is when the participant joined the session
	JoinedAt time.Time
}

// Penalized reports whether the participant is locked out at the given time
func (p *Participant) Penalized(now time.Time) bool {
	return p.PenalizedUntil != nil && now.Before(*p.PenalizedUntil)
}
