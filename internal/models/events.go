package models

import (
	"time"
)

// EventType identifies an event emitted to the presentation layer
type EventType string

const (
	// EventBuzzResolved is emitted when a buzz window picks a winner
	EventBuzzResolved EventType = "buzzResolved"

	// EventTimeExpired is emitted by the authority when the countdown hits zero
	EventTimeExpired EventType = "timeExpired"

	// EventActorChanged is emitted when rotation advances
	EventActorChanged EventType = "actorChanged"

	// EventPresenceChanged is emitted when an actor's liveness class changes
	EventPresenceChanged EventType = "presenceChanged"

	// EventSessionClosed is emitted when the room subtree is deleted
	EventSessionClosed EventType = "sessionClosed"
)

// Event is a notification pushed to the presentation layer
type Event struct {
	// Type identifies the event
	Type EventType

	// Code is the session join code
	Code string

	// ActorID is the affected participant or team, when applicable
	ActorID string

	// TeamID is set for team-scoped events
	TeamID string

	// WinnerID is set on buzzResolved
	WinnerID string

	// Status is set on presenceChanged
	Status PresenceStatus

	// At is when the event was observed
	At time.Time
}

// Subtree identifies one of the replicated store subtrees
type Subtree string

const (
	// SubtreeRoom is the session document
	SubtreeRoom Subtree = "room"

	// SubtreeParticipants is the participant list
	SubtreeParticipants Subtree = "participants"

	// SubtreeTeams is the team list
	SubtreeTeams Subtree = "teams"

	// SubtreeRound is the rotation/timer/buzz state
	SubtreeRound Subtree = "round"
)

// ChangeKind distinguishes an update from a subtree deletion. Deletion is a
// first-class signal: a deleted room means the host ended the session.
type ChangeKind string

const (
	// ChangeUpdated indicates the subtree has a new value
	ChangeUpdated ChangeKind = "updated"

	// ChangeDeleted indicates the subtree was removed
	ChangeDeleted ChangeKind = "deleted"
)

// Change is a store subtree change notification
type Change struct {
	// Subtree is which subtree changed
	Subtree Subtree

	// Kind is updated or deleted
	Kind ChangeKind
}
