package models

// Team represents a group of participants competing together
type Team struct {
	// ID is the unique identifier for this team
	ID string

	// Name is the team name, mutable by the team's own members
	Name string

	// Color is the display color assigned at creation
	Color string

	// Score is the team's score
	Score int

	// AssignedContentID is an optional scenario/topic selected for the team
	AssignedContentID string
}
