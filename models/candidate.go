package models

import "time"

// Candidate represents a contest participant that can be bet on.
// The betting engine treats candidates as read-only reference data.
type Candidate struct {
	ID        int64     `db:"id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Info      string    `db:"info"`
	CreatedAt time.Time `db:"created_at"`
}

// DisplayName returns the candidate's name as shown to users
func (c *Candidate) DisplayName() string {
	return c.LastName + " " + c.FirstName
}
