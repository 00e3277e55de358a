package models

import (
	"time"
)

// Contest represents a time-boxed contest users can bet in.
// A contest is open while now < EndsAt. "Settled" is not a stored state:
// a contest is settled once no unpaid winning bets remain.
type Contest struct {
	ID             int64     `db:"id"`
	Name           string    `db:"name"`
	EndsAt         time.Time `db:"ends_at"`
	WinnerID       *int64    `db:"winner_id"`
	ParticipantIDs []int64   `db:"-"`
	CreatedAt      time.Time `db:"created_at"`
}

// IsOpen reports whether the contest still accepts bets at the given time
func (c *Contest) IsOpen(now time.Time) bool {
	return now.Before(c.EndsAt)
}

// HasParticipant reports whether the candidate takes part in the contest
func (c *Contest) HasParticipant(candidateID int64) bool {
	for _, id := range c.ParticipantIDs {
		if id == candidateID {
			return true
		}
	}
	return false
}

// CanSettle reports whether the contest is eligible for settlement:
// closed and with a declared winner
func (c *Contest) CanSettle(now time.Time) bool {
	return c.WinnerID != nil && !c.IsOpen(now)
}
