package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"contestbet/database"
	"contestbet/models"
)

// ContestRepository implements the service.ContestRepository interface
type ContestRepository struct {
	q queryable
}

// NewContestRepository creates a new contest repository
func NewContestRepository(db *database.DB) *ContestRepository {
	return &ContestRepository{q: db.Pool}
}

func newContestRepositoryWithTx(tx queryable) *ContestRepository {
	return &ContestRepository{q: tx}
}

func (r *ContestRepository) scanContest(ctx context.Context, row pgx.Row) (*models.Contest, error) {
	var c models.Contest
	err := row.Scan(&c.ID, &c.Name, &c.EndsAt, &c.WinnerID, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContestRepository) loadParticipants(ctx context.Context, c *models.Contest) error {
	query := `
		SELECT candidate_id
		FROM contest_participants
		WHERE contest_id = $1
		ORDER BY candidate_id
	`

	rows, err := r.q.Query(ctx, query, c.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants for contest %d: %w", c.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		c.ParticipantIDs = append(c.ParticipantIDs, id)
	}
	return rows.Err()
}

// GetByID retrieves a contest with its participant set
func (r *ContestRepository) GetByID(ctx context.Context, id int64) (*models.Contest, error) {
	query := `
		SELECT id, name, ends_at, winner_id, created_at
		FROM contests
		WHERE id = $1
	`

	contest, err := r.scanContest(ctx, r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get contest %d: %w", id, err)
	}
	return contest, nil
}

// GetCurrent returns the open contest with the latest ends_at, or nil when
// no contest is open. This is caller-side policy, not an engine concept:
// the engines always receive an explicit contest ID.
func (r *ContestRepository) GetCurrent(ctx context.Context, now time.Time) (*models.Contest, error) {
	query := `
		SELECT id, name, ends_at, winner_id, created_at
		FROM contests
		WHERE ends_at > $1
		ORDER BY ends_at DESC
		LIMIT 1
	`

	contest, err := r.scanContest(ctx, r.q.QueryRow(ctx, query, now))
	if err != nil {
		return nil, fmt.Errorf("failed to get current contest: %w", err)
	}
	return contest, nil
}

// GetSettleable returns closed, winner-declared contests that still have
// unpaid winning bets. The unpaid filter keeps the periodic sweep from
// re-scanning contests that are already fully settled.
func (r *ContestRepository) GetSettleable(ctx context.Context, now time.Time) ([]*models.Contest, error) {
	query := `
		SELECT c.id, c.name, c.ends_at, c.winner_id, c.created_at
		FROM contests c
		WHERE c.ends_at <= $1
		  AND c.winner_id IS NOT NULL
		  AND EXISTS (
			SELECT 1 FROM bets b
			WHERE b.contest_id = c.id
			  AND b.candidate_id = c.winner_id
			  AND NOT b.paid_out
		  )
		ORDER BY c.ends_at
	`

	rows, err := r.q.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get settleable contests: %w", err)
	}
	defer rows.Close()

	var contests []*models.Contest
	for rows.Next() {
		var c models.Contest
		if err := rows.Scan(&c.ID, &c.Name, &c.EndsAt, &c.WinnerID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contest: %w", err)
		}
		contests = append(contests, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contests: %w", err)
	}

	for _, c := range contests {
		if err := r.loadParticipants(ctx, c); err != nil {
			return nil, err
		}
	}
	return contests, nil
}

// Create inserts a contest and its participant set. The winner, when given,
// must be a member of the participant set.
func (r *ContestRepository) Create(ctx context.Context, contest *models.Contest) error {
	if contest.WinnerID != nil && !contest.HasParticipant(*contest.WinnerID) {
		return fmt.Errorf("winner %d is not a participant of the contest", *contest.WinnerID)
	}

	query := `
		INSERT INTO contests (name, ends_at, winner_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query, contest.Name, contest.EndsAt, contest.WinnerID).
		Scan(&contest.ID, &contest.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contest: %w", err)
	}

	for _, candidateID := range contest.ParticipantIDs {
		_, err := r.q.Exec(ctx,
			`INSERT INTO contest_participants (contest_id, candidate_id) VALUES ($1, $2)`,
			contest.ID, candidateID)
		if err != nil {
			return fmt.Errorf("failed to add participant %d: %w", candidateID, err)
		}
	}
	return nil
}

// SetWinner declares the contest winner. Enforced against the participant
// set at save time, mirroring the contest-save validation of the admin layer.
func (r *ContestRepository) SetWinner(ctx context.Context, contestID, winnerID int64) error {
	query := `
		UPDATE contests c
		SET winner_id = $1
		WHERE c.id = $2
		  AND EXISTS (
			SELECT 1 FROM contest_participants cp
			WHERE cp.contest_id = c.id AND cp.candidate_id = $1
		  )
	`

	result, err := r.q.Exec(ctx, query, winnerID, contestID)
	if err != nil {
		return fmt.Errorf("failed to set winner for contest %d: %w", contestID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("candidate %d is not a participant of contest %d", winnerID, contestID)
	}
	return nil
}
