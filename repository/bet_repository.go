package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"contestbet/database"
	"contestbet/models"
)

// BetRepository implements the service.BetRepository interface
type BetRepository struct {
	q queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) *BetRepository {
	return &BetRepository{q: db.Pool}
}

func newBetRepositoryWithTx(tx queryable) *BetRepository {
	return &BetRepository{q: tx}
}

const betColumns = `id, account_id, candidate_id, contest_id, amount, coefficient, paid_out, created_at`

// Create inserts a new bet record
func (r *BetRepository) Create(ctx context.Context, bet *models.Bet) error {
	query := `
		INSERT INTO bets (account_id, candidate_id, contest_id, amount, coefficient)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, paid_out, created_at
	`

	err := r.q.QueryRow(ctx, query,
		bet.AccountID, bet.CandidateID, bet.ContestID, bet.Amount, bet.Coefficient,
	).Scan(&bet.ID, &bet.PaidOut, &bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet for account %d: %w", bet.AccountID, err)
	}
	return nil
}

// PoolTotals returns the contest-wide bet sum and the candidate's share of
// it. Must be called inside the transaction that places the bet so the
// coefficient is derived from the same snapshot it is recorded against.
func (r *BetRepository) PoolTotals(ctx context.Context, contestID, candidateID int64) (poolTotal, candidateTotal decimal.Decimal, err error) {
	query := `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE candidate_id = $2), 0)
		FROM bets
		WHERE contest_id = $1
	`

	err = r.q.QueryRow(ctx, query, contestID, candidateID).Scan(&poolTotal, &candidateTotal)
	if err != nil {
		return decimal.Decimal{}, decimal.Decimal{},
			fmt.Errorf("failed to sum pool for contest %d: %w", contestID, err)
	}
	return poolTotal, candidateTotal, nil
}

// GetByAccount returns an account's bets, newest first
func (r *BetRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error) {
	query := `
		SELECT ` + betColumns + `
		FROM bets
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		var b models.Bet
		err := rows.Scan(&b.ID, &b.AccountID, &b.CandidateID, &b.ContestID,
			&b.Amount, &b.Coefficient, &b.PaidOut, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}
	return bets, nil
}

// UnpaidWinningForUpdate selects the settlement work set: every unpaid bet
// on the winning candidate, locking both the bet rows and the owning
// account rows until the transaction ends. The set is always re-derived
// from paid_out = false, never cached, which is what makes repeated
// settlement runs safe.
func (r *BetRepository) UnpaidWinningForUpdate(ctx context.Context, contestID, winnerID int64) ([]*models.Bet, error) {
	query := `
		SELECT b.id, b.account_id, b.candidate_id, b.contest_id,
		       b.amount, b.coefficient, b.paid_out, b.created_at
		FROM bets b
		JOIN accounts a ON a.id = b.account_id
		WHERE b.contest_id = $1
		  AND b.candidate_id = $2
		  AND NOT b.paid_out
		ORDER BY b.id
		FOR UPDATE OF b, a
	`

	rows, err := r.q.Query(ctx, query, contestID, winnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select unpaid winning bets for contest %d: %w", contestID, err)
	}
	defer rows.Close()

	var bets []*models.Bet
	for rows.Next() {
		var b models.Bet
		err := rows.Scan(&b.ID, &b.AccountID, &b.CandidateID, &b.ContestID,
			&b.Amount, &b.Coefficient, &b.PaidOut, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan bet: %w", err)
		}
		bets = append(bets, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bets: %w", err)
	}
	return bets, nil
}

// MarkPaidOut flips paid_out to true, exactly once. Errors if the bet was
// already paid so a double payout can never slip through silently.
func (r *BetRepository) MarkPaidOut(ctx context.Context, betID int64) error {
	query := `
		UPDATE bets
		SET paid_out = TRUE
		WHERE id = $1 AND NOT paid_out
	`

	result, err := r.q.Exec(ctx, query, betID)
	if err != nil {
		return fmt.Errorf("failed to mark bet %d paid: %w", betID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("bet %d is already paid out", betID)
	}
	return nil
}
