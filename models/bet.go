package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bet represents a placed bet. Immutable after creation except for the
// single paid_out false -> true transition performed by settlement.
type Bet struct {
	ID          int64           `db:"id"`
	AccountID   int64           `db:"account_id"`
	CandidateID int64           `db:"candidate_id"`
	ContestID   *int64          `db:"contest_id"` // nil on legacy contestless bets
	Amount      decimal.Decimal `db:"amount"`
	Coefficient decimal.Decimal `db:"coefficient"`
	PaidOut     bool            `db:"paid_out"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Payout returns the amount owed if the bet wins: amount * coefficient,
// rounded to cents. Recomputed rather than stored.
func (b *Bet) Payout() decimal.Decimal {
	return RoundMoney(b.Amount.Mul(b.Coefficient))
}

// SettlementResult summarises one settlement invocation
type SettlementResult struct {
	ContestID int64
	BetsPaid  int
	TotalPaid decimal.Decimal
}
