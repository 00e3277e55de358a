package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType categorises a balance change
type TransactionType string

const (
	TransactionTypeInitial  TransactionType = "initial"
	TransactionTypeBetPlace TransactionType = "bet_place"
	TransactionTypePayout   TransactionType = "payout"
)

// RelatedType identifies what a balance history entry refers to
type RelatedType string

const (
	RelatedTypeBet     RelatedType = "bet"
	RelatedTypeContest RelatedType = "contest"
)

// BalanceHistory records a single balance mutation. Every change to an
// account balance writes one of these in the same transaction.
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	AccountID           int64           `db:"account_id"`
	BalanceBefore       decimal.Decimal `db:"balance_before"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *int64          `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}
