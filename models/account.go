package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a betting account with a money balance
type Account struct {
	ID        int64           `db:"id"`
	Username  string          `db:"username"`
	Balance   decimal.Decimal `db:"balance"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}
