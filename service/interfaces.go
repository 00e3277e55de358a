package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"contestbet/events"
	"contestbet/models"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id int64) (*models.Account, error)

	// GetByIDForUpdate retrieves an account under an exclusive row lock
	// held until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error)

	// GetByUsername retrieves an account by username
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	// Create creates a new account with the initial balance. Returns nil
	// without error when the username already exists.
	Create(ctx context.Context, username string, initialBalance decimal.Decimal) (*models.Account, error)

	// AddBalance credits an account atomically
	AddBalance(ctx context.Context, id int64, amount decimal.Decimal) error

	// DeductBalance debits an account atomically, failing on insufficient funds
	DeductBalance(ctx context.Context, id int64, amount decimal.Decimal) error
}

// CandidateRepository defines the interface for candidate data access
type CandidateRepository interface {
	// GetByID retrieves a candidate by its ID
	GetByID(ctx context.Context, id int64) (*models.Candidate, error)

	// GetAll returns all candidates
	GetAll(ctx context.Context) ([]*models.Candidate, error)

	// Create inserts a candidate (seeding/tests only)
	Create(ctx context.Context, candidate *models.Candidate) error
}

// ContestRepository defines the interface for contest data access
type ContestRepository interface {
	// GetByID retrieves a contest with its participant set
	GetByID(ctx context.Context, id int64) (*models.Contest, error)

	// GetCurrent returns the open contest with the latest ends_at, or nil
	GetCurrent(ctx context.Context, now time.Time) (*models.Contest, error)

	// GetSettleable returns closed winner-declared contests with unpaid winning bets
	GetSettleable(ctx context.Context, now time.Time) ([]*models.Contest, error)

	// Create inserts a contest and its participants
	Create(ctx context.Context, contest *models.Contest) error

	// SetWinner declares the contest winner, validating participant membership
	SetWinner(ctx context.Context, contestID, winnerID int64) error
}

// BetRepository defines the interface for bet data access
type BetRepository interface {
	// Create inserts a new bet record
	Create(ctx context.Context, bet *models.Bet) error

	// PoolTotals returns the contest pool sum and the candidate's share of it
	PoolTotals(ctx context.Context, contestID, candidateID int64) (poolTotal, candidateTotal decimal.Decimal, err error)

	// GetByAccount returns an account's bets, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error)

	// UnpaidWinningForUpdate selects and locks the settlement work set
	UnpaidWinningForUpdate(ctx context.Context, contestID, winnerID int64) ([]*models.Bet, error)

	// MarkPaidOut flips paid_out to true, exactly once
	MarkPaidOut(ctx context.Context, betID int64) error
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByAccount returns balance history for an account, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// BettingService defines the interface for bet placement and odds reads
type BettingService interface {
	// PlaceBet validates and atomically places a bet: recomputes the
	// coefficient against live pool state, records the bet and debits the
	// account, all in one transaction
	PlaceBet(ctx context.Context, accountID, candidateID, contestID int64, rawAmount string) (*models.Bet, error)

	// CurrentCoefficient returns the coefficient a bet on the candidate
	// would currently receive. Advisory, lock-free read for display.
	CurrentCoefficient(ctx context.Context, contestID, candidateID int64) (decimal.Decimal, error)

	// GetBetHistory returns an account's bets for display
	GetBetHistory(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error)
}

// SettlementService defines the interface for paying out winning bets
type SettlementService interface {
	// Settle pays all unpaid winning bets of a closed, winner-declared
	// contest exactly once. Safe to invoke speculatively: an open or
	// winnerless contest, or one with nothing left to pay, yields an
	// empty result without error.
	Settle(ctx context.Context, contestID int64) (*models.SettlementResult, error)

	// SettleAllDue settles every contest that is closed, has a winner and
	// still has unpaid winning bets
	SettleAllDue(ctx context.Context) ([]*models.SettlementResult, error)
}

// AccountService defines the interface for account operations
type AccountService interface {
	// GetOrCreateAccount retrieves an account by username or creates it
	// with the configured starting balance
	GetOrCreateAccount(ctx context.Context, username string) (*models.Account, error)

	// GetAccount retrieves an account by ID
	GetAccount(ctx context.Context, accountID int64) (*models.Account, error)

	// GetBalanceHistory returns an account's balance history for display
	GetBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error)
}

// ContestService defines read operations on contests for the delivery layer
type ContestService interface {
	// GetContest retrieves a contest by ID
	GetContest(ctx context.Context, contestID int64) (*models.Contest, error)

	// GetCurrentContest resolves "the current contest" as the open contest
	// with the latest ends_at. Returns nil when no contest is open.
	GetCurrentContest(ctx context.Context) (*models.Contest, error)

	// GetCandidates returns all candidates for display
	GetCandidates(ctx context.Context) ([]*models.Candidate, error)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	CandidateRepository() CandidateRepository
	ContestRepository() ContestRepository
	BetRepository() BetRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
