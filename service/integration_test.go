package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contestbet/config"
	"contestbet/events"
	"contestbet/models"
	"contestbet/repository"
	"contestbet/repository/testutil"
	"contestbet/service"
)

func integrationConfig() *config.Config {
	return &config.Config{
		StartingBalance: decimal.RequireFromString("1000.00"),
		BetLimit:        decimal.NewFromInt(1000),
		OddsSmoothing:   decimal.NewFromInt(200),
		OddsMin:         decimal.RequireFromString("1.10"),
		OddsMax:         decimal.RequireFromString("3.00"),
		Environment:     "test",
	}
}

type fixture struct {
	db          *testutil.TestDatabase
	uowFactory  service.UnitOfWorkFactory
	accounts    service.AccountService
	betting     service.BettingService
	settlement  service.SettlementService
	contestRepo *repository.ContestRepository
	accountRepo *repository.AccountRepository
	candidates  []int64
}

func setupFixture(t *testing.T) *fixture {
	testDB := testutil.SetupTestDatabase(t)
	cfg := integrationConfig()

	uowFactory := repository.NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	candidateRepo := repository.NewCandidateRepository(testDB.DB)

	ctx := context.Background()
	var candidateIDs []int64
	for _, name := range []struct{ first, last string }{{"Anna", "Adams"}, {"Boris", "Brown"}} {
		c := &models.Candidate{FirstName: name.first, LastName: name.last}
		require.NoError(t, candidateRepo.Create(ctx, c))
		candidateIDs = append(candidateIDs, c.ID)
	}

	return &fixture{
		db:          testDB,
		uowFactory:  uowFactory,
		accounts:    service.NewAccountService(uowFactory, cfg),
		betting:     service.NewBettingService(uowFactory, cfg, nil),
		settlement:  service.NewSettlementService(uowFactory),
		contestRepo: repository.NewContestRepository(testDB.DB),
		accountRepo: repository.NewAccountRepository(testDB.DB),
		candidates:  candidateIDs,
	}
}

func (f *fixture) newContest(t *testing.T, endsAt time.Time) *models.Contest {
	contest := &models.Contest{
		Name:           "integration cup",
		EndsAt:         endsAt,
		ParticipantIDs: f.candidates,
	}
	require.NoError(t, f.contestRepo.Create(context.Background(), contest))
	return contest
}

// closeContest moves ends_at into the past so settlement becomes possible
func (f *fixture) closeContest(t *testing.T, contestID int64) {
	_, err := f.db.DB.Exec(context.Background(),
		`UPDATE contests SET ends_at = NOW() - INTERVAL '1 hour' WHERE id = $1`, contestID)
	require.NoError(t, err)
}

func TestBettingLifecycle_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	f := setupFixture(t)
	ctx := context.Background()

	contest := f.newContest(t, time.Now().Add(time.Hour))

	account, err := f.accounts.GetOrCreateAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", account.Balance.StringFixed(2))

	// First bet on an empty pool gets the floor coefficient
	bet, err := f.betting.PlaceBet(ctx, account.ID, f.candidates[0], contest.ID, "100")
	require.NoError(t, err)
	assert.Equal(t, "1.10", bet.Coefficient.StringFixed(2))

	after, err := f.accounts.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "900.00", after.Balance.StringFixed(2))

	// The pool moved, so the other candidate's coefficient rises off the floor
	c, err := f.betting.CurrentCoefficient(ctx, contest.ID, f.candidates[1])
	require.NoError(t, err)
	assert.True(t, c.GreaterThan(decimal.RequireFromString("1.10")), "got %s", c)

	// Close the contest, declare the winner, settle
	f.closeContest(t, contest.ID)
	require.NoError(t, f.contestRepo.SetWinner(ctx, contest.ID, f.candidates[0]))

	result, err := f.settlement.Settle(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BetsPaid)
	assert.Equal(t, "110.00", result.TotalPaid.StringFixed(2))

	settled, err := f.accounts.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1010.00", settled.Balance.StringFixed(2))

	// Every balance mutation left a history row: initial, bet, payout
	history, err := f.accounts.GetBalanceHistory(ctx, account.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// A second settlement run converges on nothing to pay
	again, err := f.settlement.Settle(ctx, contest.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.BetsPaid)

	unchanged, err := f.accounts.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1010.00", unchanged.Balance.StringFixed(2))
}

func TestConcurrentBets_SameAccount_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	f := setupFixture(t)
	ctx := context.Background()

	contest := f.newContest(t, time.Now().Add(time.Hour))

	account, err := f.accountRepo.Create(ctx, "racer", decimal.RequireFromString("150.00"))
	require.NoError(t, err)

	// Two concurrent 100.00 bets against a 150.00 balance: the account row
	// lock serializes them, so exactly one succeeds.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.betting.PlaceBet(ctx, account.ID, f.candidates[0], contest.ID, "100.00")
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		betErr, ok := service.AsBetError(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, service.CodeInsufficientFunds, betErr.Code)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	final, err := f.accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", final.Balance.StringFixed(2))
}

func TestConcurrentAccountCreation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	f := setupFixture(t)
	ctx := context.Background()

	// First-time callers racing on the same username: the insert is
	// conflict-tolerant, so both get the same account and the starting
	// balance is granted exactly once.
	var wg sync.WaitGroup
	accounts := make([]*models.Account, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			accounts[i], errs[i] = f.accounts.GetOrCreateAccount(ctx, "newcomer")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, accounts[i])
	}
	assert.Equal(t, accounts[0].ID, accounts[1].ID)

	stored, err := f.accountRepo.GetByUsername(ctx, "newcomer")
	require.NoError(t, err)
	assert.Equal(t, "1000.00", stored.Balance.StringFixed(2))

	// Only the winning create recorded the initial grant
	history, err := f.accounts.GetBalanceHistory(ctx, stored.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TransactionTypeInitial, history[0].TransactionType)
}

func TestConcurrentSettlement_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	f := setupFixture(t)
	ctx := context.Background()

	contest := f.newContest(t, time.Now().Add(time.Hour))

	account, err := f.accountRepo.Create(ctx, "winner", decimal.RequireFromString("1000.00"))
	require.NoError(t, err)
	_, err = f.betting.PlaceBet(ctx, account.ID, f.candidates[0], contest.ID, "200.00")
	require.NoError(t, err)

	f.closeContest(t, contest.ID)
	require.NoError(t, f.contestRepo.SetWinner(ctx, contest.ID, f.candidates[0]))

	// Explicit settle and sweep racing each other: the bet row lock plus the
	// paid_out guard mean the payout lands exactly once.
	var wg sync.WaitGroup
	results := make([]*models.SettlementResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.settlement.Settle(ctx, contest.ID)
		}(i)
	}
	wg.Wait()

	totalPaid := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		totalPaid += results[i].BetsPaid
	}
	assert.Equal(t, 1, totalPaid, "the bet must be paid exactly once")

	// 1000 - 200 + 200*1.10 = 1020
	final, err := f.accountRepo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "1020.00", final.Balance.StringFixed(2))
}
