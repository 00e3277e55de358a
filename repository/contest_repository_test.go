package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contestbet/models"
	"contestbet/repository/testutil"
)

func seedCandidates(t *testing.T, repo *CandidateRepository, n int) []int64 {
	ctx := context.Background()
	names := []struct{ first, last string }{
		{"Anna", "Adams"}, {"Boris", "Brown"}, {"Clara", "Cole"}, {"Dmitry", "Dale"},
	}
	require.LessOrEqual(t, n, len(names))

	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		c := testutil.CreateTestCandidate(names[i].first, names[i].last)
		require.NoError(t, repo.Create(ctx, c))
		ids = append(ids, c.ID)
	}
	return ids
}

func TestContestRepository_CreateAndGet(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	contestRepo := NewContestRepository(testDB.DB)
	candidateRepo := NewCandidateRepository(testDB.DB)
	ctx := context.Background()

	ids := seedCandidates(t, candidateRepo, 2)

	contest := testutil.CreateTestContest("spring cup", ids...)
	require.NoError(t, contestRepo.Create(ctx, contest))
	assert.NotZero(t, contest.ID)

	t.Run("participants come back with the contest", func(t *testing.T) {
		got, err := contestRepo.GetByID(ctx, contest.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "spring cup", got.Name)
		assert.Nil(t, got.WinnerID)
		assert.ElementsMatch(t, ids, got.ParticipantIDs)
	})

	t.Run("missing contest is nil, not error", func(t *testing.T) {
		got, err := contestRepo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("winner outside participant set rejected", func(t *testing.T) {
		bad := testutil.CreateTestContest("bad cup", ids[0])
		outsider := ids[1]
		bad.WinnerID = &outsider
		assert.Error(t, contestRepo.Create(ctx, bad))
	})
}

func TestContestRepository_GetCurrent(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	contestRepo := NewContestRepository(testDB.DB)
	candidateRepo := NewCandidateRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now()

	ids := seedCandidates(t, candidateRepo, 2)

	t.Run("no open contest yields nil", func(t *testing.T) {
		got, err := contestRepo.GetCurrent(ctx, now)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	closed := testutil.CreateClosedTestContest("ended", ids...)
	require.NoError(t, contestRepo.Create(ctx, closed))

	soon := testutil.CreateTestContest("ends soon", ids...)
	soon.EndsAt = now.Add(time.Hour)
	require.NoError(t, contestRepo.Create(ctx, soon))

	later := testutil.CreateTestContest("ends later", ids...)
	later.EndsAt = now.Add(48 * time.Hour)
	require.NoError(t, contestRepo.Create(ctx, later))

	t.Run("latest ends_at among open wins", func(t *testing.T) {
		got, err := contestRepo.GetCurrent(ctx, now)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, later.ID, got.ID)
		assert.ElementsMatch(t, ids, got.ParticipantIDs)
	})
}

func TestContestRepository_SetWinner(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	contestRepo := NewContestRepository(testDB.DB)
	candidateRepo := NewCandidateRepository(testDB.DB)
	ctx := context.Background()

	ids := seedCandidates(t, candidateRepo, 3)

	contest := testutil.CreateTestContest("cup", ids[0], ids[1])
	require.NoError(t, contestRepo.Create(ctx, contest))

	t.Run("participant can win", func(t *testing.T) {
		require.NoError(t, contestRepo.SetWinner(ctx, contest.ID, ids[0]))

		got, err := contestRepo.GetByID(ctx, contest.ID)
		require.NoError(t, err)
		require.NotNil(t, got.WinnerID)
		assert.Equal(t, ids[0], *got.WinnerID)
	})

	t.Run("non-participant cannot win", func(t *testing.T) {
		err := contestRepo.SetWinner(ctx, contest.ID, ids[2])
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a participant")
	})
}

func TestContestRepository_GetSettleable(t *testing.T) {
	testDB := testutil.SetupTestDatabase(t)
	contestRepo := NewContestRepository(testDB.DB)
	candidateRepo := NewCandidateRepository(testDB.DB)
	accountRepo := NewAccountRepository(testDB.DB)
	betRepo := NewBetRepository(testDB.DB)
	ctx := context.Background()
	now := time.Now()

	ids := seedCandidates(t, candidateRepo, 2)
	account, err := accountRepo.Create(ctx, "bettor", decimal.RequireFromString("1000.00"))
	require.NoError(t, err)

	newClosedContest := func(name string, winner *int64) *models.Contest {
		c := testutil.CreateClosedTestContest(name, ids...)
		c.WinnerID = winner
		require.NoError(t, contestRepo.Create(ctx, c))
		return c
	}

	// Closed, winner declared, one unpaid winning bet: settleable
	due := newClosedContest("due", &ids[0])
	bet := testutil.CreateTestBet(account.ID, ids[0], due.ID, "100.00", "2.00")
	require.NoError(t, betRepo.Create(ctx, bet))

	// Closed with winner but only losing bets: nothing to pay
	loserOnly := newClosedContest("loser only", &ids[0])
	losing := testutil.CreateTestBet(account.ID, ids[1], loserOnly.ID, "50.00", "1.50")
	require.NoError(t, betRepo.Create(ctx, losing))

	// Closed without winner: not settleable yet
	newClosedContest("no winner", nil)

	// Still open with winner-to-be bets: not settleable
	open := testutil.CreateTestContest("open", ids...)
	require.NoError(t, contestRepo.Create(ctx, open))
	openBet := testutil.CreateTestBet(account.ID, ids[0], open.ID, "10.00", "1.10")
	require.NoError(t, betRepo.Create(ctx, openBet))

	settleable, err := contestRepo.GetSettleable(ctx, now)
	require.NoError(t, err)
	require.Len(t, settleable, 1)
	assert.Equal(t, due.ID, settleable[0].ID)
	assert.ElementsMatch(t, ids, settleable[0].ParticipantIDs)

	t.Run("drops off once the bet is paid", func(t *testing.T) {
		require.NoError(t, betRepo.MarkPaidOut(ctx, bet.ID))

		settleable, err := contestRepo.GetSettleable(ctx, now)
		require.NoError(t, err)
		assert.Empty(t, settleable)
	})
}
