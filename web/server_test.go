package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contestbet/models"
	"contestbet/service"
)

type stubBetting struct {
	placeBet           func(ctx context.Context, accountID, candidateID, contestID int64, rawAmount string) (*models.Bet, error)
	currentCoefficient func(ctx context.Context, contestID, candidateID int64) (decimal.Decimal, error)
	getBetHistory      func(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error)
}

func (s *stubBetting) PlaceBet(ctx context.Context, accountID, candidateID, contestID int64, rawAmount string) (*models.Bet, error) {
	return s.placeBet(ctx, accountID, candidateID, contestID, rawAmount)
}

func (s *stubBetting) CurrentCoefficient(ctx context.Context, contestID, candidateID int64) (decimal.Decimal, error) {
	return s.currentCoefficient(ctx, contestID, candidateID)
}

func (s *stubBetting) GetBetHistory(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error) {
	return s.getBetHistory(ctx, accountID, limit)
}

type stubSettlement struct {
	settle func(ctx context.Context, contestID int64) (*models.SettlementResult, error)
}

func (s *stubSettlement) Settle(ctx context.Context, contestID int64) (*models.SettlementResult, error) {
	return s.settle(ctx, contestID)
}

func (s *stubSettlement) SettleAllDue(ctx context.Context) ([]*models.SettlementResult, error) {
	return nil, nil
}

type stubAccounts struct {
	getAccount func(ctx context.Context, accountID int64) (*models.Account, error)
}

func (s *stubAccounts) GetOrCreateAccount(ctx context.Context, username string) (*models.Account, error) {
	return nil, nil
}

func (s *stubAccounts) GetAccount(ctx context.Context, accountID int64) (*models.Account, error) {
	return s.getAccount(ctx, accountID)
}

func (s *stubAccounts) GetBalanceHistory(ctx context.Context, accountID int64, limit int) ([]*models.BalanceHistory, error) {
	return nil, nil
}

type stubContests struct {
	getContest        func(ctx context.Context, contestID int64) (*models.Contest, error)
	getCurrentContest func(ctx context.Context) (*models.Contest, error)
	getCandidates     func(ctx context.Context) ([]*models.Candidate, error)
}

func (s *stubContests) GetContest(ctx context.Context, contestID int64) (*models.Contest, error) {
	return s.getContest(ctx, contestID)
}

func (s *stubContests) GetCurrentContest(ctx context.Context) (*models.Contest, error) {
	return s.getCurrentContest(ctx)
}

func (s *stubContests) GetCandidates(ctx context.Context) ([]*models.Candidate, error) {
	return s.getCandidates(ctx)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestServer_PlaceBet_OK(t *testing.T) {
	contestID := int64(3)
	betting := &stubBetting{
		placeBet: func(ctx context.Context, accountID, candidateID, cID int64, rawAmount string) (*models.Bet, error) {
			assert.Equal(t, int64(7), accountID)
			assert.Equal(t, int64(1), candidateID)
			assert.Equal(t, contestID, cID)
			assert.Equal(t, "100.00", rawAmount)
			return &models.Bet{
				ID:          10,
				AccountID:   accountID,
				CandidateID: candidateID,
				ContestID:   &cID,
				Amount:      decimal.RequireFromString("100.00"),
				Coefficient: decimal.RequireFromString("1.85"),
				CreatedAt:   time.Now(),
			}, nil
		},
	}
	router := NewServer(betting, nil, nil, nil).Router()

	w := postJSON(t, router, "/bets", PlaceBetRequest{
		AccountID: 7, ContestID: 3, CandidateID: 1, Amount: "100.00",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var outcome BetOutcome
	require.NoError(t, json.NewDecoder(w.Body).Decode(&outcome))
	assert.True(t, outcome.OK)
	require.NotNil(t, outcome.Bet)
	assert.Equal(t, int64(10), outcome.Bet.ID)
	assert.Equal(t, "1.85", outcome.Bet.Coefficient)
}

func TestServer_PlaceBet_Rejection(t *testing.T) {
	betting := &stubBetting{
		placeBet: func(ctx context.Context, accountID, candidateID, contestID int64, rawAmount string) (*models.Bet, error) {
			return nil, &service.BetError{
				Code:    service.CodeInsufficientFunds,
				Message: "insufficient funds: balance 50 BYN, bet 100 BYN",
			}
		},
	}
	router := NewServer(betting, nil, nil, nil).Router()

	w := postJSON(t, router, "/bets", PlaceBetRequest{
		AccountID: 7, ContestID: 3, CandidateID: 1, Amount: "100",
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var outcome BetOutcome
	require.NoError(t, json.NewDecoder(w.Body).Decode(&outcome))
	assert.False(t, outcome.OK)
	assert.Equal(t, "insufficient_funds", outcome.ErrorCode)
	// The entered amount comes back so the form can be redisplayed
	assert.Equal(t, "100", outcome.EnteredAmount)
}

func TestServer_PlaceBet_StorageError(t *testing.T) {
	betting := &stubBetting{
		placeBet: func(ctx context.Context, accountID, candidateID, contestID int64, rawAmount string) (*models.Bet, error) {
			return nil, errors.New("connection refused")
		},
	}
	router := NewServer(betting, nil, nil, nil).Router()

	w := postJSON(t, router, "/bets", PlaceBetRequest{
		AccountID: 7, ContestID: 3, CandidateID: 1, Amount: "100",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServer_PlaceBet_BadRequest(t *testing.T) {
	router := NewServer(&stubBetting{}, nil, nil, nil).Router()

	t.Run("missing ids", func(t *testing.T) {
		w := postJSON(t, router, "/bets", PlaceBetRequest{Amount: "100"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		w := get(t, router, "/bets")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestServer_Coefficient(t *testing.T) {
	betting := &stubBetting{
		currentCoefficient: func(ctx context.Context, contestID, candidateID int64) (decimal.Decimal, error) {
			return decimal.RequireFromString("2.00"), nil
		},
	}
	router := NewServer(betting, nil, nil, nil).Router()

	w := get(t, router, "/coefficient?contest_id=3&candidate_id=1")

	require.Equal(t, http.StatusOK, w.Code)
	var resp CoefficientResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "2.00", resp.Coefficient)

	t.Run("missing params", func(t *testing.T) {
		w := get(t, router, "/coefficient")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_SettleContest(t *testing.T) {
	settlement := &stubSettlement{
		settle: func(ctx context.Context, contestID int64) (*models.SettlementResult, error) {
			return &models.SettlementResult{
				ContestID: contestID,
				BetsPaid:  2,
				TotalPaid: decimal.RequireFromString("130.00"),
			}, nil
		},
	}
	router := NewServer(nil, settlement, nil, nil).Router()

	w := postJSON(t, router, "/contests/3/settle", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp SettlementResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.ContestID)
	assert.Equal(t, 2, resp.BetsPaid)
	assert.Equal(t, "130.00", resp.TotalPaid)
}

func TestServer_CurrentContest(t *testing.T) {
	t.Run("open contest", func(t *testing.T) {
		contests := &stubContests{
			getCurrentContest: func(ctx context.Context) (*models.Contest, error) {
				return &models.Contest{
					ID:             5,
					Name:           "spring cup",
					EndsAt:         time.Now().Add(time.Hour),
					ParticipantIDs: []int64{1, 2},
				}, nil
			},
		}
		router := NewServer(nil, nil, nil, contests).Router()

		w := get(t, router, "/contests/current")

		require.Equal(t, http.StatusOK, w.Code)
		var resp ContestResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, int64(5), resp.ID)
		assert.True(t, resp.Open)
	})

	t.Run("no open contest", func(t *testing.T) {
		contests := &stubContests{
			getCurrentContest: func(ctx context.Context) (*models.Contest, error) {
				return nil, nil
			},
		}
		router := NewServer(nil, nil, nil, contests).Router()

		w := get(t, router, "/contests/current")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_Candidates(t *testing.T) {
	contests := &stubContests{
		getCandidates: func(ctx context.Context) ([]*models.Candidate, error) {
			return []*models.Candidate{
				{ID: 1, FirstName: "Anna", LastName: "Adams", Info: "favourite"},
			}, nil
		},
	}
	router := NewServer(nil, nil, nil, contests).Router()

	w := get(t, router, "/candidates")

	require.Equal(t, http.StatusOK, w.Code)
	var resp []*CandidateResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "Adams Anna", resp[0].DisplayName)
}

func TestServer_Account(t *testing.T) {
	accounts := &stubAccounts{
		getAccount: func(ctx context.Context, accountID int64) (*models.Account, error) {
			if accountID != 7 {
				return nil, nil
			}
			return &models.Account{ID: 7, Username: "alice", Balance: decimal.RequireFromString("900.00")}, nil
		},
	}
	router := NewServer(nil, nil, accounts, nil).Router()

	t.Run("found", func(t *testing.T) {
		w := get(t, router, "/accounts/7")
		require.Equal(t, http.StatusOK, w.Code)

		var resp AccountResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "alice", resp.Username)
		assert.Equal(t, "900.00", resp.Balance)
	})

	t.Run("not found", func(t *testing.T) {
		w := get(t, router, "/accounts/999")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := get(t, router, "/accounts/abc")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_AccountBets(t *testing.T) {
	contestID := int64(3)
	betting := &stubBetting{
		getBetHistory: func(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error) {
			assert.Equal(t, 2, limit)
			return []*models.Bet{
				{ID: 11, AccountID: accountID, CandidateID: 1, ContestID: &contestID,
					Amount: decimal.RequireFromString("20.00"), Coefficient: decimal.RequireFromString("1.50")},
			}, nil
		},
	}
	router := NewServer(betting, nil, nil, nil).Router()

	w := get(t, router, "/accounts/7/bets?limit=2")

	require.Equal(t, http.StatusOK, w.Code)
	var resp []*BetResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "20.00", resp[0].Amount)
}
