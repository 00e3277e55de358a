package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"contestbet/models"
)

// CreateTestCandidate creates a test candidate with default values
func CreateTestCandidate(firstName, lastName string) *models.Candidate {
	return &models.Candidate{
		FirstName: firstName,
		LastName:  lastName,
		Info:      "test candidate",
	}
}

// CreateTestContest creates an open test contest with the given participants
func CreateTestContest(name string, participantIDs ...int64) *models.Contest {
	return &models.Contest{
		Name:           name,
		EndsAt:         time.Now().Add(24 * time.Hour),
		ParticipantIDs: participantIDs,
	}
}

// CreateClosedTestContest creates a contest that stopped accepting bets an
// hour ago
func CreateClosedTestContest(name string, participantIDs ...int64) *models.Contest {
	contest := CreateTestContest(name, participantIDs...)
	contest.EndsAt = time.Now().Add(-time.Hour)
	return contest
}

// CreateTestBet creates a test bet with the given amount and coefficient
func CreateTestBet(accountID, candidateID, contestID int64, amount, coefficient string) *models.Bet {
	return &models.Bet{
		AccountID:   accountID,
		CandidateID: candidateID,
		ContestID:   &contestID,
		Amount:      decimal.RequireFromString(amount),
		Coefficient: decimal.RequireFromString(coefficient),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(accountID int64, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   decimal.RequireFromString("1000.00"),
		BalanceAfter:    decimal.RequireFromString("900.00"),
		ChangeAmount:    decimal.RequireFromString("-100.00"),
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
	}
}
