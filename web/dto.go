package web

import (
	"time"

	"contestbet/models"
	"contestbet/service"
)

// PlaceBetRequest is the body of POST /bets. Amount stays a raw string so
// the server can validate and round it, and echo it back on rejection.
type PlaceBetRequest struct {
	AccountID   int64  `json:"account_id"`
	ContestID   int64  `json:"contest_id"`
	CandidateID int64  `json:"candidate_id"`
	Amount      string `json:"amount"`
}

// BetResponse is the wire form of a placed bet
type BetResponse struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	CandidateID int64     `json:"candidate_id"`
	ContestID   *int64    `json:"contest_id,omitempty"`
	Amount      string    `json:"amount"`
	Coefficient string    `json:"coefficient"`
	PaidOut     bool      `json:"paid_out"`
	CreatedAt   time.Time `json:"created_at"`
}

// BetOutcome is the response to POST /bets. On rejection the entered
// amount comes back unchanged so the caller can redisplay the form.
type BetOutcome struct {
	OK            bool         `json:"ok"`
	Bet           *BetResponse `json:"bet,omitempty"`
	ErrorCode     string       `json:"error_code,omitempty"`
	UserMessage   string       `json:"user_message,omitempty"`
	EnteredAmount string       `json:"entered_amount,omitempty"`
}

// CoefficientResponse is the response to GET /coefficient
type CoefficientResponse struct {
	ContestID   int64  `json:"contest_id"`
	CandidateID int64  `json:"candidate_id"`
	Coefficient string `json:"coefficient"`
}

// ContestResponse is the wire form of a contest
type ContestResponse struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	EndsAt         time.Time `json:"ends_at"`
	WinnerID       *int64    `json:"winner_id,omitempty"`
	ParticipantIDs []int64   `json:"participant_ids"`
	Open           bool      `json:"open"`
}

// CandidateResponse is the wire form of a candidate
type CandidateResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Info        string `json:"info"`
}

// AccountResponse is the wire form of an account
type AccountResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Balance  string `json:"balance"`
}

// SettlementResponse is the response to POST /contests/{id}/settle
type SettlementResponse struct {
	ContestID int64  `json:"contest_id"`
	BetsPaid  int    `json:"bets_paid"`
	TotalPaid string `json:"total_paid"`
}

func toBetResponse(bet *models.Bet) *BetResponse {
	return &BetResponse{
		ID:          bet.ID,
		AccountID:   bet.AccountID,
		CandidateID: bet.CandidateID,
		ContestID:   bet.ContestID,
		Amount:      bet.Amount.StringFixed(2),
		Coefficient: bet.Coefficient.StringFixed(2),
		PaidOut:     bet.PaidOut,
		CreatedAt:   bet.CreatedAt,
	}
}

func toContestResponse(contest *models.Contest, now time.Time) *ContestResponse {
	return &ContestResponse{
		ID:             contest.ID,
		Name:           contest.Name,
		EndsAt:         contest.EndsAt,
		WinnerID:       contest.WinnerID,
		ParticipantIDs: contest.ParticipantIDs,
		Open:           contest.IsOpen(now),
	}
}

func toCandidateResponse(candidate *models.Candidate) *CandidateResponse {
	return &CandidateResponse{
		ID:          candidate.ID,
		DisplayName: candidate.DisplayName(),
		Info:        candidate.Info,
	}
}

func toAccountResponse(account *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:       account.ID,
		Username: account.Username,
		Balance:  account.Balance.StringFixed(2),
	}
}

func toSettlementResponse(result *models.SettlementResult) *SettlementResponse {
	return &SettlementResponse{
		ContestID: result.ContestID,
		BetsPaid:  result.BetsPaid,
		TotalPaid: result.TotalPaid.StringFixed(2),
	}
}

func rejectedOutcome(betErr *service.BetError, enteredAmount string) *BetOutcome {
	return &BetOutcome{
		OK:            false,
		ErrorCode:     string(betErr.Code),
		UserMessage:   betErr.Message,
		EnteredAmount: enteredAmount,
	}
}
