package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// BetErrorCode identifies a recoverable bet placement failure
type BetErrorCode string

const (
	CodeNoActiveContest       BetErrorCode = "no_active_contest"
	CodeContestClosed         BetErrorCode = "contest_closed"
	CodeInvalidAmount         BetErrorCode = "invalid_amount"
	CodeLimitExceeded         BetErrorCode = "limit_exceeded"
	CodeCandidateNotInContest BetErrorCode = "candidate_not_in_contest"
	CodeInsufficientFunds     BetErrorCode = "insufficient_funds"
)

// BetError is a recoverable, user-facing bet placement failure. The caller
// redisplays the form with Message and the user's entered amount preserved.
// Storage failures are not BetErrors; they propagate as plain errors.
type BetError struct {
	Code    BetErrorCode
	Message string
}

func (e *BetError) Error() string {
	return e.Message
}

// AsBetError unwraps err into a *BetError if it is one
func AsBetError(err error) (*BetError, bool) {
	var betErr *BetError
	if errors.As(err, &betErr) {
		return betErr, true
	}
	return nil, false
}

func errNoActiveContest() error {
	return &BetError{
		Code:    CodeNoActiveContest,
		Message: "no contest is currently open for betting",
	}
}

func errContestClosed() error {
	return &BetError{
		Code:    CodeContestClosed,
		Message: "the contest has already closed",
	}
}

func errInvalidAmount() error {
	return &BetError{
		Code:    CodeInvalidAmount,
		Message: "enter a valid bet amount greater than 0",
	}
}

func errLimitExceeded(limit decimal.Decimal) error {
	display := limit.String()
	if limit.IsInteger() {
		display = limit.Truncate(0).String()
	}
	return &BetError{
		Code:    CodeLimitExceeded,
		Message: fmt.Sprintf("amount exceeds the allowed limit (%s BYN)", display),
	}
}

func errCandidateNotInContest() error {
	return &BetError{
		Code:    CodeCandidateNotInContest,
		Message: "the candidate is not taking part in this contest",
	}
}

func errInsufficientFunds(have, need decimal.Decimal) error {
	return &BetError{
		Code:    CodeInsufficientFunds,
		Message: fmt.Sprintf("insufficient funds: balance %s BYN, bet %s BYN", have, need),
	}
}
