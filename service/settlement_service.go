package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"contestbet/events"
	"contestbet/metrics"
	"contestbet/models"
)

type settlementService struct {
	uowFactory UnitOfWorkFactory
}

// NewSettlementService creates a new settlement service
func NewSettlementService(uowFactory UnitOfWorkFactory) SettlementService {
	return &settlementService{
		uowFactory: uowFactory,
	}
}

// Settle pays out every unpaid winning bet of the contest exactly once.
// The work set is re-derived from paid_out = false on every run, so
// invoking it repeatedly (admin re-save, cron sweep, both at once) is safe:
// a second run finds nothing to pay and commits an empty result.
func (s *settlementService) Settle(ctx context.Context, contestID int64) (*models.SettlementResult, error) {
	metrics.SettlementRuns.Inc()

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	contest, err := uow.ContestRepository().GetByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	if contest == nil {
		return nil, fmt.Errorf("contest %d not found", contestID)
	}

	result := &models.SettlementResult{ContestID: contestID, TotalPaid: decimal.Zero}

	// Settlement on a still-open or winnerless contest is a no-op, not an
	// error: callers invoke this speculatively on every contest save.
	if !contest.CanSettle(time.Now()) {
		return result, nil
	}
	winnerID := *contest.WinnerID

	// Locks the bet rows and the owning account rows: a concurrent bet
	// placement or a second settlement run on the same accounts waits
	// here until this transaction commits.
	bets, err := uow.BetRepository().UnpaidWinningForUpdate(ctx, contestID, winnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select unpaid winning bets: %w", err)
	}
	if len(bets) == 0 {
		return result, nil
	}

	for _, bet := range bets {
		payout := bet.Payout()

		account, err := uow.AccountRepository().GetByID(ctx, bet.AccountID)
		if err != nil {
			return nil, fmt.Errorf("failed to get account %d: %w", bet.AccountID, err)
		}
		if account == nil {
			return nil, fmt.Errorf("account %d not found for bet %d", bet.AccountID, bet.ID)
		}

		if err := uow.AccountRepository().AddBalance(ctx, bet.AccountID, payout); err != nil {
			return nil, fmt.Errorf("failed to credit payout: %w", err)
		}
		if err := uow.BetRepository().MarkPaidOut(ctx, bet.ID); err != nil {
			return nil, fmt.Errorf("failed to mark bet paid: %w", err)
		}

		history := &models.BalanceHistory{
			AccountID:       bet.AccountID,
			BalanceBefore:   account.Balance,
			BalanceAfter:    account.Balance.Add(payout),
			ChangeAmount:    payout,
			TransactionType: models.TransactionTypePayout,
			TransactionMetadata: map[string]any{
				"contest_id":  contestID,
				"bet_amount":  bet.Amount.String(),
				"coefficient": bet.Coefficient.String(),
			},
			RelatedID:   &bet.ID,
			RelatedType: relatedTypePtr(models.RelatedTypeBet),
		}
		if err := RecordBalanceChange(ctx, uow, history); err != nil {
			return nil, fmt.Errorf("failed to record payout: %w", err)
		}

		uow.EventBus().Publish(events.BetPaidOutEvent{
			BetID:     bet.ID,
			AccountID: bet.AccountID,
			ContestID: contestID,
			Payout:    payout,
		})

		result.BetsPaid++
		result.TotalPaid = result.TotalPaid.Add(payout)
	}

	uow.EventBus().Publish(events.ContestSettledEvent{
		ContestID: contestID,
		WinnerID:  winnerID,
		BetsPaid:  result.BetsPaid,
		TotalPaid: result.TotalPaid,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.BetsPaidOut.Add(float64(result.BetsPaid))

	log.WithFields(log.Fields{
		"contestID": contestID,
		"betsPaid":  result.BetsPaid,
		"totalPaid": result.TotalPaid.String(),
	}).Info("Contest settled")

	return result, nil
}

// SettleAllDue settles every closed, winner-declared contest that still has
// unpaid winning bets. Used by the periodic sweep; a failure on one contest
// does not block the others.
func (s *settlementService) SettleAllDue(ctx context.Context) ([]*models.SettlementResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	contests, err := uow.ContestRepository().GetSettleable(ctx, time.Now())
	uow.Rollback()
	if err != nil {
		return nil, fmt.Errorf("failed to get settleable contests: %w", err)
	}

	var results []*models.SettlementResult
	var firstErr error
	for _, contest := range contests {
		result, err := s.Settle(ctx, contest.ID)
		if err != nil {
			log.WithError(err).WithField("contestID", contest.ID).Error("Settlement failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, result)
	}
	return results, firstErr
}
