package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"contestbet/config"
	"contestbet/events"
	"contestbet/metrics"
	"contestbet/models"
)

// CoefficientCache caches display coefficients. Implemented by the Redis
// odds cache; a nil cache disables caching.
type CoefficientCache interface {
	Get(ctx context.Context, contestID, candidateID int64) (decimal.Decimal, bool, error)
	Set(ctx context.Context, contestID, candidateID int64, coefficient decimal.Decimal) error
	Invalidate(ctx context.Context, contestID, candidateID int64) error
}

type bettingService struct {
	uowFactory UnitOfWorkFactory
	cfg        *config.Config
	odds       OddsParams
	cache      CoefficientCache
}

// NewBettingService creates a new betting service. cache may be nil.
func NewBettingService(uowFactory UnitOfWorkFactory, cfg *config.Config, cache CoefficientCache) BettingService {
	return &bettingService{
		uowFactory: uowFactory,
		cfg:        cfg,
		odds:       OddsParamsFromConfig(cfg),
		cache:      cache,
	}
}

// PlaceBet places a bet in one atomic transaction: the account row lock
// serializes concurrent bets by the same account, the coefficient is
// recomputed against the live pool inside the same transaction, and the
// debit plus bet insert commit together or not at all.
//
// Bets by different accounts on the same candidate may interleave their
// pool-sum reads; odds are best-effort consistent across accounts. This is
// a deliberate trade-off against serializing every bet on a contest.
func (s *bettingService) PlaceBet(ctx context.Context, accountID, candidateID, contestID int64, rawAmount string) (*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	// Precondition order matters: contest state first, then amount syntax,
	// then limit, then membership, then funds. First failure wins.
	contest, err := uow.ContestRepository().GetByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	if contest == nil {
		s.rejected(CodeNoActiveContest)
		return nil, errNoActiveContest()
	}
	if !contest.IsOpen(time.Now()) {
		s.rejected(CodeContestClosed)
		return nil, errContestClosed()
	}

	amount, err := models.ParseAmount(rawAmount)
	if err != nil {
		s.rejected(CodeInvalidAmount)
		return nil, errInvalidAmount()
	}

	if amount.GreaterThan(s.cfg.BetLimit) {
		s.rejected(CodeLimitExceeded)
		return nil, errLimitExceeded(s.cfg.BetLimit)
	}

	if !contest.HasParticipant(candidateID) {
		s.rejected(CodeCandidateNotInContest)
		return nil, errCandidateNotInContest()
	}

	// Exclusive row lock: held until commit/rollback, serializing all
	// balance mutations of this account.
	account, err := uow.AccountRepository().GetByIDForUpdate(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %d not found", accountID)
	}
	if account.Balance.LessThan(amount) {
		s.rejected(CodeInsufficientFunds)
		return nil, errInsufficientFunds(account.Balance, amount)
	}

	poolTotal, candidateTotal, err := uow.BetRepository().PoolTotals(ctx, contestID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to read pool totals: %w", err)
	}
	coefficient := ComputeCoefficient(poolTotal, candidateTotal, s.odds)

	bet := &models.Bet{
		AccountID:   accountID,
		CandidateID: candidateID,
		ContestID:   &contestID,
		Amount:      amount,
		Coefficient: coefficient,
	}
	if err := uow.BetRepository().Create(ctx, bet); err != nil {
		return nil, fmt.Errorf("failed to create bet record: %w", err)
	}

	if err := uow.AccountRepository().DeductBalance(ctx, accountID, amount); err != nil {
		return nil, fmt.Errorf("failed to deduct bet amount: %w", err)
	}

	history := &models.BalanceHistory{
		AccountID:       accountID,
		BalanceBefore:   account.Balance,
		BalanceAfter:    account.Balance.Sub(amount),
		ChangeAmount:    amount.Neg(),
		TransactionType: models.TransactionTypeBetPlace,
		TransactionMetadata: map[string]any{
			"candidate_id": candidateID,
			"contest_id":   contestID,
			"coefficient":  coefficient.String(),
		},
		RelatedID:   &bet.ID,
		RelatedType: relatedTypePtr(models.RelatedTypeBet),
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	uow.EventBus().Publish(events.BetPlacedEvent{
		BetID:       bet.ID,
		AccountID:   accountID,
		CandidateID: candidateID,
		ContestID:   contestID,
		Amount:      amount,
		Coefficient: coefficient,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.BetsPlaced.Inc()

	// The pool moved, so the cached display coefficient is stale.
	// Best effort: the cache TTL bounds staleness anyway.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, contestID, candidateID); err != nil {
			log.WithError(err).Warn("Failed to invalidate coefficient cache")
		}
	}

	return bet, nil
}

// CurrentCoefficient computes the coefficient a bet would currently get.
// Lock-free advisory read: the value may be stale by the time the bet is
// placed, which is why PlaceBet recomputes it inside the transaction.
func (s *bettingService) CurrentCoefficient(ctx context.Context, contestID, candidateID int64) (decimal.Decimal, error) {
	if s.cache != nil {
		coefficient, ok, err := s.cache.Get(ctx, contestID, candidateID)
		if err != nil {
			log.WithError(err).Warn("Coefficient cache read failed")
		} else if ok {
			return coefficient, nil
		}
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	poolTotal, candidateTotal, err := uow.BetRepository().PoolTotals(ctx, contestID, candidateID)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to read pool totals: %w", err)
	}
	coefficient := ComputeCoefficient(poolTotal, candidateTotal, s.odds)

	if s.cache != nil {
		if err := s.cache.Set(ctx, contestID, candidateID, coefficient); err != nil {
			log.WithError(err).Warn("Coefficient cache write failed")
		}
	}

	return coefficient, nil
}

// GetBetHistory returns an account's bets for display
func (s *bettingService) GetBetHistory(ctx context.Context, accountID int64, limit int) ([]*models.Bet, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	bets, err := uow.BetRepository().GetByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get bets: %w", err)
	}
	return bets, nil
}

func (s *bettingService) rejected(code BetErrorCode) {
	metrics.BetsRejected.WithLabelValues(string(code)).Inc()
}
