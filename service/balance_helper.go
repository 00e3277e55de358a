package service

import (
	"context"
	"fmt"

	"contestbet/events"
	"contestbet/models"
)

// RecordBalanceChange records a balance history entry and emits the balance
// change event. This is the single entry point for all balance changes;
// the event is flushed only after the transaction commits.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountID:       history.AccountID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		ChangeAmount:    history.ChangeAmount,
		TransactionType: history.TransactionType,
	})

	return nil
}

func relatedTypePtr(t models.RelatedType) *models.RelatedType {
	return &t
}
