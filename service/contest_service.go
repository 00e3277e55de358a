package service

import (
	"context"
	"fmt"
	"time"

	"contestbet/models"
)

type contestService struct {
	uowFactory UnitOfWorkFactory
}

// NewContestService creates a new contest service
func NewContestService(uowFactory UnitOfWorkFactory) ContestService {
	return &contestService{
		uowFactory: uowFactory,
	}
}

// GetContest retrieves a contest by ID
func (s *contestService) GetContest(ctx context.Context, contestID int64) (*models.Contest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contest, err := uow.ContestRepository().GetByID(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	return contest, nil
}

// GetCurrentContest resolves the current contest: the open contest with the
// latest ends_at. This policy lives here, in the delivery-facing read path;
// the betting and settlement engines always take an explicit contest ID so
// overlapping contests stay possible.
func (s *contestService) GetCurrentContest(ctx context.Context) (*models.Contest, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	contest, err := uow.ContestRepository().GetCurrent(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to get current contest: %w", err)
	}
	return contest, nil
}

// GetCandidates returns all candidates for display
func (s *contestService) GetCandidates(ctx context.Context) ([]*models.Candidate, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	candidates, err := uow.CandidateRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates: %w", err)
	}
	return candidates, nil
}
