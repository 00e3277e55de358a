package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"contestbet/service"
)

// Scheduler runs the periodic settlement sweep. The sweep converges with
// explicit settle calls: whoever runs first pays, the other finds nothing.
type Scheduler struct {
	cron       *cron.Cron
	settlement service.SettlementService
	sweepSpec  string
}

// NewScheduler creates a scheduler that sweeps due contests on the given
// cron spec
func NewScheduler(settlement service.SettlementService, sweepSpec string) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		settlement: settlement,
		sweepSpec:  sweepSpec,
	}
}

// Start registers the sweep job and begins the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.sweepSpec, func() {
		results, err := s.settlement.SettleAllDue(ctx)
		if err != nil {
			log.WithError(err).Error("Settlement sweep failed")
			return
		}
		for _, result := range results {
			log.WithFields(log.Fields{
				"contest_id": result.ContestID,
				"bets_paid":  result.BetsPaid,
				"total_paid": result.TotalPaid.StringFixed(2),
			}).Info("Settlement sweep paid out contest")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.WithField("spec", s.sweepSpec).Info("Settlement sweep scheduled")
	return nil
}

// Stop halts the cron loop, waiting for a running sweep to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
