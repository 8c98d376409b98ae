package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/eventbus"
	"github.com/riskops/backend/repository"
)

// ReviewSweeper periodically scans for risks whose review date has passed and
// publishes a review-overdue event for each. It never mutates the risks; acting
// on the overdue signal is a subscriber concern.
type ReviewSweeper struct {
	risks    repository.RiskRepository
	bus      *eventbus.Bus
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewReviewSweeper builds a sweeper with the given cron schedule.
func NewReviewSweeper(risks repository.RiskRepository, bus *eventbus.Bus, schedule string, logger *zap.Logger) *ReviewSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewSweeper{
		risks:    risks,
		bus:      bus,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start registers the schedule and begins sweeping.
func (s *ReviewSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("review sweeper started", zap.String("schedule", s.schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight sweep to finish.
func (s *ReviewSweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs one pass immediately, outside the schedule.
func (s *ReviewSweeper) Sweep(ctx context.Context) (int, error) {
	overdue, err := s.risks.FindOverdueReviews(ctx)
	if err != nil {
		return 0, err
	}

	for _, risk := range overdue {
		reviewDate := risk.ReviewDate()
		if reviewDate == nil {
			continue
		}
		event := domain.NewEvent(domain.EventRiskReviewOverdue, risk.RiskID(), domain.RiskReviewOverduePayload{
			RiskID:     risk.RiskID(),
			Title:      risk.Title(),
			Level:      string(risk.Score().Level()),
			ReviewDate: *reviewDate,
		})
		s.bus.Publish(ctx, event)
	}
	return len(overdue), nil
}

func (s *ReviewSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := s.Sweep(ctx)
	if err != nil {
		s.logger.Error("review sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("review sweep completed", zap.Int("overdue", count))
}
