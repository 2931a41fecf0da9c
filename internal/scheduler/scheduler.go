// Package scheduler sends campaigns whose scheduled time has passed.
package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DueSender is satisfied by *service.CampaignService.
type DueSender interface {
	SendDue(ctx context.Context) (int, error)
}

type Scheduler struct {
	sender   DueSender
	interval time.Duration
	clock    clockwork.Clock
	logger   *zap.Logger
}

func New(sender DueSender, interval time.Duration, clock clockwork.Clock, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Scheduler{sender: sender, interval: interval, clock: clock, logger: logger}
}

// Run checks for due campaigns once immediately and then on every tick,
// until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("campaign scheduler started", zap.Duration("interval", s.interval))
	s.tick(ctx)
	for {
		select {
		case <-ticker.Chan():
			s.tick(ctx)
		case <-ctx.Done():
			s.logger.Info("campaign scheduler stopped")
			return nil
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	n, err := s.sender.SendDue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to send due campaigns", zap.Error(err))
		}
		return
	}
	if n > 0 {
		s.logger.Info("sent scheduled campaigns", zap.Int("count", n))
	}
}
