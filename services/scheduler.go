// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartSettlementScheduler sweeps ended challenges every interval, starting
// immediately so a restart settles the backlog. Call Shutdown on the result.
func (s *ChallengeService) StartSettlementScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	if interval <= 0 {
		interval = time.Minute
	}

	sched, err := gocron.NewScheduler(gocron.WithClock(s.Clock))
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			settled, err := s.SettleEnded(ctx)
			if err != nil {
				s.Log.Error("settlement sweep failed", zap.Error(err))
			}
			if settled > 0 {
				s.Log.Info("settlement sweep", zap.Int("settled", settled))
			}
		}),
		gocron.WithName("challenge-settlement"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
