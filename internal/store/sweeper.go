package store

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Sweeper periodically drops records that outlived the retention window.
// It is owned by the MemoryStore: started in NewMemoryStore, stopped by Close.
type Sweeper struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

func startSweeper(s *MemoryStore, interval, retention time.Duration, logger *zap.Logger) (*Sweeper, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed := s.Sweep(s.clock.Now(), retention)
			if removed > 0 {
				logger.Info("swept stale records", zap.Int("removed", removed))
			} else {
				logger.Debug("sweep found nothing to remove")
			}
		}),
		gocron.WithName("record-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}

	scheduler.Start()
	logger.Debug("sweeper started", zap.Duration("interval", interval), zap.Duration("retention", retention))
	return &Sweeper{scheduler: scheduler, logger: logger}, nil
}

// Stop shuts the scheduler down and waits for a running sweep to finish.
func (sw *Sweeper) Stop() error {
	sw.logger.Debug("sweeper stopping")
	return sw.scheduler.Shutdown()
}
