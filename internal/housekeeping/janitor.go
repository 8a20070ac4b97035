// Package housekeeping runs periodic maintenance jobs against the game store.
package housekeeping

import (
	"context"
	"fmt"
	"time"

	"drawphone/internal/game"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepTimeout = 5 * time.Minute

type sweeper interface {
	Sweep(ctx context.Context, now time.Time, policy game.SweepPolicy) (game.SweepReport, error)
}

// Janitor archives idle games and purges old archived ones on a cron
// schedule.
type Janitor struct {
	cron   *cron.Cron
	svc    sweeper
	policy game.SweepPolicy
	logger *zap.Logger
	now    func() time.Time
}

func New(svc sweeper, schedule string, policy game.SweepPolicy, logger *zap.Logger) (*Janitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &Janitor{
		cron:   cron.New(),
		svc:    svc,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("housekeeping started",
		zap.Duration("idle_after", j.policy.IdleAfter),
		zap.Duration("purge_archived", j.policy.PurgeArchived),
	)
}

// Stop waits for a running sweep to finish or ctx to expire.
func (j *Janitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
		j.logger.Warn("housekeeping stop timed out")
	}
}

func (j *Janitor) RunOnce(ctx context.Context) (game.SweepReport, error) {
	j.logger.Info("sweeping idle games")
	report, err := j.svc.Sweep(ctx, j.now().UTC(), j.policy)
	if err != nil {
		j.logger.Error("sweep failed", zap.Error(err),
			zap.Int("archived", report.Archived),
			zap.Int("purged", report.Purged),
		)
		return report, err
	}
	j.logger.Info("sweep finished", zap.Int("archived", report.Archived), zap.Int("purged", report.Purged))
	return report, nil
}
