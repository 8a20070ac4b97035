package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// SweepPolicy bounds how long games linger. Zero disables a step.
type SweepPolicy struct {
	IdleAfter     time.Duration
	PurgeArchived time.Duration
}

type SweepReport struct {
	Archived int
	Purged   int
}

// Sweep archives games untouched for IdleAfter and deletes archived games
// untouched for PurgeArchived. Each game is re-checked inside its own
// transaction, so a game that saw activity meanwhile is left alone.
func (s *Service) Sweep(ctx context.Context, now time.Time, policy SweepPolicy) (SweepReport, error) {
	var report SweepReport
	games, err := s.store.ListGames(ctx)
	if err != nil {
		return report, err
	}
	var errs []error
	for _, listed := range games {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		idle := now.Sub(listed.UpdatedAt)
		switch {
		case listed.Status == StatusArchived && policy.PurgeArchived > 0 && idle > policy.PurgeArchived:
			if err := s.store.DeleteGame(ctx, listed.Code); err != nil && !errors.Is(err, ErrGameNotFound) {
				errs = append(errs, err)
				continue
			}
			report.Purged++
		case listed.Status != StatusArchived && policy.IdleAfter > 0 && idle > policy.IdleAfter:
			archived := false
			err := s.update(ctx, listed.Code, func(tx Tx, emit func(Event)) error {
				game := tx.Game()
				if game.Status == StatusArchived || now.Sub(game.UpdatedAt) <= policy.IdleAfter {
					return nil
				}
				game.Status = StatusArchived
				if err := tx.SaveGame(); err != nil {
					return err
				}
				archived = true
				emit(GameEnded{})
				return nil
			})
			if err != nil && !errors.Is(err, ErrGameNotFound) {
				errs = append(errs, err)
				continue
			}
			if archived {
				report.Archived++
			}
		}
	}
	if report.Archived > 0 || report.Purged > 0 {
		s.logger.Info("sweep finished", zap.Int("archived", report.Archived), zap.Int("purged", report.Purged))
	}
	return report, errors.Join(errs...)
}
