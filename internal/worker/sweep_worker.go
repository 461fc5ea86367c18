package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/integrity"
	"github.com/stemsi/exam-portal/internal/service"
)

// Sweeper is implemented by service.SweeperService.
type Sweeper interface {
	Sweep(ctx context.Context) (integrity.Repair, error)
}

// SweepWorker runs the integrity sweep on a fixed interval.
type SweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewSweepWorker(sweeper Sweeper, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("component", "sweep_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop
// ----------------------------------------------------------------

// Start sweeps once immediately, then every interval until ctx is done.
// A non-positive interval disables the worker.
func (w *SweepWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info().Msg("SweepWorker disabled")
		return
	}
	w.log.Info().Dur("interval", w.interval).Msg("SweepWorker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.runOnce(ctx)

		select {
		case <-ctx.Done():
			w.log.Info().Msg("SweepWorker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	start := time.Now()
	rep, err := w.sweeper.Sweep(ctx)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrSweepInProgress):
		// Another instance holds the lock.
		w.log.Debug().Msg("Sweep skipped, already running elsewhere")
		return
	case ctx.Err() != nil:
		return
	default:
		w.log.Error().Err(err).Msg("Scheduled sweep failed")
		return
	}

	if rep.Empty() {
		w.log.Debug().Dur("took", time.Since(start)).Msg("Sweep found nothing to repair")
		return
	}
	w.log.Info().
		Int("attempts_deleted", len(rep.AttemptsToDelete)).
		Int("answers_deleted", len(rep.AnswersToDelete)).
		Int("scores_updated", len(rep.ScoreUpdates)).
		Dur("took", time.Since(start)).
		Msg("Scheduled sweep repaired data")
}
