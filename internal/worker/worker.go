package worker

import (
	"context"
	"errors"
	"scrimhub/internal/constants"
	"scrimhub/internal/domain"
	"scrimhub/internal/repository"
	"scrimhub/internal/service"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Sweeper is the background reaper and rating retry loop. Each tick expires
// stale waiting scrims and enqueues finalized ranked scrims whose rating
// pass has not landed yet, typically because telemetry was down when the
// score consensus fired. The semaphore keeps ticks from overlapping when a
// sweep runs longer than the interval.
type Sweeper struct {
	pool      *workerpool.WorkerPool
	scrimRepo *repository.ScrimRepository
	rating    *service.RatingService
	sem       *semaphore.Weighted
	interval  time.Duration
	logger    zerolog.Logger
}

func NewSweeper(pool *workerpool.WorkerPool, scrimRepo *repository.ScrimRepository, rating *service.RatingService, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		pool:      pool,
		scrimRepo: scrimRepo,
		rating:    rating,
		sem:       semaphore.NewWeighted(1),
		interval:  interval,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled, then drains the pool.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			s.pool.StopWait()
			return
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if !s.sem.TryAcquire(1) {
		s.logger.Warn().Msg("skipping sweep, previous one still running")
		return
	}
	defer s.sem.Release(1)

	expired, err := s.scrimRepo.ExpireStale(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to expire stale scrims")
	} else if expired > 0 {
		s.logger.Info().Int("count", expired).Msg("expired stale scrims")
	}

	pending, err := s.scrimRepo.ListUnprocessedRanked(ctx, constants.ActiveScrimLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list unprocessed ranked scrims")
		return
	}

	for _, scrim := range pending {
		scrimID := scrim.ID
		s.pool.Submit(func() {
			// Processing is idempotent, so racing a concurrent manual
			// trigger just makes one of them a no-op.
			err := s.rating.ProcessRankedScrim(ctx, scrimID)
			switch {
			case err == nil:
				s.logger.Info().Str("scrim_id", scrimID).Msg("ratings processed by sweeper")
			case errors.Is(err, domain.ErrAlreadyProcessed), errors.Is(err, domain.ErrNoMatchedPlayers):
				s.logger.Debug().Err(err).Str("scrim_id", scrimID).Msg("rating sweep skipped scrim")
			default:
				s.logger.Warn().Err(err).Str("scrim_id", scrimID).Msg("rating sweep failed, will retry")
			}
		})
	}
}
