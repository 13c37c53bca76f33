// Package sweeper auto-cancels sessions whose scheduled day has passed
// without both participants locking in.
package sweeper

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/chloekuoi/cowork-connect/internal/metrics"
	"github.com/chloekuoi/cowork-connect/internal/store"
)

// Sweeper runs the stale-session sweep on a cron schedule.
type Sweeper struct {
	db     store.DataStore
	redis  *store.RedisStore
	logger zerolog.Logger
	cron   *cron.Cron
}

// New creates a sweeper. Call Start to begin sweeping.
func New(db store.DataStore, redis *store.RedisStore, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		db:     db,
		redis:  redis,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start registers the sweep on the given cron schedule and runs one
// sweep immediately to catch up after downtime.
func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return err
	}
	s.cron.Start()
	go s.sweep()
	return nil
}

// Stop stops the cron scheduler and waits for a running sweep.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := time.Now().UTC().Format("2006-01-02")
	cancelled, err := s.db.AutoCancelStaleSessions(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("stale session sweep failed")
		return
	}
	if len(cancelled) == 0 {
		return
	}

	for i := range cancelled {
		metrics.SessionTransitions.WithLabelValues("auto_cancelled").Inc()
		_ = s.redis.PublishSessionUpdate(ctx, &cancelled[i])
	}

	s.logger.Info().
		Int("count", len(cancelled)).
		Str("cutoff", cutoff).
		Msg("auto-cancelled stale sessions")
}
