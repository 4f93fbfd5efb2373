package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper is the maintenance surface of the persistence layer.
type Sweeper interface {
	DeleteOrphanInvites(ctx context.Context) (int64, error)
	DeleteOrphanGrants(ctx context.Context) (int64, error)
	TrimAudit(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs periodic access-control maintenance: invites and grants
// that reference deleted projects are swept out, and audit rows past
// retention are trimmed.
type Scheduler struct {
	cron      *cron.Cron
	sweeper   Sweeper
	retention time.Duration
	log       zerolog.Logger
}

func NewScheduler(sweeper Sweeper, retention time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		sweeper:   sweeper,
		retention: retention,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.sweepOrphans); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 30 3 * * *", s.trimAudit); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish, up to a small grace period.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) sweepOrphans() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	invites, err := s.sweeper.DeleteOrphanInvites(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("orphan invite sweep failed")
	}
	grants, err := s.sweeper.DeleteOrphanGrants(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("orphan grant sweep failed")
	}

	s.log.Info().Int64("invites", invites).Int64("grants", grants).Msg("orphan sweep done")
}

func (s *Scheduler) trimAudit() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	trimmed, err := s.sweeper.TrimAudit(ctx, time.Now().Add(-s.retention))
	if err != nil {
		s.log.Error().Err(err).Msg("audit trim failed")
		return
	}
	s.log.Info().Int64("entries", trimmed).Msg("audit trimmed")
}
