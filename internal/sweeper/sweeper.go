// Package sweeper periodically flips lapsed ACTIVE invitations to EXPIRED so
// listings and dashboards read consistently. It is a read-path convenience:
// admission re-derives expiry on its own and never depends on sweep cadence.
package sweeper

import (
	"context"
	"time"

	"github.com/eventra/eventra-api/internal/repository"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Sweeper struct {
	invitations repository.InvitationRepository
	interval    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

func New(invitations repository.InvitationRepository, interval time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		invitations: invitations,
		interval:    interval,
		logger:      logger.With().Str("component", "expiry_sweeper").Logger(),
		now:         time.Now,
	}
}

// Start runs the sweep loop until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("expiry sweeper started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				// Log and keep ticking; the next pass retries.
				s.logger.Error().Err(err).Msg("sweep failed")
			}
		}
	}
}

// Sweep performs a single expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	flipped, err := s.invitations.ExpireStale(ctx, s.now())
	if err != nil {
		return errors.Wrap(err, "expire stale invitations")
	}
	if flipped > 0 {
		s.logger.Info().Int64("expired", flipped).Msg("invitations expired")
	}
	return nil
}
