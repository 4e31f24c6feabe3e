package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// ExpirySweeper periodically expires listings whose time has passed
type ExpirySweeper struct {
	listings      ListingStore
	interval      time.Duration
	retryInterval time.Duration
	now           func() time.Time
}

// NewExpirySweeper creates a sweeper that runs every interval and retries
// after retryInterval when a sweep fails.
func NewExpirySweeper(listings ListingStore, interval, retryInterval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if retryInterval <= 0 || retryInterval > interval {
		retryInterval = interval / 12
	}
	return &ExpirySweeper{
		listings:      listings,
		interval:      interval,
		retryInterval: retryInterval,
		now:           time.Now,
	}
}

// SetClock replaces the time source used to decide expiry
func (s *ExpirySweeper) SetClock(now func() time.Time) {
	s.now = now
}

// Sweep expires every available listing past its expiry time
func (s *ExpirySweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.listings.ExpireBefore(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to expire listings: %w", err)
	}
	return n, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled
func (s *ExpirySweeper) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	log.Info().Dur("interval", s.interval).Msg("Expiry sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Expiry sweeper stopped")
			return
		case <-timer.C:
		}

		n, err := s.Sweep(ctx)
		if err != nil {
			log.Error().Err(err).Dur("retry_in", s.retryInterval).Msg("Expiry sweep failed")
			timer.Reset(s.retryInterval)
			continue
		}
		if n > 0 {
			log.Info().Int64("expired", n).Msg("Listings expired")
		}
		timer.Reset(s.interval)
	}
}
