package scheduler

import (
	"context"
	"time"

	"converzia_backend/platform/logger"
)

const (
	defaultReactivationSweepInterval = time.Hour
	defaultReactivationAfter         = 7 * 24 * time.Hour
	reactivationBatchSize            = 100
)

// CoolingReactivator reactivates COOLING lead offers idle since before cutoff.
type CoolingReactivator interface {
	ReactivateCooling(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ReactivationSweep periodically reopens lead offers that have been cooling
// for longer than the reactivation delay.
type ReactivationSweep struct {
	qual     CoolingReactivator
	log      *logger.Logger
	interval time.Duration
	after    time.Duration
	now      func() time.Time
}

func NewReactivationSweep(qual CoolingReactivator, log *logger.Logger, interval, after time.Duration) *ReactivationSweep {
	if interval <= 0 {
		interval = defaultReactivationSweepInterval
	}
	if after <= 0 {
		after = defaultReactivationAfter
	}
	return &ReactivationSweep{
		qual:     qual,
		log:      log,
		interval: interval,
		after:    after,
		now:      time.Now,
	}
}

func (s *ReactivationSweep) Run(ctx context.Context) {
	if s == nil || s.qual == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep drains due lead offers in batches until a batch comes back short.
func (s *ReactivationSweep) sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.after)
	total := 0
	for ctx.Err() == nil {
		n, err := s.qual.ReactivateCooling(ctx, cutoff, reactivationBatchSize)
		total += n
		if err != nil {
			s.log.Warn("reactivation sweep failed", "error", err)
			break
		}
		if n < reactivationBatchSize {
			break
		}
	}
	if total > 0 {
		s.log.Info("reactivation sweep reopened lead offers", "reactivated", total)
	}
	return total
}
