package election

import (
	"context"
	"log/slog"
	"time"

	"campusvote/internal/platform/metrics"
)

// Sweeper periodically ends RUNNING elections whose deadline has passed.
// It races benignly with the defensive check in ballot admission: both
// apply the same idempotent transition.
type Sweeper struct {
	service  *Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	interval time.Duration
}

func NewSweeper(service *Service, logger *slog.Logger, m *metrics.Metrics, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{service: service, logger: logger, metrics: m, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "election auto-close sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	ended, err := s.service.EndExpired(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "auto-close sweep failed", "error", err)
		return
	}
	if ended > 0 && s.metrics != nil {
		s.metrics.ElectionsAutoEnded.Add(float64(ended))
	}
}
