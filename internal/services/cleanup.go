package services

import (
	"context"
	"log/slog"
	"time"

	"thicket/internal/logger"
	"thicket/internal/metrics"
)

// CleanupInactiveUsers deletes accounts older than age that never posted or
// saved anything.
func (s *Service) CleanupInactiveUsers(ctx context.Context, age time.Duration) (int64, error) {
	const op = "services.CleanupInactiveUsers"
	lg := logger.From(ctx).With(slog.String("op", op))

	n, err := s.store.DeleteInactiveUsers(ctx, s.now().Add(-age))
	if err != nil {
		return 0, storeErr(lg, op, err)
	}
	if n > 0 {
		metrics.UsersCleaned.Add(float64(n))
	}
	lg.Info("inactive users removed", slog.Int64("count", n))
	return n, nil
}

// RunCleanup repeats CleanupInactiveUsers every interval until ctx ends.
func (s *Service) RunCleanup(ctx context.Context, age, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// errors are logged by CleanupInactiveUsers
			_, _ = s.CleanupInactiveUsers(ctx, age)
		}
	}
}
