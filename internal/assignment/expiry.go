package assignment

import (
	"context"
	"log/slog"
	"time"

	"github.com/erazemk/depot/internal/store"
)

// ExpirePending clears requests that have waited longer than ttl and
// returns how many were cleared. A non-positive ttl disables expiry.
func (s *Service) ExpirePending(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}
	n, err := store.ExpirePendingAssignments(ctx, s.DB, s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("expired pending assignments", "count", n, "ttl", ttl)
	}
	return n, nil
}

// RunExpiry calls ExpirePending every interval until ctx is done.
func (s *Service) RunExpiry(ctx context.Context, ttl, every time.Duration) {
	if ttl <= 0 || every <= 0 {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpirePending(ctx, ttl); err != nil && ctx.Err() == nil {
				slog.Error("failed to expire pending assignments", "error", err)
			}
		}
	}
}
