package ledger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"solana-kalshi-copier/internal/domain"
)

// InterruptedMessage is recorded on entries the sweeper resolves.
const InterruptedMessage = "processing interrupted"

// SweepStale resolves pending entries older than maxAge to failed, so a crash between
// reservation and the terminal write never leaves an entry pending forever.
// It returns the number of entries resolved.
func (l *Ledger) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := l.now().Add(-maxAge).UnixMilli()
	stale, err := l.store.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return 0, domain.Persistence("list pending", err)
	}

	resolved := 0
	for _, e := range stale {
		_, err := l.Resolve(ctx, e.Follower, e.ID, domain.Resolution{
			Status: domain.LedgerStatusFailed,
			Error:  InterruptedMessage,
		})
		if errors.Is(err, domain.ErrNotFound) {
			continue // resolved concurrently
		}
		if err != nil {
			return resolved, err
		}
		resolved++
		l.logger.Warn("stale pending entry resolved",
			zap.String("follower", e.Follower),
			zap.String("id", e.ID),
			zap.Int64("created_at", e.CreatedAt),
		)
	}
	return resolved, nil
}
