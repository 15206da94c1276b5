package service

import (
	"context"
	"time"

	"github.com/yakoovad/team-roster/internal/repository"
	"github.com/yakoovad/team-roster/pkg/logger"
	"go.uber.org/zap"
)

// RunSessionSweeper drops idle sessions every interval until ctx is done.
func RunSessionSweeper(ctx context.Context, sessions repository.SessionRepository, interval, idleFor time.Duration) {
	l := logger.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sessions.Sweep(ctx, idleFor)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.Error("failed to sweep sessions", zap.Error(err))
				continue
			}
			if removed > 0 {
				l.Info("idle sessions removed", zap.Int("removed", removed), zap.Int("remaining", sessions.Len(ctx)))
			}
		}
	}
}
