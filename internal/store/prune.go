package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// HistoryRetention is the longest any freshness window looks back; rows
// older than this can never be consulted again.
const HistoryRetention = 30 * 24 * time.Hour

// defaultPruneSchedule runs the retention sweep nightly at 04:00.
const defaultPruneSchedule = "0 4 * * *"

// StartPruner runs the retention sweep whenever the cron expression is due,
// checking once a minute, until ctx is cancelled. Blocks; run in a goroutine.
func (s *Store) StartPruner(ctx context.Context, schedule string) {
	if schedule == "" {
		schedule = defaultPruneSchedule
	}
	gron := gronx.New()
	if !gron.IsValid(schedule) {
		slog.Error("invalid prune schedule, pruner disabled", "schedule", schedule)
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			due, err := gron.IsDue(schedule, time.Now())
			if err != nil || !due {
				continue
			}
			n, err := s.PruneHistory(ctx, time.Now().Add(-HistoryRetention))
			if err != nil {
				slog.Warn("history prune failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("history pruned", "rows", n)
			}
		}
	}
}
