package core

// scheduler.go runs background maintenance for the service.
//
// Currently it evicts expired workspaces so that uploaded bytes do not stay
// in memory after their TTL even when nobody touches them again.

import (
	"context"
	"log/slog"
	"time"
)

// StartWorkspaceSweeper evicts expired workspaces every interval until ctx
// is cancelled. It runs once immediately on start.
func (s *Service) StartWorkspaceSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("workspace sweeper started", "interval", interval)

	s.sweepWorkspaces()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("workspace sweeper stopped")
			return
		case <-ticker.C:
			s.sweepWorkspaces()
		}
	}
}

// sweepWorkspaces performs one eviction pass.
func (s *Service) sweepWorkspaces() {
	start := time.Now()
	evicted := s.workspaces.EvictExpired()
	s.observer.WorkspacesEvicted(evicted)

	if evicted > 0 {
		slog.Info("evicted expired workspaces",
			"evicted", evicted,
			"remaining", s.workspaces.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Debug("workspace sweep found nothing to evict", "remaining", s.workspaces.Len())
}
