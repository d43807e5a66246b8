package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krshsl/praxis/coach/models"
	"github.com/krshsl/praxis/coach/repository"
	"github.com/krshsl/praxis/coach/telemetry"
)

const (
	DefaultIdleTimeout   = 30 * time.Minute
	DefaultSweepInterval = time.Minute
)

// SessionSweeper abandons sessions that saw no activity for the idle timeout.
// It is the only path into the abandoned state.
type SessionSweeper struct {
	store       repository.Store
	idleTimeout time.Duration
	interval    time.Duration
	metrics     *telemetry.Manager
	now         func() time.Time
}

func NewSessionSweeper(store repository.Store, idleTimeout, interval time.Duration, metrics *telemetry.Manager) *SessionSweeper {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &SessionSweeper{
		store:       store,
		idleTimeout: idleTimeout,
		interval:    interval,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Run sweeps on every tick until ctx is done.
func (s *SessionSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Session sweeper started", "idle_timeout", s.idleTimeout, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				slog.Error("Session sweep failed", "error", err)
			}
		}
	}
}

// Sweep abandons every idle active session once and returns how many moved.
// A session touched or ended between listing and update is left alone.
func (s *SessionSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	idleBefore := now.Add(-s.idleTimeout)

	idle, err := s.store.ListIdleSessions(ctx, idleBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to list idle sessions: %w", err)
	}

	abandoned := 0
	for _, session := range idle {
		ok, err := s.store.AbandonSession(ctx, session.ID, idleBefore, now)
		if err != nil {
			slog.Error("Failed to abandon session", "session_id", session.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		abandoned++
		s.metrics.RecordSessionTransition(models.SessionAbandoned)
		slog.Info("Session abandoned after inactivity",
			"session_id", session.ID,
			"interview_id", session.InterviewID,
			"inactive_duration", now.Sub(session.LastActivityAt))
	}

	s.metrics.RecordSessionsAbandoned(abandoned)
	return abandoned, nil
}
