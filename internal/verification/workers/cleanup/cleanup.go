package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultIdleTTL is how long a scan session may go without a submission before
// it is closed and its camera released.
const DefaultIdleTTL = 15 * time.Minute

// SessionCloser exposes cleanup for idle scan sessions.
type SessionCloser interface {
	CloseIdle(ctx context.Context, cutoff time.Time) (int, error)
}

// CleanupResult summarizes the work performed by a cleanup run.
type CleanupResult struct {
	ClosedSessions int
}

// CleanupService periodically closes idle scan sessions.
type CleanupService struct {
	sessions SessionCloser
	idleTTL  time.Duration
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to compute the idle cutoff.
func WithClock(now func() time.Time) CleanupOption {
	return func(s *CleanupService) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a CleanupService. Non-positive idleTTL uses DefaultIdleTTL.
func New(sessions SessionCloser, idleTTL time.Duration, opts ...CleanupOption) (*CleanupService, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session closer is required")
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	svc := &CleanupService{
		sessions: sessions,
		idleTTL:  idleTTL,
		interval: time.Minute,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "scan session cleanup failed", "error", err)
			}
			if res.ClosedSessions > 0 {
				s.logger.InfoContext(ctx, "closed idle scan sessions", "count", res.ClosedSessions)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce closes every session idle for longer than the configured TTL.
// Sessions that were closed are counted even when releasing their camera failed.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	cutoff := s.now().Add(-s.idleTTL)
	closed, err := s.sessions.CloseIdle(ctx, cutoff)
	if err != nil {
		return CleanupResult{ClosedSessions: closed}, fmt.Errorf("close idle scan sessions: %w", err)
	}
	return CleanupResult{ClosedSessions: closed}, nil
}
