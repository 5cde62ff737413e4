package ledger

import (
	"context"
	"log/slog"

	"sapp/internal/credential/models"
	id "sapp/pkg/domain"
	"sapp/pkg/platform/circuit"
)

// FallbackRecorder counts operations served by the fallback store.
type FallbackRecorder interface {
	IncrementLedgerFallbacks()
}

// ResilientStore wraps a shared primary store (Redis) with a circuit breaker.
// Writes the primary rejects land in the local fallback so a scan result is
// never lost; while the circuit is open, reads come from the fallback.
type ResilientStore struct {
	primary  Store
	fallback Store
	cb       *circuit.Breaker
	logger   *slog.Logger
	metrics  FallbackRecorder
}

// ResilientOption configures a ResilientStore.
type ResilientOption func(*ResilientStore)

func WithBreaker(cb *circuit.Breaker) ResilientOption {
	return func(s *ResilientStore) {
		if cb != nil {
			s.cb = cb
		}
	}
}

func WithFallbackMetrics(m FallbackRecorder) ResilientOption {
	return func(s *ResilientStore) {
		s.metrics = m
	}
}

func NewResilientStore(primary, fallback Store, logger *slog.Logger, opts ...ResilientOption) *ResilientStore {
	s := &ResilientStore{
		primary:  primary,
		fallback: fallback,
		cb:       circuit.New("ledger_store"),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ResilientStore) Append(ctx context.Context, session id.ScanSessionID, result models.ScanResult) error {
	if err := s.primary.Append(ctx, session, result); err != nil {
		s.recordFailure(ctx, "append", err)
		return s.fallback.Append(ctx, session, result)
	}

	if usePrimary := s.recordSuccess(ctx); !usePrimary {
		// Reads still come from the fallback until the circuit closes.
		return s.fallback.Append(ctx, session, result)
	}
	return nil
}

func (s *ResilientStore) List(ctx context.Context, session id.ScanSessionID) ([]models.ScanResult, error) {
	if s.cb.IsOpen() {
		s.countFallback()
		return s.fallback.List(ctx, session)
	}

	results, err := s.primary.List(ctx, session)
	if err != nil {
		s.recordFailure(ctx, "list", err)
		return s.fallback.List(ctx, session)
	}
	s.recordSuccess(ctx)
	return results, nil
}

func (s *ResilientStore) Discard(ctx context.Context, session id.ScanSessionID) error {
	if err := s.fallback.Discard(ctx, session); err != nil {
		return err
	}
	if err := s.primary.Discard(ctx, session); err != nil {
		s.recordFailure(ctx, "discard", err)
		return err
	}
	s.recordSuccess(ctx)
	return nil
}

// State reports the breaker state.
func (s *ResilientStore) State() circuit.State {
	return s.cb.State()
}

func (s *ResilientStore) recordFailure(ctx context.Context, op string, err error) {
	_, change := s.cb.RecordFailure()
	if change.Opened {
		s.logger.ErrorContext(ctx, "circuit breaker opened",
			"circuit", s.cb.Name(),
			"error", err,
		)
	}
	s.logger.WarnContext(ctx, "ledger store failed, using fallback",
		"circuit", s.cb.Name(),
		"operation", op,
		"error", err,
	)
	s.countFallback()
}

func (s *ResilientStore) recordSuccess(ctx context.Context) bool {
	usePrimary, change := s.cb.RecordSuccess()
	if change.Closed {
		s.logger.InfoContext(ctx, "circuit breaker closed",
			"circuit", s.cb.Name(),
		)
	}
	return usePrimary
}

func (s *ResilientStore) countFallback() {
	if s.metrics != nil {
		s.metrics.IncrementLedgerFallbacks()
	}
}
