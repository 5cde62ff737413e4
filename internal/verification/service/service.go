package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	credmodels "sapp/internal/credential/models"
	"sapp/internal/ledger"
	"sapp/internal/platform/tracer"
	"sapp/internal/scan"
	"sapp/internal/verification/models"
	id "sapp/pkg/domain"
	dErrors "sapp/pkg/domain-errors"
	"sapp/pkg/platform/audit"
	"sapp/pkg/platform/sentinel"
	platformsync "sapp/pkg/platform/sync"
	"sapp/pkg/requestcontext"
)

// Auditor records verification events.
type Auditor interface {
	Log(ctx context.Context, event audit.AuditEvent, attributes ...any)
}

// Metrics counts scan outcomes and session lifecycle.
type Metrics interface {
	IncrementScan(verdict string)
	IncrementCameraFailure(kind string)
	IncrementFramesDropped()
	IncrementLedgerAppends()
	SetActiveScanSessions(n int)
	AddExpiredSessions(n int)
}

// Option configures the verification service.
type Option func(*Service)

func WithAuditor(auditor Auditor) Option {
	return func(s *Service) {
		s.auditor = auditor
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// entry is a registered scan session and its bookkeeping.
type entry struct {
	session   *scan.Session
	createdAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
}

func (e *entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()
}

func (e *entry) seen() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeen
}

// Service hosts scan sessions for remote scanning devices and keeps each
// session's verification history.
type Service struct {
	decoder   scan.FrameDecoder
	validator scan.Validator
	ledgers   ledger.Store
	auditor   Auditor
	metrics   Metrics
	tracer    tracer.Tracer
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[id.ScanSessionID]*entry

	// Serializes history writes against session teardown.
	sessionLocks *platformsync.ShardedMutex
}

// NewService creates a verification service.
func NewService(decoder scan.FrameDecoder, validator scan.Validator, ledgers ledger.Store, opts ...Option) *Service {
	svc := &Service{
		decoder:      decoder,
		validator:    validator,
		ledgers:      ledgers,
		tracer:       tracer.NewNoop(),
		logger:       slog.Default(),
		sessions:     make(map[id.ScanSessionID]*entry),
		sessionLocks: platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Start opens a scan session. cameraErr is the failure the scanning device
// reported when it tried to open its camera, or empty. A failed camera still
// registers the session, in the Failed state, so the device can show the
// message and close it.
func (s *Service) Start(ctx context.Context, cameraErr scan.CameraErrorKind) (*models.SessionView, error) {
	sessionID := id.NewScanSessionID()
	now := requestcontext.Now(ctx)

	ctx, span := s.tracer.Start(ctx, tracer.SpanScanStart,
		tracer.String(tracer.AttrSessionID, sessionID.String()),
	)

	session := scan.NewSession(scan.NewRemoteCamera(cameraErr), s.decoder, s.validator,
		scan.WithCallback(s.recordResult(sessionID)),
	)
	startErr := session.Start(ctx)
	span.End(startErr)

	var camErr *scan.CameraError
	if startErr != nil && !errors.As(startErr, &camErr) {
		return nil, dErrors.Wrap(startErr, dErrors.CodeInternal, "failed to start scan session")
	}

	e := &entry{session: session, createdAt: now, lastSeen: now}
	s.mu.Lock()
	s.sessions[sessionID] = e
	active := len(s.sessions)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetActiveScanSessions(active)
	}

	if camErr != nil {
		if s.metrics != nil {
			s.metrics.IncrementCameraFailure(string(camErr.Kind))
		}
		s.logAudit(ctx, audit.EventScanSessionFailed,
			"session_id", sessionID,
			"reason", string(camErr.Kind),
		)
	}

	return s.view(sessionID, e), nil
}

// SubmitTransport feeds a transport string decoded on the device.
func (s *Service) SubmitTransport(ctx context.Context, sessionID id.ScanSessionID, raw string) (*models.ScanOutcome, error) {
	return s.submit(ctx, sessionID, func(session *scan.Session) bool {
		return session.HandleDecoded(ctx, raw)
	})
}

// SubmitFrame feeds a raw camera frame to be searched for a QR code.
func (s *Service) SubmitFrame(ctx context.Context, sessionID id.ScanSessionID, frame image.Image) (*models.ScanOutcome, error) {
	return s.submit(ctx, sessionID, func(session *scan.Session) bool {
		return session.HandleFrame(ctx, frame)
	})
}

// Reset returns a session showing a result to scanning.
func (s *Service) Reset(ctx context.Context, sessionID id.ScanSessionID) (*models.SessionView, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.touch(requestcontext.Now(ctx))

	if err := e.session.Reset(); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.New(dErrors.CodeInvalidState, "scan session has no result to reset")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset scan session")
	}
	return s.view(sessionID, e), nil
}

// Get returns a snapshot of the session.
func (s *Service) Get(_ context.Context, sessionID id.ScanSessionID) (*models.SessionView, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(sessionID, e), nil
}

// History returns the session's verification history, newest first.
func (s *Service) History(ctx context.Context, sessionID id.ScanSessionID) ([]credmodels.ScanResult, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.touch(requestcontext.Now(ctx))

	results, err := s.ledgers.List(ctx, sessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "verification history unavailable")
	}
	return results, nil
}

// Close releases the session's camera and discards its history.
func (s *Service) Close(ctx context.Context, sessionID id.ScanSessionID) error {
	e, ok := s.unregister(ctx, sessionID)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "scan session not found")
	}
	if err := e.session.Close(); err != nil {
		s.logger.ErrorContext(ctx, "failed to release scan session camera",
			"session_id", sessionID,
			"error", err,
		)
	}
	return nil
}

// CloseIdle closes every session not seen since before cutoff and returns how many were closed.
func (s *Service) CloseIdle(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.RLock()
	var stale []id.ScanSessionID
	for sessionID, e := range s.sessions {
		if e.seen().Before(cutoff) {
			stale = append(stale, sessionID)
		}
	}
	s.mu.RUnlock()

	var errs []error
	closed := 0
	for _, sessionID := range stale {
		e, ok := s.unregister(ctx, sessionID)
		if !ok {
			continue
		}
		closed++
		if err := e.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session %s: %w", sessionID, err))
		}
	}

	if s.metrics != nil && closed > 0 {
		s.metrics.AddExpiredSessions(closed)
	}
	return closed, errors.Join(errs...)
}

// ActiveSessions returns the number of registered sessions.
func (s *Service) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) submit(ctx context.Context, sessionID id.ScanSessionID, handle func(*scan.Session) bool) (*models.ScanOutcome, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.touch(requestcontext.Now(ctx))

	ctx, span := s.tracer.Start(ctx, tracer.SpanScanDecode,
		tracer.String(tracer.AttrSessionID, sessionID.String()),
	)
	defer span.End(nil)

	accepted := handle(e.session)
	span.SetAttributes(tracer.Bool(tracer.AttrAccepted, accepted))
	if !accepted {
		span.AddEvent(tracer.EventFrameDropped)
		if s.metrics != nil {
			s.metrics.IncrementFramesDropped()
		}
	}

	st := e.session.State()
	outcome := &models.ScanOutcome{Accepted: accepted, State: st.Name()}
	if res, ok := st.(scan.Result); ok {
		result := res.ScanResult
		outcome.Result = &result
		span.SetAttributes(
			tracer.String(tracer.AttrVerdict, result.Verdict.String()),
			tracer.String(tracer.AttrReason, result.Reason),
		)
	}
	return outcome, nil
}

// recordResult appends each result to the session's history and audits it.
func (s *Service) recordResult(sessionID id.ScanSessionID) scan.Callback {
	return func(ctx context.Context, result credmodels.ScanResult) {
		registered := false
		s.sessionLocks.Do(sessionID.String(), func() {
			if _, err := s.lookup(sessionID); err != nil {
				return
			}
			registered = true
			if err := s.ledgers.Append(ctx, sessionID, result); err != nil {
				s.logger.ErrorContext(ctx, "failed to record scan result",
					"session_id", sessionID,
					"error", err,
				)
			} else if s.metrics != nil {
				s.metrics.IncrementLedgerAppends()
			}
		})
		if !registered {
			return
		}

		if s.metrics != nil {
			s.metrics.IncrementScan(result.Verdict.String())
		}
		s.logAudit(ctx, audit.EventCredentialScanned,
			"subject_id", result.SubjectID,
			"member_id", result.MemberID,
			"verdict", result.Verdict,
			"reason", result.Reason,
			"session_id", sessionID,
		)
	}
}

func (s *Service) lookup(sessionID id.ScanSessionID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "scan session not found")
	}
	return e, nil
}

// unregister removes the session and discards its history while holding the
// session lock, so no result can be recorded after the discard.
func (s *Service) unregister(ctx context.Context, sessionID id.ScanSessionID) (*entry, bool) {
	key := sessionID.String()
	s.sessionLocks.Lock(key)
	defer s.sessionLocks.Unlock(key)

	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	active := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	if err := s.ledgers.Discard(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "failed to discard verification history",
			"session_id", sessionID,
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.SetActiveScanSessions(active)
	}
	return e, true
}

func (s *Service) view(sessionID id.ScanSessionID, e *entry) *models.SessionView {
	v := &models.SessionView{
		ID:        sessionID,
		CreatedAt: e.createdAt,
		LastSeen:  e.seen(),
	}
	st := e.session.State()
	v.State = st.Name()
	switch st := st.(type) {
	case scan.Result:
		result := st.ScanResult
		v.Result = &result
	case scan.Failed:
		v.Message = st.Err.Message
	}
	return v
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	if s.auditor == nil {
		return
	}
	s.auditor.Log(ctx, event, attributes...)
}
