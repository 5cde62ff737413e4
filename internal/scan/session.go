// Package scan drives one "scan" user action: acquire the camera, examine frames
// until a credential is decoded and validated, and release the camera on every exit.
package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"sapp/internal/credential/codec"
	"sapp/internal/credential/models"
	"sapp/pkg/platform/sentinel"
	"sapp/pkg/requestcontext"
)

// ErrCaptureEnded is returned by Run when a finite frame source runs out.
var ErrCaptureEnded = errors.New("capture ended")

// Callback receives each completed ScanResult exactly once.
type Callback func(ctx context.Context, result models.ScanResult)

// FrameDecoder finds a QR code in a frame.
type FrameDecoder interface {
	DecodeFrame(frame image.Image) (string, bool)
}

// Validator classifies a decoded record.
type Validator interface {
	Explain(rec models.CredentialRecord, now time.Time) (models.Verdict, string)
}

// Option configures a Session.
type Option func(*Session)

// WithClock fixes the validation time source. By default it is the request
// time carried on the context.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = func(context.Context) time.Time { return now() }
		}
	}
}

// WithCallback registers cb to receive results.
func WithCallback(cb Callback) Option {
	return func(s *Session) {
		s.callback = cb
	}
}

// Session is the per-scan state machine. At most one decode attempt runs at a
// time; frames arriving meanwhile, or after a Result, are dropped.
type Session struct {
	camera    Camera
	decoder   FrameDecoder
	validator Validator
	callback  Callback
	now       func(ctx context.Context) time.Time

	mu      sync.Mutex
	state   State
	capture Capture
	// cycle changes on every Start, Close and failure. An attempt only
	// publishes its Result into the cycle it began in.
	cycle uint64

	attempt sync.Mutex
}

// NewSession creates an Idle session.
func NewSession(camera Camera, decoder FrameDecoder, validator Validator, opts ...Option) *Session {
	s := &Session{
		camera:    camera,
		decoder:   decoder,
		validator: validator,
		now:       requestcontext.Now,
		state:     Idle{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the camera and moves Idle to Active. A failed acquisition
// moves the session to Failed and returns the *CameraError; it is not retried.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.(Idle); !ok {
		return fmt.Errorf("start from %s: %w", s.state.Name(), sentinel.ErrInvalidState)
	}

	capture, err := s.camera.Acquire(ctx)
	if err != nil {
		camErr := asCameraError(err)
		s.state = Failed{Err: camErr}
		return camErr
	}
	s.capture = capture
	s.state = Active{}
	s.cycle++
	return nil
}

// HandleFrame examines one camera frame. It returns false when the frame was
// dropped because the session is not Active or an attempt is in flight. A
// frame without a QR code is accepted and leaves the session Active.
func (s *Session) HandleFrame(ctx context.Context, frame image.Image) bool {
	return s.tryAttempt(ctx, func() (string, bool) {
		return s.decoder.DecodeFrame(frame)
	})
}

// HandleDecoded processes a transport string already extracted by the
// scanning device. Dropping follows the same rules as HandleFrame.
func (s *Session) HandleDecoded(ctx context.Context, raw string) bool {
	return s.tryAttempt(ctx, func() (string, bool) {
		return raw, true
	})
}

// Run pulls frames from the capture until a Result is reached, ctx is done,
// or the capture fails. A capture failure releases the camera and moves the
// session to Failed.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	capture := s.capture
	_, active := s.state.(Active)
	s.mu.Unlock()
	if !active || capture == nil {
		return fmt.Errorf("run: %w", sentinel.ErrInvalidState)
	}

	for {
		frame, err := capture.NextFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return ErrCaptureEnded
			}
			camErr := asCameraError(err)
			s.fail(camErr)
			return camErr
		}
		if frame == nil {
			continue
		}

		s.HandleFrame(ctx, frame)

		switch s.State().(type) {
		case Active:
			continue
		default:
			return nil
		}
	}
}

// Reset returns a Result to Active on the same capture handle.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.(Result); !ok {
		return fmt.Errorf("reset from %s: %w", s.state.Name(), sentinel.ErrInvalidState)
	}
	s.state = Active{}
	return nil
}

// Close releases the camera if held and returns to Idle. It is valid in every state.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.releaseLocked()
	s.state = Idle{}
	s.cycle++
	return err
}

func (s *Session) tryAttempt(ctx context.Context, extract func() (string, bool)) bool {
	cycle, active := s.activeCycle()
	if !active {
		return false
	}
	if !s.attempt.TryLock() {
		return false
	}
	defer s.attempt.Unlock()

	// A panic while decoding must not leave the camera held.
	defer func() {
		if p := recover(); p != nil {
			_ = s.Close()
			panic(p)
		}
	}()

	raw, found := extract()
	if !found {
		return s.isActive()
	}

	result := s.evaluate(ctx, raw)

	s.mu.Lock()
	if _, ok := s.state.(Active); !ok || s.cycle != cycle {
		// Closed, and possibly restarted, while the attempt was running.
		s.mu.Unlock()
		return false
	}
	s.state = Result{ScanResult: result}
	s.mu.Unlock()

	if s.callback != nil {
		s.callback(ctx, result)
	}
	return true
}

// evaluate turns a transport string into a ScanResult. Decode failures never
// escape: they become INVALID results.
func (s *Session) evaluate(ctx context.Context, raw string) models.ScanResult {
	now := s.now(ctx)

	record, err := codec.Decode(raw)
	if err != nil {
		var decodeErr *codec.DecodeError
		if errors.As(err, &decodeErr) {
			return models.NewInvalidScanResult(decodeErr.Reason(), now)
		}
		return models.NewInvalidScanResult(models.ReasonMalformed, now)
	}

	verdict, reason := s.validator.Explain(record, now)
	return models.NewScanResult(record, verdict, reason, now)
}

func (s *Session) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.(Active)
	return ok
}

func (s *Session) activeCycle() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.(Active)
	return s.cycle, ok
}

func (s *Session) fail(camErr *CameraError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.releaseLocked()
	s.state = Failed{Err: camErr}
	s.cycle++
}

func (s *Session) releaseLocked() error {
	if s.capture == nil {
		return nil
	}
	capture := s.capture
	s.capture = nil
	if err := capture.Release(); err != nil {
		return fmt.Errorf("release camera: %w", err)
	}
	return nil
}
