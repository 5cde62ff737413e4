package scan

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"sync"
)

// CameraErrorKind classifies camera acquisition failures.
type CameraErrorKind string

const (
	CameraPermissionDenied CameraErrorKind = "PERMISSION_DENIED"
	CameraUnavailable      CameraErrorKind = "UNAVAILABLE"
)

// ParseCameraErrorKind accepts the lowercase names reported by scanning devices.
func ParseCameraErrorKind(s string) (CameraErrorKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(CameraPermissionDenied):
		return CameraPermissionDenied, nil
	case string(CameraUnavailable):
		return CameraUnavailable, nil
	default:
		return "", fmt.Errorf("unknown camera error %q", s)
	}
}

// CameraError is a camera failure carrying a message fit to show the operator.
type CameraError struct {
	Kind    CameraErrorKind
	Message string
	Err     error
}

// NewCameraError creates a CameraError with the standard message for kind.
func NewCameraError(kind CameraErrorKind, cause error) *CameraError {
	return &CameraError{Kind: kind, Message: cameraMessage(kind), Err: cause}
}

func (e *CameraError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("camera %s: %v", strings.ToLower(string(e.Kind)), e.Err)
	}
	return "camera " + strings.ToLower(string(e.Kind))
}

func (e *CameraError) Unwrap() error { return e.Err }

func cameraMessage(kind CameraErrorKind) string {
	if kind == CameraPermissionDenied {
		return "Camera access was denied. Allow camera access to scan credentials."
	}
	return "No camera is available. Connect a camera and start a new scan."
}

// asCameraError normalizes acquisition and capture failures.
func asCameraError(err error) *CameraError {
	var ce *CameraError
	if errors.As(err, &ce) {
		return ce
	}
	return NewCameraError(CameraUnavailable, err)
}

// Camera hands out exclusive capture handles.
type Camera interface {
	Acquire(ctx context.Context) (Capture, error)
}

// Capture is a held camera. Release must be called exactly once.
type Capture interface {
	// NextFrame blocks until a frame is available. io.EOF means the source is exhausted.
	NextFrame(ctx context.Context) (image.Image, error)
	Release() error
}

// RemoteCamera stands in for the camera of a scanning device that pushes its
// frames over HTTP. Acquisition fails with the error the device reported.
type RemoteCamera struct {
	reported *CameraError
}

// NewRemoteCamera creates a camera. A non-empty kind makes every Acquire fail with it.
func NewRemoteCamera(kind CameraErrorKind) *RemoteCamera {
	c := &RemoteCamera{}
	if kind != "" {
		c.reported = NewCameraError(kind, nil)
	}
	return c
}

func (c *RemoteCamera) Acquire(_ context.Context) (Capture, error) {
	if c.reported != nil {
		return nil, c.reported
	}
	return &remoteCapture{}, nil
}

// remoteCapture has no pull source: frames arrive through Session.HandleFrame.
type remoteCapture struct{}

func (remoteCapture) NextFrame(ctx context.Context) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (remoteCapture) Release() error { return nil }

// ImageCamera replays a fixed sequence of frames, one capture at a time.
type ImageCamera struct {
	mu     sync.Mutex
	frames []image.Image
	held   bool
}

func NewImageCamera(frames ...image.Image) *ImageCamera {
	return &ImageCamera{frames: frames}
}

func (c *ImageCamera) Acquire(_ context.Context) (Capture, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held {
		return nil, NewCameraError(CameraUnavailable, errors.New("camera already in use"))
	}
	c.held = true
	return &imageCapture{camera: c}, nil
}

// Held reports whether a capture is outstanding.
func (c *ImageCamera) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

type imageCapture struct {
	camera *ImageCamera
	next   int
}

func (c *imageCapture) NextFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.camera.mu.Lock()
	defer c.camera.mu.Unlock()
	if c.next >= len(c.camera.frames) {
		return nil, io.EOF
	}
	frame := c.camera.frames[c.next]
	c.next++
	return frame, nil
}

func (c *imageCapture) Release() error {
	c.camera.mu.Lock()
	defer c.camera.mu.Unlock()
	if !c.camera.held {
		return errors.New("capture already released")
	}
	c.camera.held = false
	return nil
}
