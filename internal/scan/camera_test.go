package scan

import (
	"context"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCameraErrorKind(t *testing.T) {
	tests := []struct {
		in      string
		want    CameraErrorKind
		wantErr bool
	}{
		{in: "permission_denied", want: CameraPermissionDenied},
		{in: "PERMISSION_DENIED", want: CameraPermissionDenied},
		{in: " unavailable ", want: CameraUnavailable},
		{in: "on_fire", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCameraErrorKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCameraErrorMessage(t *testing.T) {
	denied := NewCameraError(CameraPermissionDenied, nil)
	assert.Equal(t, "camera permission_denied", denied.Error())
	assert.Contains(t, denied.Message, "denied")

	unavailable := NewCameraError(CameraUnavailable, io.ErrUnexpectedEOF)
	assert.ErrorIs(t, unavailable, io.ErrUnexpectedEOF)
	assert.Contains(t, unavailable.Message, "No camera")
}

func TestRemoteCameraReportsDeviceError(t *testing.T) {
	_, err := NewRemoteCamera(CameraPermissionDenied).Acquire(context.Background())

	var camErr *CameraError
	require.ErrorAs(t, err, &camErr)
	assert.Equal(t, CameraPermissionDenied, camErr.Kind)

	capture, err := NewRemoteCamera("").Acquire(context.Background())
	require.NoError(t, err)
	assert.NoError(t, capture.Release())
}

func TestImageCameraIsExclusive(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 1, 1))
	camera := NewImageCamera(frame)
	ctx := context.Background()

	capture, err := camera.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, camera.Held())

	_, err = camera.Acquire(ctx)
	assert.Error(t, err)

	got, err := capture.NextFrame(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame, got)

	_, err = capture.NextFrame(ctx)
	assert.ErrorIs(t, err, io.EOF)

	require.NoError(t, capture.Release())
	assert.False(t, camera.Held())
	assert.Error(t, capture.Release())
}

func TestRunEndsWithFiniteSource(t *testing.T) {
	camera := NewImageCamera(image.NewGray(image.Rect(0, 0, 8, 8)))
	decoder := funcDecoder(func(image.Image) (string, bool) { return "", false })
	session := NewSession(camera, decoder, nil)
	ctx := context.Background()

	require.NoError(t, session.Start(ctx))
	assert.ErrorIs(t, session.Run(ctx), ErrCaptureEnded)
	assert.IsType(t, Active{}, session.State())

	require.NoError(t, session.Close())
	assert.False(t, camera.Held())
}
