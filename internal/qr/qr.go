// Package qr converts transport strings to QR images and back.
package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG frames
	_ "image/png"  // register PNG frames
	"io"

	"github.com/makiuchi-d/gozxing"
	gozxingqr "github.com/makiuchi-d/gozxing/qrcode"
	"github.com/skip2/go-qrcode"
)

// DefaultSize is the rendered edge length in pixels.
const DefaultSize = 256

// MaxFrameEdge bounds the width and height of an uploaded frame. The header is
// checked before any pixel data is decoded.
const MaxFrameEdge = 4096

var ErrFrameTooLarge = errors.New("frame dimensions exceed limit")

// Renderer encodes transport strings as PNG QR codes at medium error correction.
type Renderer struct {
	size int
}

// NewRenderer creates a Renderer producing size×size images. Non-positive sizes use DefaultSize.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{size: size}
}

// Render returns a PNG image of transport.
func (r *Renderer) Render(transport string) ([]byte, error) {
	code, err := qrcode.New(transport, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	png, err := code.PNG(r.size)
	if err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return png, nil
}

// Image returns the QR code of transport as an in-memory image.
func (r *Renderer) Image(transport string) (image.Image, error) {
	code, err := qrcode.New(transport, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return code.Image(r.size), nil
}

// Decoder extracts transport strings from camera frames.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

func NewDecoder() *Decoder {
	return &Decoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER:    true,
			gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
		},
	}
}

// DecodeFrame returns the text of the QR code in frame. ok is false when no
// code is in view, which is the normal result for most frames.
func (d *Decoder) DecodeFrame(frame image.Image) (text string, ok bool) {
	if frame == nil {
		return "", false
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return "", false
	}
	// Readers hold per-call state, so each frame gets its own.
	result, err := gozxingqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", false
	}
	return result.GetText(), true
}

// ReadFrame decodes a PNG or JPEG image from r. Frames wider or taller than
// MaxFrameEdge fail with ErrFrameTooLarge. Callers bound the size of r.
func ReadFrame(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame header: %w", err)
	}
	if cfg.Width > MaxFrameEdge || cfg.Height > MaxFrameEdge {
		return nil, fmt.Errorf("%w: %dx%d", ErrFrameTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame image: %w", err)
	}
	return img, nil
}
