// Package capture acquires document images from a camera or an uploaded file.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/leadflow/leadflow-backend/internal/intake/domain"
)

// JPEGQuality is the encoder quality used for camera captures
const JPEGQuality = 80

var (
	// ErrPermissionDenied is returned when the device refuses access
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrDevice wraps every other device failure
	ErrDevice = errors.New("camera device error")
	// ErrNoActiveStream is returned by Capture without a matching open stream
	ErrNoActiveStream = errors.New("no active camera stream")
)

// Constraints describe the requested video stream
type Constraints struct {
	FacingMode string
	Width      int
	Height     int
}

// DefaultConstraints requests the rear camera at 1280x720
func DefaultConstraints() Constraints {
	return Constraints{FacingMode: "environment", Width: 1280, Height: 720}
}

// Device opens video streams
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open video stream
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Stop()
}

// Unavailable is the device used when no camera is configured
var Unavailable Device = unavailableDevice{}

type unavailableDevice struct{}

func (unavailableDevice) Open(context.Context, Constraints) (Stream, error) {
	return nil, fmt.Errorf("%w: no camera configured", ErrDevice)
}

// Camera owns at most one open stream and the slot it was opened for.
// Every path that ends a capture session releases the stream.
type Camera struct {
	device      Device
	constraints Constraints

	mu     sync.Mutex
	stream Stream
	slot   domain.DocumentSlot
}

// NewCamera creates a camera on top of a device
func NewCamera(device Device, c Constraints) *Camera {
	return &Camera{device: device, constraints: c}
}

// Start opens a stream for the slot, releasing any stream already held
func (c *Camera) Start(ctx context.Context, slot domain.DocumentSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releaseLocked()

	stream, err := c.device.Open(ctx, c.constraints)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDevice) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrDevice, err)
	}
	c.stream = stream
	c.slot = slot
	return nil
}

// Stop releases the stream. Calling it without an active stream is a no-op.
func (c *Camera) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// Close tears the camera down
func (c *Camera) Close() {
	c.Stop()
}

// Active returns the slot of the open stream, if any
func (c *Camera) Active() (domain.DocumentSlot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slot, c.stream != nil
}

// Capture snapshots the current frame as a JPEG. The stream is released
// afterwards whether or not the capture succeeded.
func (c *Camera) Capture(ctx context.Context, slot domain.DocumentSlot) (domain.ImagePayload, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return domain.ImagePayload{}, ErrNoActiveStream
	}
	defer c.releaseLocked()

	if c.slot != slot {
		return domain.ImagePayload{}, fmt.Errorf("%w for slot %s", ErrNoActiveStream, slot)
	}

	frame, err := c.stream.Frame(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDevice) {
			return domain.ImagePayload{}, err
		}
		return domain.ImagePayload{}, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	return EncodeJPEG(frame)
}

func (c *Camera) releaseLocked() {
	if c.stream != nil {
		c.stream.Stop()
	}
	c.stream = nil
	c.slot = ""
}

// EncodeJPEG encodes a frame at JPEGQuality
func EncodeJPEG(img image.Image) (domain.ImagePayload, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return domain.ImagePayload{}, fmt.Errorf("encode frame: %w", err)
	}
	return domain.NewImagePayload(buf.Bytes(), "image/jpeg"), nil
}

// Message returns the text shown to the agent for a camera failure
func Message(err error) string {
	if errors.Is(err, ErrPermissionDenied) {
		return "Camera permission denied. Please check settings."
	}
	return "Camera error: " + err.Error()
}
