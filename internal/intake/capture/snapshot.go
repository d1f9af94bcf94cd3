package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// SnapshotDevice is a network camera that serves the current frame over HTTP.
// Kiosk tablets and IP cameras at branch offices expose such an endpoint.
type SnapshotDevice struct {
	url        string
	httpClient *http.Client
}

// NewSnapshotDevice creates a device for the given snapshot URL
func NewSnapshotDevice(snapshotURL string, timeout time.Duration) *SnapshotDevice {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SnapshotDevice{
		url:        snapshotURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Open checks the endpoint and returns a stream bound to the constraints
func (d *SnapshotDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	endpoint, err := d.frameURL(c)
	if err != nil {
		return nil, err
	}

	resp, err := d.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return &snapshotStream{device: d, endpoint: endpoint}, nil
}

func (d *SnapshotDevice) frameURL(c Constraints) (string, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return "", fmt.Errorf("%w: invalid snapshot url: %v", ErrDevice, err)
	}
	q := u.Query()
	if c.FacingMode != "" {
		q.Set("facing", c.FacingMode)
	}
	if c.Width > 0 {
		q.Set("width", strconv.Itoa(c.Width))
	}
	if c.Height > 0 {
		q.Set("height", strconv.Itoa(c.Height))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// get performs a snapshot request and maps failures onto the capture errors.
// The caller owns the returned body.
func (d *SnapshotDevice) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrDevice, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDevice, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, ErrPermissionDenied
	case resp.StatusCode != http.StatusOK:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: snapshot endpoint returned %d", ErrDevice, resp.StatusCode)
	}
	return resp, nil
}

type snapshotStream struct {
	device   *SnapshotDevice
	endpoint string

	mu      sync.Mutex
	stopped bool
}

func (s *snapshotStream) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, ErrNoActiveStream
	}

	resp, err := s.device.get(ctx, s.endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode frame: %v", ErrDevice, err)
	}
	return img, nil
}

func (s *snapshotStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
