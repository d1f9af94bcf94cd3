package capture_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	frame    image.Image
	frameErr error

	mu      sync.Mutex
	stopped int
}

func (s *fakeStream) Frame(context.Context) (image.Image, error) {
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	return s.frame, nil
}

func (s *fakeStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
}

func (s *fakeStream) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

type fakeDevice struct {
	openErr  error
	streams  []*fakeStream
	got      []capture.Constraints
	frame    image.Image
	frameErr error
}

func (d *fakeDevice) Open(_ context.Context, c capture.Constraints) (capture.Stream, error) {
	d.got = append(d.got, c)
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeStream{frame: d.frame, frameErr: d.frameErr}
	d.streams = append(d.streams, s)
	return s, nil
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 16, 9))
	for x := 0; x < 16; x++ {
		for y := 0; y < 9; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 20), B: 100, A: 255})
		}
	}
	return img
}

func TestCamera_CaptureEncodesJPEGAndReleases(t *testing.T) {
	dev := &fakeDevice{frame: testFrame()}
	cam := capture.NewCamera(dev, capture.DefaultConstraints())

	require.NoError(t, cam.Start(context.Background(), domain.SlotRCFront))
	slot, active := cam.Active()
	assert.True(t, active)
	assert.Equal(t, domain.SlotRCFront, slot)
	assert.Equal(t, capture.Constraints{FacingMode: "environment", Width: 1280, Height: 720}, dev.got[0])

	payload, err := cam.Capture(context.Background(), domain.SlotRCFront)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", payload.MIMEType())
	assert.True(t, bytes.HasPrefix(payload.Bytes(), []byte{0xFF, 0xD8, 0xFF}))

	_, active = cam.Active()
	assert.False(t, active)
	assert.Equal(t, 1, dev.streams[0].stopCount())
}

func TestCamera_StartReleasesPreviousStream(t *testing.T) {
	dev := &fakeDevice{frame: testFrame()}
	cam := capture.NewCamera(dev, capture.DefaultConstraints())

	require.NoError(t, cam.Start(context.Background(), domain.SlotVehFront))
	require.NoError(t, cam.Start(context.Background(), domain.SlotVehBack))

	require.Len(t, dev.streams, 2)
	assert.Equal(t, 1, dev.streams[0].stopCount())
	assert.Equal(t, 0, dev.streams[1].stopCount())

	slot, _ := cam.Active()
	assert.Equal(t, domain.SlotVehBack, slot)
}

func TestCamera_StartErrors(t *testing.T) {
	tests := []struct {
		name    string
		openErr error
		want    error
		message string
	}{
		{"permission", capture.ErrPermissionDenied, capture.ErrPermissionDenied, "Camera permission denied. Please check settings."},
		{"other", errors.New("no video input"), capture.ErrDevice, "Camera error: camera device error: no video input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := capture.NewCamera(&fakeDevice{openErr: tt.openErr}, capture.DefaultConstraints())

			err := cam.Start(context.Background(), domain.SlotCustPhoto)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.message, capture.Message(err))

			_, active := cam.Active()
			assert.False(t, active)
		})
	}
}

func TestCamera_CaptureWithoutStream(t *testing.T) {
	cam := capture.NewCamera(&fakeDevice{frame: testFrame()}, capture.DefaultConstraints())

	_, err := cam.Capture(context.Background(), domain.SlotRCFront)
	assert.ErrorIs(t, err, capture.ErrNoActiveStream)
}

func TestCamera_CaptureWrongSlotReleases(t *testing.T) {
	dev := &fakeDevice{frame: testFrame()}
	cam := capture.NewCamera(dev, capture.DefaultConstraints())
	require.NoError(t, cam.Start(context.Background(), domain.SlotRCFront))

	_, err := cam.Capture(context.Background(), domain.SlotRCBack)
	assert.ErrorIs(t, err, capture.ErrNoActiveStream)
	assert.Equal(t, 1, dev.streams[0].stopCount())
}

func TestCamera_FailedFrameStillReleases(t *testing.T) {
	dev := &fakeDevice{frameErr: errors.New("sensor glitch")}
	cam := capture.NewCamera(dev, capture.DefaultConstraints())
	require.NoError(t, cam.Start(context.Background(), domain.SlotInsurance))

	_, err := cam.Capture(context.Background(), domain.SlotInsurance)
	assert.ErrorIs(t, err, capture.ErrDevice)

	_, active := cam.Active()
	assert.False(t, active)
	assert.Equal(t, 1, dev.streams[0].stopCount())
}

func TestCamera_StopIsIdempotent(t *testing.T) {
	dev := &fakeDevice{frame: testFrame()}
	cam := capture.NewCamera(dev, capture.DefaultConstraints())

	cam.Stop()
	require.NoError(t, cam.Start(context.Background(), domain.SlotHisab))
	cam.Stop()
	cam.Stop()
	cam.Close()

	assert.Equal(t, 1, dev.streams[0].stopCount())
}

func TestCamera_UnavailableDevice(t *testing.T) {
	cam := capture.NewCamera(capture.Unavailable, capture.DefaultConstraints())

	err := cam.Start(context.Background(), domain.SlotVehFront)
	assert.ErrorIs(t, err, capture.ErrDevice)
	_, active := cam.Active()
	assert.False(t, active)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testFrame()))
	return buf.Bytes()
}

func TestSnapshotDevice_CapturesFrame(t *testing.T) {
	frame := pngBytes(t)
	var (
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(frame)
	}))
	defer srv.Close()

	cam := capture.NewCamera(capture.NewSnapshotDevice(srv.URL+"/snapshot", time.Second), capture.DefaultConstraints())
	require.NoError(t, cam.Start(context.Background(), domain.SlotVehOdo))

	payload, err := cam.Capture(context.Background(), domain.SlotVehOdo)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", payload.MIMEType())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, queries, 2)
	assert.Equal(t, "facing=environment&height=720&width=1280", queries[0])
}

func TestSnapshotDevice_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, capture.ErrPermissionDenied},
		{http.StatusForbidden, capture.ErrPermissionDenied},
		{http.StatusServiceUnavailable, capture.ErrDevice},
		{http.StatusNotFound, capture.ErrDevice},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			dev := capture.NewSnapshotDevice(srv.URL, time.Second)
			_, err := dev.Open(context.Background(), capture.DefaultConstraints())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSnapshotDevice_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := capture.NewSnapshotDevice(url, time.Second).Open(context.Background(), capture.DefaultConstraints())
	assert.ErrorIs(t, err, capture.ErrDevice)
}

func TestSnapshotDevice_UndecodableFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	cam := capture.NewCamera(capture.NewSnapshotDevice(srv.URL, time.Second), capture.DefaultConstraints())
	require.NoError(t, cam.Start(context.Background(), domain.SlotVehFront))

	_, err := cam.Capture(context.Background(), domain.SlotVehFront)
	assert.ErrorIs(t, err, capture.ErrDevice)
}

func TestSelectFile(t *testing.T) {
	payload, err := capture.SelectFile(bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", payload.MIMEType())
	assert.Equal(t, "png", payload.Extension())

	_, err = capture.SelectFile(strings.NewReader(""))
	assert.ErrorIs(t, err, capture.ErrEmptyFile)
}
