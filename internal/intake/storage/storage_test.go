package storage_test

import (
	"context"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/domain"
	"github.com/leadflow/leadflow-backend/internal/intake/storage"
	"github.com/leadflow/leadflow-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingDevice struct {
	mu      sync.Mutex
	stopped int
}

func (d *countingDevice) Open(context.Context, capture.Constraints) (capture.Stream, error) {
	return countingStream{d}, nil
}

func (d *countingDevice) stops() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

type countingStream struct{ d *countingDevice }

func (countingStream) Frame(context.Context) (image.Image, error) { return nil, io.EOF }

func (s countingStream) Stop() {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.stopped++
}

func newDraft(t *testing.T, dev capture.Device) *storage.Draft {
	t.Helper()
	return storage.NewDraft("agent-1", capture.NewCamera(dev, capture.DefaultConstraints()))
}

func TestDraftStorage_PutGetDelete(t *testing.T) {
	s := storage.NewDraftStorage(time.Hour)
	dev := &countingDevice{}
	d := newDraft(t, dev)
	require.NoError(t, d.Camera.Start(context.Background(), domain.SlotRCFront))

	s.Put(d)
	got, ok := s.Get(d.ID)
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Delete(d.ID))
	assert.False(t, s.Delete(d.ID))
	_, ok = s.Get(d.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, dev.stops(), "deleting a draft releases its camera")
}

func TestDraftStorage_ExpireReleasesCamera(t *testing.T) {
	s := storage.NewDraftStorage(time.Minute)
	dev := &countingDevice{}
	stale := newDraft(t, dev)
	require.NoError(t, stale.Camera.Start(context.Background(), domain.SlotVehFront))
	s.Put(stale)

	time.Sleep(5 * time.Millisecond)
	fresh := newDraft(t, &countingDevice{})
	fresh.Form.SetSlotImage(domain.SlotVehBack, domain.NewImagePayload([]byte("x"), ""))
	s.Put(fresh)

	assert.Empty(t, s.Expire(time.Now()))

	expired := s.Expire(stale.Form.UpdatedAt().Add(time.Minute + time.Millisecond))
	assert.Equal(t, []string{stale.ID}, expired)
	assert.Equal(t, 1, dev.stops())

	_, ok := s.Get(fresh.ID)
	assert.True(t, ok)
}

func TestDraftStorage_RunStopsWithContext(t *testing.T) {
	s := storage.NewDraftStorage(time.Millisecond)
	s.Put(newDraft(t, &countingDevice{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDraft_ExtractionsAreSerialized(t *testing.T) {
	d := newDraft(t, &countingDevice{})
	require.NoError(t, d.AcquireExtraction(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.AcquireExtraction(ctx), context.DeadlineExceeded)

	d.ReleaseExtraction()
	require.NoError(t, d.AcquireExtraction(context.Background()))
	d.ReleaseExtraction()
}

func TestObjectKey(t *testing.T) {
	png := domain.NewImagePayload([]byte("p"), "image/png")
	jpg := domain.NewImagePayload([]byte("j"), "")

	assert.Equal(t, "leads/L1/insuranceFile.png", storage.ObjectKey("L1", "insuranceFile", png))
	assert.Equal(t, "leads/L1/rcFront.jpg", storage.ObjectKey("L1", "rcFront", jpg))
}

func newImageStore(t *testing.T, endpoint string) *storage.ImageStore {
	t.Helper()
	s, err := storage.NewImageStore(config.StorageConfig{
		Endpoint:      endpoint,
		AccessKey:     "leadflow",
		SecretKey:     "secret",
		Bucket:        "lead-documents",
		Region:        "us-east-1",
		PresignExpiry: 10 * time.Minute,
	})
	require.NoError(t, err)
	return s
}

func TestImageStore_PresignedURL(t *testing.T) {
	s := newImageStore(t, "minio.local:9000")

	raw, err := s.PresignedURL(context.Background(), "leads/L1/rcFront.jpg")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "minio.local:9000", u.Host)
	assert.Equal(t, "/lead-documents/leads/L1/rcFront.jpg", u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestImageStore_Put(t *testing.T) {
	var (
		mu        sync.Mutex
		gotPath   string
		gotType   string
		gotBody   string
		gotMethod string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotMethod, gotPath, gotType, gotBody = r.Method, r.URL.Path, r.Header.Get("Content-Type"), string(body)
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := newImageStore(t, strings.TrimPrefix(srv.URL, "http://"))
	img := domain.NewImagePayload([]byte("jpeg-bytes"), "image/jpeg")

	require.NoError(t, s.Put(context.Background(), "leads/L1/rcFront.jpg", img))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/lead-documents/leads/L1/rcFront.jpg", gotPath)
	assert.Equal(t, "image/jpeg", gotType)
	assert.Contains(t, gotBody, "jpeg-bytes")
}

func TestImageStore_PutFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newImageStore(t, strings.TrimPrefix(srv.URL, "http://"))
	err := s.Put(context.Background(), "leads/L1/rcFront.jpg", domain.NewImagePayload([]byte("x"), ""))
	assert.Error(t, err)
}
