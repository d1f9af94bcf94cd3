package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/form"
)

// Draft is one open intake form: its state, its camera and the lock that
// serializes its extractions.
type Draft struct {
	ID        string
	AgentID   string
	Form      *form.Store
	Camera    *capture.Camera
	CreatedAt time.Time

	extractions *semaphore.Weighted
}

// NewDraft creates an empty draft owning the given camera
func NewDraft(agentID string, camera *capture.Camera) *Draft {
	return &Draft{
		ID:          uuid.New().String(),
		AgentID:     agentID,
		Form:        form.NewStore(),
		Camera:      camera,
		CreatedAt:   time.Now(),
		extractions: semaphore.NewWeighted(1),
	}
}

// AcquireExtraction blocks until no other extraction of the draft is running
func (d *Draft) AcquireExtraction(ctx context.Context) error {
	return d.extractions.Acquire(ctx, 1)
}

// ReleaseExtraction ends the extraction started by AcquireExtraction
func (d *Draft) ReleaseExtraction() {
	d.extractions.Release(1)
}

// DraftStorage keeps open drafts in memory. Drafts untouched for longer
// than the TTL are dropped and their camera released.
type DraftStorage struct {
	mu     sync.RWMutex
	drafts map[string]*Draft
	ttl    time.Duration
}

// NewDraftStorage creates an empty draft storage with the given TTL
func NewDraftStorage(ttl time.Duration) *DraftStorage {
	return &DraftStorage{
		drafts: make(map[string]*Draft),
		ttl:    ttl,
	}
}

// Put stores a draft
func (s *DraftStorage) Put(d *Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.ID] = d
}

// Get retrieves a draft by ID
func (s *DraftStorage) Get(id string) (*Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[id]
	return d, ok
}

// Delete removes a draft and releases its camera. It reports whether the
// draft existed.
func (s *DraftStorage) Delete(id string) bool {
	s.mu.Lock()
	d, ok := s.drafts[id]
	delete(s.drafts, id)
	s.mu.Unlock()

	if ok {
		d.Camera.Close()
	}
	return ok
}

// Take removes a draft without releasing its camera
func (s *DraftStorage) Take(id string) (*Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	delete(s.drafts, id)
	return d, ok
}

// Len returns the number of open drafts
func (s *DraftStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// Run removes expired drafts every interval until ctx is done
func (s *DraftStorage) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Expire(now)
		}
	}
}

// Expire removes drafts last updated before now minus the TTL and returns
// their IDs.
func (s *DraftStorage) Expire(now time.Time) []string {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var expired []*Draft
	for id, d := range s.drafts {
		if d.Form.UpdatedAt().Before(cutoff) {
			expired = append(expired, d)
			delete(s.drafts, id)
		}
	}
	s.mu.Unlock()

	ids := make([]string, 0, len(expired))
	for _, d := range expired {
		d.Camera.Close()
		ids = append(ids, d.ID)
	}
	return ids
}

// Close releases every draft's camera and empties the storage
func (s *DraftStorage) Close() {
	s.mu.Lock()
	drafts := s.drafts
	s.drafts = make(map[string]*Draft)
	s.mu.Unlock()

	for _, d := range drafts {
		d.Camera.Close()
	}
}
