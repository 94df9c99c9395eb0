package store

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// MemoryPendingStore is a process-local pending store. Expiry is checked
// lazily on Get and enforced actively by an optional reaper. Suitable for
// single-node deployments and tests; the redis store is the scaled-out option.
type MemoryPendingStore struct {
	mu      sync.RWMutex
	entries map[string]*models.PendingSubmission

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryPendingStore constructs an empty store.
func NewMemoryPendingStore() *MemoryPendingStore {
	return &MemoryPendingStore{
		entries: make(map[string]*models.PendingSubmission),
		stop:    make(chan struct{}),
	}
}

// StartReaper launches a background loop deleting expired entries so memory
// stays bounded even when clients abandon sessions.
func (s *MemoryPendingStore) StartReaper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.reap(time.Now())
			}
		}
	}()
}

// Close stops the reaper.
func (s *MemoryPendingStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Put stores a copy of the entry.
func (s *MemoryPendingStore) Put(_ context.Context, entry *models.PendingSubmission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *entry
	s.entries[entry.ID] = &copy
	return nil
}

// Get returns a copy of the entry, deleting it when expired.
func (s *MemoryPendingStore) Get(_ context.Context, id string) (*models.PendingSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.Expired(time.Now()) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	copy := *entry
	return &copy, nil
}

// Delete removes the entry.
func (s *MemoryPendingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

func (s *MemoryPendingStore) reap(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if entry.Expired(now) {
			delete(s.entries, id)
		}
	}
}

// MemoryGrantStore is a process-local grant store with lazy expiry.
type MemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[string]*models.EditGrant
}

// NewMemoryGrantStore constructs an empty store.
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{grants: make(map[string]*models.EditGrant)}
}

// Put overwrites any prior grant for the admission.
func (s *MemoryGrantStore) Put(_ context.Context, grant *models.EditGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *grant
	s.grants[grant.AdmissionID] = &copy
	return nil
}

// Get returns the active grant, deleting it when expired.
func (s *MemoryGrantStore) Get(_ context.Context, admissionID string) (*models.EditGrant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.grants[admissionID]
	if !ok {
		return nil, ErrNotFound
	}
	if grant.Expired(time.Now()) {
		delete(s.grants, admissionID)
		return nil, ErrNotFound
	}
	copy := *grant
	return &copy, nil
}

// Delete consumes the grant.
func (s *MemoryGrantStore) Delete(_ context.Context, admissionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.grants, admissionID)
	return nil
}
