package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

func TestMemoryPendingStoreRoundTrip(t *testing.T) {
	s := NewMemoryPendingStore()
	entry := &models.PendingSubmission{
		ID:        "pending-1",
		Mobile:    "9999900000",
		Email:     "student@example.com",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	require.NoError(t, s.Put(context.Background(), entry))

	got, err := s.Get(context.Background(), "pending-1")
	require.NoError(t, err)
	require.Equal(t, entry.Email, got.Email)

	// Mutating the returned copy must not leak into the store.
	got.MobileVerified = true
	again, err := s.Get(context.Background(), "pending-1")
	require.NoError(t, err)
	require.False(t, again.MobileVerified)

	require.NoError(t, s.Delete(context.Background(), "pending-1"))
	_, err = s.Get(context.Background(), "pending-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPendingStoreLazyExpiry(t *testing.T) {
	s := NewMemoryPendingStore()
	entry := &models.PendingSubmission{
		ID:        "pending-2",
		ExpiresAt: time.Now().Add(-time.Second),
	}
	require.NoError(t, s.Put(context.Background(), entry))

	_, err := s.Get(context.Background(), "pending-2")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryPendingStoreReaper(t *testing.T) {
	s := NewMemoryPendingStore()
	require.NoError(t, s.Put(context.Background(), &models.PendingSubmission{
		ID:        "stale",
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	s.reap(time.Now())

	s.mu.RLock()
	_, ok := s.entries["stale"]
	s.mu.RUnlock()
	require.False(t, ok)
}

func TestMemoryGrantStoreOverwriteAndExpiry(t *testing.T) {
	s := NewMemoryGrantStore()
	first := &models.EditGrant{
		AdmissionID: "adm-1",
		Sections:    []models.Section{models.SectionPersonal},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Put(context.Background(), first))

	second := &models.EditGrant{
		AdmissionID: "adm-1",
		Sections:    []models.Section{models.SectionUploads},
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, s.Put(context.Background(), second))

	got, err := s.Get(context.Background(), "adm-1")
	require.NoError(t, err)
	require.Equal(t, []models.Section{models.SectionUploads}, got.Sections)

	expired := &models.EditGrant{
		AdmissionID: "adm-2",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	require.NoError(t, s.Put(context.Background(), expired))
	_, err = s.Get(context.Background(), "adm-2")
	require.ErrorIs(t, err, ErrNotFound)
}
