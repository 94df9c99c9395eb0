package store

import (
	"context"
	"errors"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

// ErrNotFound is returned when a key is absent or has expired.
var ErrNotFound = errors.New("store: entry not found")

// PendingStore holds draft submissions awaiting dual-channel OTP confirmation.
// Entries carry an absolute TTL; implementations delete them on expiry.
type PendingStore interface {
	Put(ctx context.Context, entry *models.PendingSubmission) error
	Get(ctx context.Context, id string) (*models.PendingSubmission, error)
	Delete(ctx context.Context, id string) error
}

// GrantStore holds single-use edit windows keyed by admission id. Put
// overwrites any prior grant for the same admission: only one window may be
// active at a time.
type GrantStore interface {
	Put(ctx context.Context, grant *models.EditGrant) error
	Get(ctx context.Context, admissionID string) (*models.EditGrant, error)
	Delete(ctx context.Context, admissionID string) error
}
