package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/sma-admission-api/internal/models"
)

const (
	pendingKeyPrefix = "admission:pending:"
	grantKeyPrefix   = "admission:grant:"
)

// RedisPendingStore keeps pending submissions in redis with a native TTL, so
// in-flight sessions survive restarts and the process can scale horizontally.
type RedisPendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPendingStore constructs the store with the session TTL.
func NewRedisPendingStore(client *redis.Client, ttl time.Duration) *RedisPendingStore {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisPendingStore{client: client, ttl: ttl}
}

// Put stores the entry under its id. The redis expiry tracks the entry's own
// ExpiresAt so updates (verify flag flips) never extend the window.
func (s *RedisPendingStore) Put(ctx context.Context, entry *models.PendingSubmission) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode pending entry: %w", err)
	}
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, pendingKeyPrefix+entry.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store pending entry: %w", err)
	}
	return nil
}

// Get loads the entry or ErrNotFound when missing/expired.
func (s *RedisPendingStore) Get(ctx context.Context, id string) (*models.PendingSubmission, error) {
	raw, err := s.client.Get(ctx, pendingKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load pending entry: %w", err)
	}
	var entry models.PendingSubmission
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode pending entry: %w", err)
	}
	return &entry, nil
}

// Delete removes the entry.
func (s *RedisPendingStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, pendingKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete pending entry: %w", err)
	}
	return nil
}

// RedisGrantStore keeps edit windows in redis with the grant TTL.
type RedisGrantStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisGrantStore constructs the store.
func NewRedisGrantStore(client *redis.Client, ttl time.Duration) *RedisGrantStore {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisGrantStore{client: client, ttl: ttl}
}

// Put overwrites any prior grant for the admission.
func (s *RedisGrantStore) Put(ctx context.Context, grant *models.EditGrant) error {
	raw, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("encode edit grant: %w", err)
	}
	ttl := s.ttl
	if !grant.ExpiresAt.IsZero() {
		if until := time.Until(grant.ExpiresAt); until > 0 {
			ttl = until
		}
	}
	if err := s.client.Set(ctx, grantKeyPrefix+grant.AdmissionID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("store edit grant: %w", err)
	}
	return nil
}

// Get loads the active grant or ErrNotFound.
func (s *RedisGrantStore) Get(ctx context.Context, admissionID string) (*models.EditGrant, error) {
	raw, err := s.client.Get(ctx, grantKeyPrefix+admissionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load edit grant: %w", err)
	}
	var grant models.EditGrant
	if err := json.Unmarshal(raw, &grant); err != nil {
		return nil, fmt.Errorf("decode edit grant: %w", err)
	}
	return &grant, nil
}

// Delete consumes the grant.
func (s *RedisGrantStore) Delete(ctx context.Context, admissionID string) error {
	if err := s.client.Del(ctx, grantKeyPrefix+admissionID).Err(); err != nil {
		return fmt.Errorf("delete edit grant: %w", err)
	}
	return nil
}
