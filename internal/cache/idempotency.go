package cache

import (
	"context"
	"fmt"
	"time"
)

const pendingMarker = "pending"

// IdempotencyStore remembers which order an Idempotency-Key produced.
// A key is first claimed with a pending marker, then completed with the
// order id, or released when the attempt failed. The pending marker expires
// after pendingTTL so a claim orphaned by a crashed process frees itself;
// completed keys live for ttl.
type IdempotencyStore struct {
	kv         KV
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyStore creates a new IdempotencyStore. A pendingTTL of zero
// or above ttl is clamped to ttl.
func NewIdempotencyStore(kv KV, ttl, pendingTTL time.Duration) *IdempotencyStore {
	if pendingTTL <= 0 || pendingTTL > ttl {
		pendingTTL = ttl
	}
	return &IdempotencyStore{kv: kv, ttl: ttl, pendingTTL: pendingTTL}
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idem:order:%s:%s", scope, key)
}

// Claim tries to take key within scope. When it is already taken, orderID is
// the order created under it, or empty while that request is still running.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key string) (orderID string, claimed bool, err error) {
	k := s.key(scope, key)
	ok, err := s.kv.SetNX(ctx, k, pendingMarker, s.pendingTTL)
	if err != nil {
		return "", false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if ok {
		return "", true, nil
	}

	v, err := s.kv.Get(ctx, k)
	if err != nil {
		if IsMiss(err) {
			// Released or expired between the two calls.
			return "", false, nil
		}
		return "", false, fmt.Errorf("read idempotency key: %w", err)
	}
	if v == pendingMarker {
		return "", false, nil
	}
	return v, false, nil
}

// Complete records orderID as the result of key.
func (s *IdempotencyStore) Complete(ctx context.Context, scope, key, orderID string) error {
	return s.kv.Set(ctx, s.key(scope, key), orderID, s.ttl)
}

// Release frees key so the client can retry.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	return s.kv.Delete(ctx, s.key(scope, key))
}
