package valkey

import (
	"context"
	"time"
)

// Lock is a best-effort mutual exclusion based on SET NX EX. The lock is
// never released explicitly; it expires after its TTL.
type Lock struct {
	client *Client
	owner  string
}

// NewLock crea un lock identificado por owner (normalmente el instance ID)
func NewLock(client *Client, owner string) *Lock {
	return &Lock{client: client, owner: owner}
}

// TryLock returns true when this call acquired key.
func (l *Lock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	inner := l.client.inner
	cmd := inner.B().Set().Key(l.client.Key(key)).Value(l.owner).Nx().Ex(ttl).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		if IsNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Holder returns the owner currently holding key, or "" when it is free.
func (l *Lock) Holder(ctx context.Context, key string) (string, error) {
	inner := l.client.inner
	v, err := inner.Do(ctx, inner.B().Get().Key(l.client.Key(key)).Build()).ToString()
	if IsNil(err) {
		return "", nil
	}
	return v, err
}
