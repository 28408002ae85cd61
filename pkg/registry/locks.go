package registry

import (
	"context"
	"fmt"
	"sync"
)

// lockEntry is the exclusive section of one manifest id.
// refs counts holders and waiters so idle entries can be dropped.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (r *Registry) acquire(id string) *lockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.locks[id]
	if !ok {
		entry = &lockEntry{}
		r.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (r *Registry) release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(r.locks, id)
	}
}

// withLock runs fn inside the exclusive section of id. Different ids never
// block each other. With a distributed locker the section also spans replicas.
func (r *Registry) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := r.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		r.release(id)
	}()

	if r.locker != nil {
		unlock, err := r.locker.Lock(ctx, "manifest:"+id, r.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"manifest_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
