package locker

import (
	"context"
	"hash/fnv"
)

// AdvisoryLocker serialises critical sections across server instances.
// WithLock holds the lock for the duration of fn.
type AdvisoryLocker interface {
	WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error
}

// Key derives a lock key from a namespace and a scope name.
func Key(namespace, scope string) int64 {
	h := fnv.New64a()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(scope))
	return int64(h.Sum64())
}
