package idempotency

import "context"

// Store remembers the response produced for an Idempotency-Key so a retried
// request can be answered without re-running the operation.
type Store interface {
	Check(ctx context.Context, key string) (result []byte, found bool, err error)
	Store(ctx context.Context, key, opType string, result []byte) error
}
