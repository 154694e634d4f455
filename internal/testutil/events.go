//go:build integration

package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alanyang/promptkit/internal/domain/event"
)

// EventRecorder is an event bus handler that keeps every event it receives.
// It is safe for concurrent use.
type EventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *EventRecorder) Handle(_ context.Context, e event.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the events received so far.
func (r *EventRecorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// WaitFor blocks until an event of type t matching pred arrives, failing
// the test after timeout. A nil pred matches any event of type t.
func (r *EventRecorder) WaitFor(t *testing.T, typ event.Type, pred func(event.Event) bool, timeout time.Duration) event.Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		for _, e := range r.Events() {
			if e.Type == typ && (pred == nil || pred(e)) {
				return e
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s event", typ)
	return event.Event{}
}
