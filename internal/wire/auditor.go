package wire

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyang/promptkit/internal/domain/event"
	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
	porteventbus "github.com/alanyang/promptkit/internal/port/eventbus"
)

// duplicateScanner is the slice of the prompt service the auditor needs.
type duplicateScanner interface {
	DuplicateGroups(ctx context.Context, categoryID *uuid.UUID, threshold float64) ([][]domainprompt.Prompt, error)
}

// auditor re-clusters a category some time after prompts were imported
// into it. Imports that arrive during the grace period push the audit back,
// so a bulk import is audited once.
type auditor struct {
	svc   duplicateScanner
	bus   porteventbus.EventBus
	grace time.Duration

	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
}

// uncategorised keys the timer for prompts without a category.
var uncategorised = uuid.Nil

func newAuditor(svc duplicateScanner, bus porteventbus.EventBus, grace time.Duration) *auditor {
	return &auditor{
		svc:    svc,
		bus:    bus,
		grace:  grace,
		timers: make(map[uuid.UUID]*time.Timer),
	}
}

// startAuditor subscribes to the prompt channel and schedules an audit for
// the category of every imported prompt. Pending audits are dropped when
// ctx is done.
func startAuditor(ctx context.Context, svc duplicateScanner, bus porteventbus.EventBus, grace time.Duration) *auditor {
	a := newAuditor(svc, bus, grace)
	if _, err := bus.Subscribe(ctx, event.ChannelPrompt, func(_ context.Context, e event.Event) {
		if e.Type == event.TypePromptImported {
			a.schedule(ctx, e.CategoryID)
		}
	}); err != nil {
		slog.Error("auditor: failed to subscribe to prompt channel", "error", err)
	}
	go func() {
		<-ctx.Done()
		a.stop()
	}()
	return a
}

func (a *auditor) schedule(ctx context.Context, categoryID *uuid.UUID) {
	key := uncategorised
	if categoryID != nil {
		key = *categoryID
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.timers[key]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(a.grace, func() { a.fire(ctx, key, t, categoryID) })
	a.timers[key] = t
}

// fire runs the audit for a timer that went off. The timer is forgotten
// only if schedule has not replaced it in the meantime.
func (a *auditor) fire(ctx context.Context, key uuid.UUID, t *time.Timer, categoryID *uuid.UUID) {
	a.mu.Lock()
	if a.timers[key] == t {
		delete(a.timers, key)
	}
	a.mu.Unlock()
	a.audit(ctx, categoryID)
}

// audit publishes one duplicates_found event per group, keyed by the
// group's oldest member.
func (a *auditor) audit(ctx context.Context, categoryID *uuid.UUID) {
	if ctx.Err() != nil {
		return
	}
	groups, err := a.svc.DuplicateGroups(ctx, categoryID, 0)
	if err != nil {
		slog.ErrorContext(ctx, "auditor: duplicate scan failed", "category_id", categoryID, "error", err)
		return
	}
	for _, g := range groups {
		related := make([]uuid.UUID, 0, len(g)-1)
		for _, p := range g[1:] {
			related = append(related, p.ID)
		}
		e := event.New(event.TypeDuplicatesFound, g[0].ID).WithCategory(categoryID).WithRelated(related...)
		if err := a.bus.Publish(ctx, e); err != nil {
			slog.ErrorContext(ctx, "auditor: publish failed", "prompt_id", g[0].ID, "error", err)
		}
	}
	if len(groups) > 0 {
		slog.InfoContext(ctx, "auditor: duplicate groups found", "category_id", categoryID, "groups", len(groups))
	}
}

func (a *auditor) pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.timers)
}

func (a *auditor) stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, t := range a.timers {
		t.Stop()
		delete(a.timers, key)
	}
}
