//go:build integration

package integration_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyang/promptkit/internal/adapter/memory"
	pgcategory "github.com/alanyang/promptkit/internal/adapter/postgres/category"
	pgeventbus "github.com/alanyang/promptkit/internal/adapter/postgres/eventbus"
	pglocker "github.com/alanyang/promptkit/internal/adapter/postgres/locker"
	pgprompt "github.com/alanyang/promptkit/internal/adapter/postgres/prompt"
	"github.com/alanyang/promptkit/internal/domain/event"
	"github.com/alanyang/promptkit/internal/domain/parser"
	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
	categorysvc "github.com/alanyang/promptkit/internal/service/category"
	promptsvc "github.com/alanyang/promptkit/internal/service/prompt"
	"github.com/alanyang/promptkit/internal/testutil"
)

const (
	travelPrompt = "You are a helpful travel assistant. Please suggest places to visit."
	eventTimeout = 5 * time.Second
)

// ── test harness ──────────────────────────────────────────────────────────────

type testServices struct {
	promptSvc   *promptsvc.Service
	categorySvc *categorysvc.Service
	events      *testutil.EventRecorder
	categoryID  uuid.UUID
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	pool := testutil.SetupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := pgeventbus.New(pool)
	events := &testutil.EventRecorder{}
	_, err := bus.Subscribe(ctx, event.ChannelPrompt, events.Handle)
	require.NoError(t, err)

	pSvc := promptsvc.NewService(pgprompt.New(pool), bus, pglocker.New(pool), memory.NewCache(), nil, promptsvc.DefaultConfig())
	cSvc := categorysvc.NewService(pgcategory.New(pool), bus)

	// Create isolated category for this test.
	c, err := cSvc.Create(ctx, "integration-"+uuid.New().String()[:8], "")
	require.NoError(t, err)

	return &testServices{
		promptSvc:   pSvc,
		categorySvc: cSvc,
		events:      events,
		categoryID:  c.ID,
	}
}

func (s *testServices) importText(ctx context.Context, text string, force bool) (promptsvc.ImportResult, error) {
	return s.promptSvc.Import(ctx, promptsvc.ImportInput{
		CategoryID: &s.categoryID,
		Text:       text,
		Force:      force,
	})
}

func (s *testServices) mustImport(t *testing.T, ctx context.Context, text string) domainprompt.Prompt {
	t.Helper()
	res, err := s.importText(ctx, text, false)
	require.NoError(t, err)
	return res.Prompt
}

// ── scenarios ─────────────────────────────────────────────────────────────────

func TestImport_StoresAndAnnounces(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	yaml := "name: Travel\nmessages:\n  - role: system\n    content: " + travelPrompt + "\n"
	res, err := s.importText(ctx, yaml, false)
	require.NoError(t, err)
	assert.Equal(t, parser.FormatYAML, res.Format)
	assert.Equal(t, "Travel", res.Prompt.Name)
	assert.Empty(t, res.Duplicates)

	got, err := s.promptSvc.Get(ctx, res.Prompt.ID)
	require.NoError(t, err)
	assert.Equal(t, travelPrompt, got.Content)
	assert.Equal(t, &s.categoryID, got.CategoryID)

	e := s.events.WaitFor(t, event.TypePromptImported, func(e event.Event) bool {
		return e.EntityID == res.Prompt.ID
	}, eventTimeout)
	assert.Equal(t, &s.categoryID, e.CategoryID)
}

func TestImport_DuplicateRejected(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	first := s.mustImport(t, ctx, travelPrompt)

	res, err := s.importText(ctx, travelPrompt, false)
	require.ErrorIs(t, err, promptsvc.ErrDuplicate)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, first.ID, res.Duplicates[0].Prompt.ID)
	assert.Equal(t, 1.0, res.Duplicates[0].Score)

	prompts, err := s.promptSvc.List(ctx, domainprompt.ListFilters{CategoryID: &s.categoryID})
	require.NoError(t, err)
	assert.Len(t, prompts, 1)
}

func TestImport_ForcedDuplicateAnnounced(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	first := s.mustImport(t, ctx, travelPrompt)

	res, err := s.importText(ctx, travelPrompt, true)
	require.NoError(t, err)
	require.Len(t, res.Duplicates, 1)

	e := s.events.WaitFor(t, event.TypeDuplicatesFound, func(e event.Event) bool {
		return e.EntityID == res.Prompt.ID
	}, eventTimeout)
	assert.Equal(t, []uuid.UUID{first.ID}, e.RelatedIDs)

	groups, err := s.promptSvc.DuplicateGroups(ctx, &s.categoryID, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, first.ID, groups[0][0].ID)
	assert.Equal(t, res.Prompt.ID, groups[0][1].ID)
}

func TestImport_DuplicateCheckScopedToCategory(t *testing.T) {
	a := newTestServices(t)
	ctx := context.Background()

	other, err := a.categorySvc.Create(ctx, "integration-"+uuid.New().String()[:8], "")
	require.NoError(t, err)

	a.mustImport(t, ctx, travelPrompt)
	_, err = a.promptSvc.Import(ctx, promptsvc.ImportInput{CategoryID: &other.ID, Text: travelPrompt})
	assert.NoError(t, err)
}

func TestImport_ConcurrentSameContent_OneWins(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	const n = 3
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		stored  int
		dupes   int
		unknown []error
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.importText(ctx, travelPrompt, false)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				stored++
			case errors.Is(err, promptsvc.ErrDuplicate):
				dupes++
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, unknown)
	assert.Equal(t, 1, stored)
	assert.Equal(t, n-1, dupes)
}

func TestFindSimilar_RanksCatalogue(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	travel := s.mustImport(t, ctx, travelPrompt)
	s.mustImport(t, ctx, "You are a meticulous code reviewer. Please point out bugs in the diff.")

	matches, err := s.promptSvc.FindSimilar(ctx, travelPrompt, &s.categoryID, 0, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, travel.ID, matches[0].Prompt.ID)
}

func TestDelete_RemovesAndAnnounces(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	p := s.mustImport(t, ctx, travelPrompt)
	require.NoError(t, s.promptSvc.Delete(ctx, p.ID))

	_, err := s.promptSvc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domainprompt.ErrNotFound)

	e := s.events.WaitFor(t, event.TypePromptDeleted, func(e event.Event) bool {
		return e.EntityID == p.ID
	}, eventTimeout)
	assert.Equal(t, &s.categoryID, e.CategoryID)

	// The content can be imported again once the original is gone.
	_, err = s.importText(ctx, travelPrompt, false)
	assert.NoError(t, err)
}

func TestRenderAndExport_RoundTrip(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	yaml := "name: Planner\nmessages:\n  - role: system\n    content: You are a helpful travel assistant. Please plan {{days}} days in {{city}}.\nvariables:\n  days:\n    default: \"3\"\n"
	res, err := s.importText(ctx, yaml, false)
	require.NoError(t, err)

	doc, err := s.promptSvc.Render(ctx, res.Prompt.ID, map[string]string{"city": "Porto"})
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful travel assistant. Please plan 3 days in Porto.", doc.SystemPrompt())

	out, err := s.promptSvc.Export(ctx, res.Prompt.ID, parser.FormatJSON)
	require.NoError(t, err)
	back, err := parser.ParseFormat(string(out), parser.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, res.Prompt.Document.Messages, back.Messages)
}
