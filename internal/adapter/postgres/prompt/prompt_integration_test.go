//go:build integration

package prompt_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgcategory "github.com/alanyang/promptkit/internal/adapter/postgres/category"
	pgprompt "github.com/alanyang/promptkit/internal/adapter/postgres/prompt"
	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	domainprompt "github.com/alanyang/promptkit/internal/domain/prompt"
	"github.com/alanyang/promptkit/internal/domain/similarity"
	"github.com/alanyang/promptkit/internal/testutil"
)

func newCategory(t *testing.T, ctx context.Context, repo *pgcategory.Repository) uuid.UUID {
	t.Helper()
	c, err := repo.Create(ctx, domaincategory.New("test-"+uuid.New().String()[:8], ""))
	require.NoError(t, err)
	return c.ID
}

func newPrompt(catID *uuid.UUID, content string, at time.Time) domainprompt.Prompt {
	temp := 0.2
	doc := domainprompt.ParsedPrompt{
		Name:            "p",
		ModelParameters: &domainprompt.ModelParameters{Temperature: &temp},
		Messages:        []domainprompt.Message{{Role: domainprompt.RoleSystem, Content: content}},
		Metadata:        map[string]any{"tags": []any{"a"}},
	}
	p := domainprompt.New(catID, "yaml", doc, similarity.Fingerprint(content), 0.8)
	p.CreatedAt = at.UTC().Truncate(time.Microsecond)
	return p
}

func TestPromptRepo_CreateAndGet(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgprompt.New(pool)
	catID := newCategory(t, ctx, pgcategory.New(pool))

	p := newPrompt(&catID, "You are a reviewer.", time.Now())
	created, err := repo.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, p.ID, created.ID)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, &catID, got.CategoryID)
	assert.Equal(t, p.Document, got.Document)
	assert.Equal(t, p.Fingerprint, got.Fingerprint)
	assert.InDelta(t, 0.8, got.Score, 1e-9)
}

func TestPromptRepo_GetByID_NotFound(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := pgprompt.New(pool)

	_, err := repo.GetByID(context.Background(), uuid.New())
	require.ErrorIs(t, err, domainprompt.ErrNotFound)
}

func TestPromptRepo_Create_UnknownCategory(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := pgprompt.New(pool)

	missing := uuid.New()
	_, err := repo.Create(context.Background(), newPrompt(&missing, "orphan", time.Now()))
	require.ErrorIs(t, err, domaincategory.ErrNotFound)
}

func TestPromptRepo_ScopedQueries(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgprompt.New(pool)
	cats := pgcategory.New(pool)
	catA, catB := newCategory(t, ctx, cats), newCategory(t, ctx, cats)

	base := time.Now().Add(-time.Hour)
	a1 := newPrompt(&catA, "Hello World", base)
	a2 := newPrompt(&catA, "Goodbye", base.Add(time.Minute))
	a3 := newPrompt(&catA, "hello, world!", base.Add(2*time.Minute))
	b1 := newPrompt(&catB, "Hello World", base)
	for _, p := range []domainprompt.Prompt{a1, a2, a3, b1} {
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}

	byFP, err := repo.ListByFingerprint(ctx, &catA, "hello world")
	require.NoError(t, err)
	require.Len(t, byFP, 2)
	assert.Equal(t, a1.ID, byFP[0].ID)
	assert.Equal(t, a3.ID, byFP[1].ID)

	scoped, err := repo.ListByCategory(ctx, &catA, 2)
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, a1.ID, scoped[0].ID)
	assert.Equal(t, a2.ID, scoped[1].ID)

	listed, err := repo.List(ctx, domainprompt.ListFilters{CategoryID: &catA, Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, a3.ID, listed[0].ID)

	paged, err := repo.List(ctx, domainprompt.ListFilters{CategoryID: &catA, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, a2.ID, paged[0].ID)
}

func TestPromptRepo_Delete(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgprompt.New(pool)

	p := newPrompt(nil, "Delete me please.", time.Now())
	_, err := repo.Create(ctx, p)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, p.ID))
	require.ErrorIs(t, repo.Delete(ctx, p.ID), domainprompt.ErrNotFound)
}
