//go:build integration

package idempotency_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgidempotency "github.com/alanyang/promptkit/internal/adapter/postgres/idempotency"
	"github.com/alanyang/promptkit/internal/testutil"
)

func TestIdempotency_StoreAndCheck(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	repo := pgidempotency.New(pool)
	key := "key-" + uuid.NewString()

	_, found, err := repo.Check(ctx, key)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Store(ctx, key, "import_prompt", []byte(`{"status":201}`)))
	require.NoError(t, repo.Store(ctx, key, "import_prompt", []byte(`{"status":500}`)))

	got, found, err := repo.Check(ctx, key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"status":201}`, string(got))
}
