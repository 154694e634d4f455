//go:build integration

package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pgeventbus "github.com/alanyang/promptkit/internal/adapter/postgres/eventbus"
	"github.com/alanyang/promptkit/internal/domain/event"
	"github.com/alanyang/promptkit/internal/testutil"
)

func TestEventBus_PublishSubscribe(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	ctx := context.Background()
	bus := pgeventbus.New(pool)

	got := make(chan event.Event, 1)
	sub, err := bus.Subscribe(ctx, event.ChannelPrompt, func(_ context.Context, e event.Event) {
		got <- e
	})
	require.NoError(t, err)
	assert.Equal(t, 1, bus.Subscribers(event.ChannelPrompt))

	catID := uuid.New()
	sent := event.New(event.TypePromptImported, uuid.New()).WithCategory(&catID)
	require.NoError(t, bus.Publish(ctx, sent))

	select {
	case e := <-got:
		assert.Equal(t, sent.EntityID, e.EntityID)
		assert.Equal(t, event.TypePromptImported, e.Type)
		assert.Equal(t, &catID, e.CategoryID)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	sub.Unsubscribe()
	assert.Equal(t, 0, bus.Subscribers(event.ChannelPrompt))
}

func TestEventBus_PublishUnknownType(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	bus := pgeventbus.New(pool)

	err := bus.Publish(context.Background(), event.New(event.Type("nope"), uuid.New()))
	require.Error(t, err)
}
