package realtime

import (
	"context"
	"testing"

	"subscription_server/core/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEAdapter_PushToSubscribers(t *testing.T) {
	a := NewSSEAdapter(zerolog.Nop())
	user := uuid.New()
	ch := a.Subscribe(user.String())
	require.True(t, a.IsConnected(user.String()))

	ev := domain.NewRealtimeEvent(domain.EventScanCompleted, user, map[string]any{"scan_id": 1})
	require.NoError(t, a.Push(context.Background(), user.String(), ev))

	got := <-ch
	assert.Equal(t, domain.EventScanCompleted, got.Type)
	assert.Equal(t, int64(1), got.Seq)

	// other users see nothing
	require.NoError(t, a.Push(context.Background(), uuid.NewString(), ev))
	assert.Len(t, ch, 0)

	a.Unsubscribe(user.String(), ch)
	assert.False(t, a.IsConnected(user.String()))
	_, open := <-ch
	assert.False(t, open)
}

func TestSSEAdapter_DropsWhenFull(t *testing.T) {
	a := NewSSEAdapter(zerolog.Nop())
	ch := a.Subscribe("u")
	for i := 0; i < cap(ch)+5; i++ {
		_ = a.Push(context.Background(), "u", &domain.RealtimeEvent{Type: domain.EventSubscriptionDetected})
	}
	m := a.GetMetrics()
	assert.Equal(t, int64(cap(ch)), m.MessagesSent)
	assert.Equal(t, int64(5), m.MessagesDropped)
}

func TestSSEClient_CloseIsIdempotent(t *testing.T) {
	hub := NewSSEHub(NewSSEAdapter(zerolog.Nop()))
	c := hub.CreateClient("u")
	c.Close()
	c.Close()
	assert.Equal(t, 0, hub.Metrics().ConnectedUsers)
}
