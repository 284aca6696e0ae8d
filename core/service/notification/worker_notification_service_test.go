package notification

import (
	"context"
	"testing"
	"time"

	"subscription_server/core/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	items  []*domain.Notification
	nextID int64
}

func (r *memRepo) Create(_ context.Context, n *domain.Notification) error {
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	r.items = append(r.items, n)
	return nil
}

func (r *memRepo) List(_ context.Context, f *domain.NotificationFilter) ([]*domain.Notification, int, error) {
	var res []*domain.Notification
	for _, n := range r.items {
		if n.UserID == f.UserID {
			res = append(res, n)
		}
	}
	return res, len(res), nil
}

func (r *memRepo) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	c := 0
	for _, n := range r.items {
		if n.UserID == userID && !n.IsRead {
			c++
		}
	}
	return c, nil
}

func (r *memRepo) MarkAsRead(_ context.Context, userID uuid.UUID, id int64) error {
	for _, n := range r.items {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *memRepo) MarkAllAsRead(_ context.Context, userID uuid.UUID) error {
	for _, n := range r.items {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (r *memRepo) ExistsSince(_ context.Context, userID, subID uuid.UUID, typ domain.NotificationType, since time.Time) (bool, error) {
	for _, n := range r.items {
		if n.UserID == userID && n.SubscriptionID != nil && *n.SubscriptionID == subID && n.Type == typ && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

type fakeRealtime struct {
	connected map[string]bool
	pushed    []*domain.RealtimeEvent
}

func (f *fakeRealtime) Subscribe(string) <-chan *domain.RealtimeEvent    { return nil }
func (f *fakeRealtime) Unsubscribe(string, <-chan *domain.RealtimeEvent) {}
func (f *fakeRealtime) Push(_ context.Context, _ string, e *domain.RealtimeEvent) error {
	f.pushed = append(f.pushed, e)
	return nil
}
func (f *fakeRealtime) ConnectedCount() int            { return len(f.connected) }
func (f *fakeRealtime) IsConnected(userID string) bool { return f.connected[userID] }

func TestSend_PushesWhenConnected(t *testing.T) {
	user := uuid.New()
	rt := &fakeRealtime{connected: map[string]bool{user.String(): true}}
	svc := NewService(&memRepo{}, rt)

	require.NoError(t, svc.Send(context.Background(), &domain.Notification{UserID: user, Title: "hi"}))
	require.NoError(t, svc.Send(context.Background(), &domain.Notification{UserID: uuid.New(), Title: "offline"}))

	require.Len(t, rt.pushed, 1)
	assert.Equal(t, domain.EventNotificationCreated, rt.pushed[0].Type)
}

func TestSendOnce(t *testing.T) {
	user, subID := uuid.New(), uuid.New()
	repo := &memRepo{}
	svc := NewService(repo, nil)
	since := time.Now().Add(-time.Hour)

	n := func() *domain.Notification {
		return &domain.Notification{UserID: user, SubscriptionID: &subID, Type: domain.NotificationRenewalReminder}
	}

	sent, err := svc.SendOnce(context.Background(), n(), since)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = svc.SendOnce(context.Background(), n(), since)
	require.NoError(t, err)
	assert.False(t, sent)

	other := n()
	other.Type = domain.NotificationTrialEnding
	sent, err = svc.SendOnce(context.Background(), other, since)
	require.NoError(t, err)
	assert.True(t, sent)

	assert.Len(t, repo.items, 2)
}

func TestReadState(t *testing.T) {
	user := uuid.New()
	repo := &memRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Send(ctx, &domain.Notification{UserID: user}))
	}

	count, err := svc.GetUnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, svc.MarkAsRead(ctx, user, []int64{1, 2}))
	count, _ = svc.GetUnreadCount(ctx, user)
	assert.Equal(t, 1, count)

	require.NoError(t, svc.MarkAllAsRead(ctx, user))
	count, _ = svc.GetUnreadCount(ctx, user)
	assert.Zero(t, count)

	items, total, err := svc.List(ctx, user, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 3)
}
