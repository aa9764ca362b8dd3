package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsync/cloudsync/internal/model"
)

func makePage(notifications ...model.Notification) model.NotificationPage {
	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}
	return model.NotificationPage{
		Notifications: notifications,
		Total:         len(notifications),
		UnreadCount:   unread,
	}
}

func unreadNotification(id string) model.Notification {
	return model.Notification{
		ID:    id,
		Type:  model.TypeFileUploaded,
		Title: "File uploaded",
	}
}

func readNotification(id string) model.Notification {
	n := unreadNotification(id)
	n.IsRead = true
	return n
}

func TestFeedLoad(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), readNotification("b")))

	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 1, f.Unread())
}

func TestApplyEventInsertsContentEventAtHead(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(readNotification("a")))

	result := f.ApplyEvent(model.Notification{
		NotificationID: "b",
		Type:           model.TypeFileShared,
		Title:          "File shared",
	})

	require.True(t, result.Changed)
	assert.False(t, result.NeedsRecount)

	items := f.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.False(t, items[0].IsRead)
	assert.Equal(t, 1, f.Unread())
}

func TestApplyEventDeduplicatesRedelivery(t *testing.T) {
	f := NewFeed()
	event := model.Notification{NotificationID: "a", Type: model.TypeFileUploaded}

	first := f.ApplyEvent(event)
	second := f.ApplyEvent(event)

	assert.True(t, first.Changed)
	assert.False(t, second.Changed)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 1, f.Unread())
}

func TestApplyEventIgnoresContentEventWithoutID(t *testing.T) {
	f := NewFeed()

	result := f.ApplyEvent(model.Notification{Type: model.TypeFileUploaded})

	assert.False(t, result.Changed)
	assert.Equal(t, 0, f.Len())
}

func TestApplyReadDecrementsOnceForHeldUnread(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), unreadNotification("b")))

	result := f.ApplyEvent(model.Notification{
		NotificationID: "a",
		Type:           model.TypeNotificationRead,
	})

	require.True(t, result.Changed)
	assert.False(t, result.NeedsRecount)
	assert.Equal(t, 1, f.Unread())
	assert.True(t, f.Items()[0].IsRead)
}

func TestApplyReadAfterOptimisticMarkReadDoesNotDoubleCount(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), unreadNotification("b")))

	f.MarkRead("a")
	require.Equal(t, 1, f.Unread())

	// The server's confirmation push for the same item must be a no-op.
	result := f.ApplyEvent(model.Notification{
		NotificationID: "a",
		Type:           model.TypeNotificationRead,
	})

	assert.False(t, result.Changed)
	assert.False(t, result.NeedsRecount)
	assert.Equal(t, 1, f.Unread())
}

func TestApplyReadForUnknownItemRequestsRecount(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a")))

	result := f.ApplyEvent(model.Notification{
		NotificationID: "missing",
		Type:           model.TypeNotificationRead,
	})

	assert.False(t, result.Changed)
	assert.True(t, result.NeedsRecount)
	assert.Equal(t, 1, f.Unread())
}

func TestApplyDeletedRemovesAndAdjustsCounter(t *testing.T) {
	tests := []struct {
		name       string
		initial    model.Notification
		wantUnread int
	}{
		{name: "unread item", initial: unreadNotification("a"), wantUnread: 0},
		{name: "read item", initial: readNotification("a"), wantUnread: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFeed()
			f.Load(makePage(tt.initial))

			result := f.ApplyEvent(model.Notification{
				NotificationID: "a",
				Type:           model.TypeNotificationDeleted,
			})

			require.True(t, result.Changed)
			assert.Equal(t, 0, f.Len())
			assert.Equal(t, tt.wantUnread, f.Unread())
		})
	}
}

func TestApplyDeletedForUnknownItemRequestsRecount(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a")))

	result := f.ApplyEvent(model.Notification{
		NotificationID: "missing",
		Type:           model.TypeNotificationDeleted,
	})

	assert.True(t, result.NeedsRecount)
	assert.Equal(t, 1, f.Len())
}

func TestApplyAllRead(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), unreadNotification("b"), readNotification("c")))

	result := f.ApplyEvent(model.Notification{Type: model.TypeAllNotificationsRead})

	require.True(t, result.Changed)
	assert.Equal(t, 0, f.Unread())
	for _, n := range f.Items() {
		assert.True(t, n.IsRead)
	}
}

func TestApplyAllDeleted(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), readNotification("b")))

	result := f.ApplyEvent(model.Notification{Type: model.TypeAllNotificationsDeleted})

	require.True(t, result.Changed)
	assert.Equal(t, 0, f.Len())
	assert.Equal(t, 0, f.Unread())
}

func TestCounterNeverGoesNegative(t *testing.T) {
	f := NewFeed()
	f.Load(model.NotificationPage{
		Notifications: []model.Notification{unreadNotification("a")},
		UnreadCount:   0,
	})

	f.ApplyEvent(model.Notification{
		NotificationID: "a",
		Type:           model.TypeNotificationRead,
	})

	assert.Equal(t, 0, f.Unread())
}

func TestOptimisticMarkReadRollback(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), unreadNotification("b")))

	snap := f.MarkRead("a")
	require.Equal(t, 1, f.Unread())
	require.True(t, f.Items()[0].IsRead)

	f.Restore(snap)

	assert.Equal(t, 2, f.Unread())
	assert.False(t, f.Items()[0].IsRead)
}

func TestOptimisticDelete(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), readNotification("b")))

	snap := f.Delete("a")
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 0, f.Unread())

	f.Restore(snap)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 1, f.Unread())
}

func TestOptimisticMarkAllReadRollback(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), unreadNotification("b")))

	snap := f.MarkAllRead()
	require.Equal(t, 0, f.Unread())

	f.Restore(snap)
	assert.Equal(t, 2, f.Unread())
}

func TestOptimisticDeleteAllRollback(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a"), readNotification("b")))

	snap := f.DeleteAll()
	require.Equal(t, 0, f.Len())

	f.Restore(snap)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, 1, f.Unread())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	f := NewFeed()
	f.Load(makePage(unreadNotification("a")))

	snap := f.Snapshot()
	f.ApplyEvent(model.Notification{
		NotificationID: "a",
		Type:           model.TypeNotificationRead,
	})

	f.Restore(snap)
	assert.False(t, f.Items()[0].IsRead)
	assert.Equal(t, 1, f.Unread())
}

func TestSetUnreadClampsNegative(t *testing.T) {
	f := NewFeed()
	f.SetUnread(-3)
	assert.Equal(t, 0, f.Unread())
}
