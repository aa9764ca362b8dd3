package notify

import (
	"github.com/cloudsync/cloudsync/internal/model"
)

// ApplyResult reports what a pushed event did to the local view.
type ApplyResult struct {
	// Changed is true when the local view was modified.
	Changed bool

	// NeedsRecount is true when the local unread delta could not be
	// computed confidently (the event targeted a notification this view
	// does not hold) and the consumer should re-fetch the authoritative
	// count.
	NeedsRecount bool
}

// Snapshot is a restorable copy of the feed, taken before an optimistic
// mutation so a failed backend call can roll it back.
type Snapshot struct {
	items  []model.Notification
	unread int
}

// Feed is a consumer-local view of the notification stream: an ordered
// list of notifications plus the derived unread counter. The authoritative
// state lives server-side; the feed applies pushed events and optimistic
// local mutations against its own copy, reconciling so that the counter
// converges on the count of unread items in the server's view.
type Feed struct {
	items  []model.Notification
	unread int
}

// NewFeed returns an empty feed.
func NewFeed() *Feed {
	return &Feed{}
}

// Load replaces the feed's contents with a freshly fetched page and its
// authoritative unread count.
func (f *Feed) Load(page model.NotificationPage) {
	f.items = make([]model.Notification, len(page.Notifications))
	copy(f.items, page.Notifications)
	f.unread = page.UnreadCount
}

// Items returns a copy of the notifications in display order.
func (f *Feed) Items() []model.Notification {
	out := make([]model.Notification, len(f.items))
	copy(out, f.items)
	return out
}

// Unread returns the local unread counter.
func (f *Feed) Unread() int {
	return f.unread
}

// SetUnread installs an authoritative unread count fetched from the
// server, used after an ApplyResult requested a recount.
func (f *Feed) SetUnread(count int) {
	if count < 0 {
		count = 0
	}
	f.unread = count
}

// Len returns the number of notifications held locally.
func (f *Feed) Len() int {
	return len(f.items)
}

// ApplyEvent reconciles one pushed event into the local view. Control
// signals mutate already-held notifications; content events insert a new
// unread notification at the head immediately, without waiting for a
// server re-fetch.
func (f *Feed) ApplyEvent(n model.Notification) ApplyResult {
	switch n.Type {
	case model.TypeNotificationRead:
		return f.applyRead(n.Key())
	case model.TypeNotificationDeleted:
		return f.applyDeleted(n.Key())
	case model.TypeAllNotificationsRead:
		for i := range f.items {
			f.items[i].IsRead = true
		}
		f.unread = 0
		return ApplyResult{Changed: true}
	case model.TypeAllNotificationsDeleted:
		f.items = nil
		f.unread = 0
		return ApplyResult{Changed: true}
	}
	return f.insert(n)
}

// applyRead marks one notification read. When the target is held locally
// the counter delta is exact: decrement only if it was still unread, so a
// preceding optimistic mark-read of the same item is not counted twice.
func (f *Feed) applyRead(key string) ApplyResult {
	for i := range f.items {
		if f.items[i].Key() != key {
			continue
		}
		if f.items[i].IsRead {
			return ApplyResult{}
		}
		f.items[i].IsRead = true
		f.decrement()
		return ApplyResult{Changed: true}
	}
	return ApplyResult{NeedsRecount: true}
}

// applyDeleted removes one notification, decrementing the counter only if
// the removed item was unread.
func (f *Feed) applyDeleted(key string) ApplyResult {
	for i := range f.items {
		if f.items[i].Key() != key {
			continue
		}
		wasUnread := !f.items[i].IsRead
		f.items = append(f.items[:i], f.items[i+1:]...)
		if wasUnread {
			f.decrement()
		}
		return ApplyResult{Changed: true}
	}
	return ApplyResult{NeedsRecount: true}
}

// insert adds a content-bearing event as a new unread notification at the
// head of the list. Duplicate deliveries of the same id are ignored.
func (f *Feed) insert(n model.Notification) ApplyResult {
	key := n.Key()
	if key == "" {
		return ApplyResult{}
	}
	for i := range f.items {
		if f.items[i].Key() == key {
			return ApplyResult{}
		}
	}

	n.ID = key
	n.IsRead = false
	f.items = append([]model.Notification{n}, f.items...)
	f.unread++
	return ApplyResult{Changed: true}
}

// Snapshot returns a restorable copy of the current state.
func (f *Feed) Snapshot() Snapshot {
	items := make([]model.Notification, len(f.items))
	copy(items, f.items)
	return Snapshot{items: items, unread: f.unread}
}

// Restore rolls the feed back to a snapshot taken before an optimistic
// mutation whose backend call failed.
func (f *Feed) Restore(s Snapshot) {
	f.items = make([]model.Notification, len(s.items))
	copy(f.items, s.items)
	f.unread = s.unread
}

// MarkRead optimistically marks one notification read, returning the
// pre-mutation snapshot for rollback.
func (f *Feed) MarkRead(id string) Snapshot {
	snap := f.Snapshot()
	for i := range f.items {
		if f.items[i].Key() == id && !f.items[i].IsRead {
			f.items[i].IsRead = true
			f.decrement()
			break
		}
	}
	return snap
}

// Delete optimistically removes one notification, returning the
// pre-mutation snapshot for rollback.
func (f *Feed) Delete(id string) Snapshot {
	snap := f.Snapshot()
	for i := range f.items {
		if f.items[i].Key() != id {
			continue
		}
		if !f.items[i].IsRead {
			f.decrement()
		}
		f.items = append(f.items[:i], f.items[i+1:]...)
		break
	}
	return snap
}

// MarkAllRead optimistically marks everything read.
func (f *Feed) MarkAllRead() Snapshot {
	snap := f.Snapshot()
	for i := range f.items {
		f.items[i].IsRead = true
	}
	f.unread = 0
	return snap
}

// DeleteAll optimistically clears the feed.
func (f *Feed) DeleteAll() Snapshot {
	snap := f.Snapshot()
	f.items = nil
	f.unread = 0
	return snap
}

func (f *Feed) decrement() {
	if f.unread > 0 {
		f.unread--
	}
}
