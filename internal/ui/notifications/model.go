package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/keys"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/notify"
	"github.com/cloudsync/cloudsync/internal/store"
	"github.com/cloudsync/cloudsync/internal/theme"
	"github.com/cloudsync/cloudsync/internal/ui"
)

// requestTimeout bounds each backend call made from this view.
const requestTimeout = 30 * time.Second

// PageLoadedMsg is sent when a notification page has been fetched.
type PageLoadedMsg struct {
	Page model.NotificationPage
	Err  error
}

// EventMsg is a notification pushed over the live feed, forwarded to this
// view by the root model.
type EventMsg struct {
	Notification model.Notification
}

// UnreadChangedMsg tells the root model the local unread count moved, so
// the header badge tracks this view's state without re-fetching.
type UnreadChangedMsg struct {
	Count int
}

// cacheLoadedMsg carries the locally cached feed shown until the first
// fetch lands.
type cacheLoadedMsg struct {
	notifications []model.Notification
}

// mutationDoneMsg reports the backend outcome of an optimistic mutation.
type mutationDoneMsg struct {
	snapshot notify.Snapshot
	err      error
}

// recountMsg carries an authoritative unread count after a control event
// targeted an item this view does not hold.
type recountMsg struct {
	count int
	err   error
}

// Model is the notifications list view. It owns a local Feed reconciled
// against both its own optimistic mutations and server-pushed events.
type Model struct {
	client *api.Client
	cache  *store.Cache
	keys   *keys.KeyMap
	feed   *notify.Feed

	list       list.Model
	unreadOnly bool
	statusMsg  string
	width      int
	height     int
}

// New creates the notifications view.
func New(client *api.Client, cache *store.Cache, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.SelectedItemStyle
	delegate.Styles.SelectedDesc = theme.SelectedItemStyle.Foreground(theme.ColorGray)

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Notifications"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		client: client,
		cache:  cache,
		keys:   k,
		feed:   notify.NewFeed(),
		list:   l,
		width:  width,
		height: height,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}

// Unread returns the view's local unread counter.
func (m Model) Unread() int {
	return m.feed.Unread()
}

// Init shows the cached feed immediately and fetches the live page.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCache(), m.Load())
}

// Load fetches the current notification page from the backend.
func (m Model) Load() tea.Cmd {
	client := m.client
	unreadOnly := m.unreadOnly
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		page, err := client.ListNotifications(ctx, api.ListNotificationsOptions{
			UnreadOnly: unreadOnly,
			Limit:      50,
		})
		return PageLoadedMsg{Page: page, Err: err}
	}
}

// loadCache reads the locally cached feed for instant first paint.
func (m Model) loadCache() tea.Cmd {
	cache := m.cache
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		cached, err := cache.GetNotifications(ctx, 50)
		if err != nil || len(cached) == 0 {
			return nil
		}
		return cacheLoadedMsg{notifications: cached}
	}
}

// Update handles messages for the notifications view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheLoadedMsg:
		// Only seed from cache while the live page has not arrived.
		if m.feed.Len() == 0 {
			m.feed.Load(model.NotificationPage{Notifications: msg.notifications})
			m.syncList()
		}
		return m, nil

	case PageLoadedMsg:
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading notifications: %v", msg.Err)
			return m, nil
		}
		m.statusMsg = ""
		m.feed.Load(msg.Page)
		m.syncList()
		return m, tea.Batch(m.persistCache(), m.announceUnread())

	case EventMsg:
		result := m.feed.ApplyEvent(msg.Notification)
		if result.Changed {
			m.syncList()
		}
		cmds := []tea.Cmd{m.announceUnread()}
		if result.NeedsRecount {
			cmds = append(cmds, m.recount())
		}
		return m, tea.Batch(cmds...)

	case recountMsg:
		if api.IsSessionExpired(msg.err) {
			return m, ui.SessionExpired
		}
		if msg.err == nil {
			m.feed.SetUnread(msg.count)
		}
		return m, m.announceUnread()

	case mutationDoneMsg:
		if msg.err != nil {
			// Roll back the optimistic change.
			m.feed.Restore(msg.snapshot)
			m.syncList()
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, m.announceUnread()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKeys dispatches view-local keybindings.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()

	case key.Matches(msg, m.keys.ToggleUnread):
		m.unreadOnly = !m.unreadOnly
		if m.unreadOnly {
			m.list.Title = "Notifications (unread)"
		} else {
			m.list.Title = "Notifications"
		}
		return m, m.Load()

	case key.Matches(msg, m.keys.MarkRead):
		item, ok := m.selected()
		if !ok || item.IsRead {
			return m, nil
		}
		snap := m.feed.MarkRead(item.Key())
		m.syncList()
		return m, tea.Batch(
			m.announceUnread(),
			m.mutate(snap, func(ctx context.Context) error {
				return m.client.MarkNotificationRead(ctx, item.Key())
			}),
		)

	case key.Matches(msg, m.keys.MarkAllRead):
		if m.feed.Unread() == 0 {
			return m, nil
		}
		snap := m.feed.MarkAllRead()
		m.syncList()
		return m, tea.Batch(
			m.announceUnread(),
			m.mutate(snap, m.client.MarkAllNotificationsRead),
		)

	case key.Matches(msg, m.keys.Delete):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		snap := m.feed.Delete(item.Key())
		m.syncList()
		return m, tea.Batch(
			m.announceUnread(),
			m.mutate(snap, func(ctx context.Context) error {
				return m.client.DeleteNotification(ctx, item.Key())
			}),
		)

	case key.Matches(msg, m.keys.DeleteAll):
		if m.feed.Len() == 0 {
			return m, nil
		}
		snap := m.feed.DeleteAll()
		m.syncList()
		return m, tea.Batch(
			m.announceUnread(),
			m.mutate(snap, m.client.DeleteAllNotifications),
		)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// selected returns the focused list item.
func (m Model) selected() (Item, bool) {
	item, ok := m.list.SelectedItem().(Item)
	return item, ok
}

// syncList rebuilds the list widget from the feed.
func (m *Model) syncList() {
	notifications := m.feed.Items()
	items := make([]list.Item, 0, len(notifications))
	for _, n := range notifications {
		if m.unreadOnly && n.IsRead {
			continue
		}
		items = append(items, Item{Notification: n})
	}
	m.list.SetItems(items)
}

// mutate runs a backend call for an optimistic mutation, carrying the
// rollback snapshot with the outcome.
func (m Model) mutate(snap notify.Snapshot, call func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return mutationDoneMsg{snapshot: snap, err: call(ctx)}
	}
}

// recount fetches the authoritative unread count.
func (m Model) recount() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		count, err := client.GetUnreadCount(ctx)
		return recountMsg{count: count, err: err}
	}
}

// persistCache writes the current feed to the local cache.
func (m Model) persistCache() tea.Cmd {
	cache := m.cache
	if cache == nil {
		return nil
	}
	notifications := m.feed.Items()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_ = cache.ReplaceNotifications(ctx, notifications)
		return nil
	}
}

// announceUnread reports the local unread count to the root model.
func (m Model) announceUnread() tea.Cmd {
	count := m.feed.Unread()
	return func() tea.Msg {
		return UnreadChangedMsg{Count: count}
	}
}

// View renders the notifications list.
func (m Model) View() string {
	view := m.list.View()
	if m.statusMsg != "" {
		view += "\n" + theme.ErrorStyle.Render(m.statusMsg)
	}
	return view
}
