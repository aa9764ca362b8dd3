package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/keys"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/session"
	"github.com/cloudsync/cloudsync/internal/store"
	syncpkg "github.com/cloudsync/cloudsync/internal/sync"
	"github.com/cloudsync/cloudsync/internal/ui"
	"github.com/cloudsync/cloudsync/internal/ui/admin"
	"github.com/cloudsync/cloudsync/internal/ui/conflicts"
	"github.com/cloudsync/cloudsync/internal/ui/devices"
	"github.com/cloudsync/cloudsync/internal/ui/files"
	"github.com/cloudsync/cloudsync/internal/ui/login"
	"github.com/cloudsync/cloudsync/internal/ui/notifications"
	"github.com/cloudsync/cloudsync/internal/ui/settings"
	"github.com/cloudsync/cloudsync/internal/ws"
)

// view identifies the active screen.
type view int

const (
	viewLogin view = iota
	viewFiles
	viewNotifications
	viewDevices
	viewConflicts
	viewSettings
	viewAdmin
)

// wsEventMsg is one notification pulled off the live feed.
type wsEventMsg struct {
	notification model.Notification
}

// wsClosedMsg is sent when the feed channel is closed and the event pump
// should stop.
type wsClosedMsg struct{}

// connectedMsg reports the outcome of a feed connection attempt.
type connectedMsg struct {
	err error
}

// loggedOutMsg is sent when the logout round trip finished.
type loggedOutMsg struct{}

// cachedUnreadMsg seeds the header badge from the local cache while the
// first poll is still in flight.
type cachedUnreadMsg struct {
	count int
}

// Model is the root application model. It routes messages between the
// screens, runs the feed event pump, and keeps the header badge in sync
// with both the polled unread count and the notification view's local
// feed.
type Model struct {
	cfg      *model.AppConfig
	client   *api.Client
	sessions *session.Store
	cache    *store.Cache
	feed     *ws.Client
	poller   *syncpkg.Poller
	keys     *keys.KeyMap

	active        view
	login         login.Model
	files         files.Model
	notifications notifications.Model
	devices       devices.Model
	conflicts     conflicts.Model
	settings      settings.Model
	admin         admin.Model

	layout     ui.Layout
	unread     int
	unreadLive bool
	quota      model.Quota
	width      int
	height     int
}

// New assembles the root model. The cache may be nil when the local
// database could not be opened; views degrade to server-only mode.
func New(
	cfg *model.AppConfig,
	client *api.Client,
	sessions *session.Store,
	cache *store.Cache,
	feed *ws.Client,
	poller *syncpkg.Poller,
) Model {
	k := keys.Default()

	m := Model{
		cfg:      cfg,
		client:   client,
		sessions: sessions,
		cache:    cache,
		feed:     feed,
		poller:   poller,
		keys:     k,
		active:   viewLogin,
		login:    login.New(client),
	}

	if _, ok := sessions.Current(); ok {
		m.active = viewNotifications
	}
	return m
}

// Init starts the login form, or the authenticated session when a
// persisted session was restored from the keyring.
func (m Model) Init() tea.Cmd {
	if m.active == viewLogin {
		return m.login.Init()
	}
	return m.startSession()
}

// startSession brings up everything an authenticated session needs: the
// live feed, the pollers, the device registration, and the content views.
func (m *Model) startSession() tea.Cmd {
	m.files = files.New(m.client, m.cache, m.keys, m.contentWidth(), m.contentHeight())
	m.notifications = notifications.New(m.client, m.cache, m.keys, m.contentWidth(), m.contentHeight())
	m.devices = devices.New(m.client, m.cache, m.keys, m.contentWidth(), m.contentHeight())
	m.conflicts = conflicts.New(m.client, m.keys, m.contentWidth(), m.contentHeight())
	m.settings = settings.New(m.client, m.keys, m.contentWidth(), m.contentHeight())
	m.admin = admin.New(m.client, m.keys, m.contentWidth(), m.contentHeight())

	cmds := []tea.Cmd{
		m.connectFeed(),
		m.pumpEvents(),
		m.poller.Start(),
		m.registerDeviceIfNeeded(),
		m.seedUnread(),
		m.files.Init(),
		m.notifications.Init(),
		m.devices.Init(),
		m.conflicts.Init(),
		m.settings.Init(),
	}
	if m.isAdmin() {
		cmds = append(cmds, m.admin.Init())
	}
	return tea.Batch(cmds...)
}

// connectFeed dials the notification feed with the current access token.
func (m Model) connectFeed() tea.Cmd {
	feed := m.feed
	token := m.sessions.AccessToken()
	return func() tea.Msg {
		return connectedMsg{err: feed.Connect(token)}
	}
}

// pumpEvents blocks on the feed channel and hands the next notification
// to the Update loop. It reissues itself until the channel closes.
func (m Model) pumpEvents() tea.Cmd {
	events := m.feed.Events()
	return func() tea.Msg {
		n, ok := <-events
		if !ok {
			return wsClosedMsg{}
		}
		return wsEventMsg{notification: n}
	}
}

// seedUnread reads the cached unread count so the header badge has a
// value before the first poll lands.
func (m Model) seedUnread() tea.Cmd {
	cache := m.cache
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		count, err := cache.UnreadNotificationCount(ctx)
		if err != nil {
			return nil
		}
		return cachedUnreadMsg{count: count}
	}
}

// registerDeviceIfNeeded registers this machine as a sync endpoint on
// first run, remembering the registration in the local cache.
func (m Model) registerDeviceIfNeeded() tea.Cmd {
	cache := m.cache
	client := m.client
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		registered, err := cache.IsDeviceRegistered(ctx)
		if err != nil || registered {
			return nil
		}
		return devices.Register(client)()
	}
}

// shutdownSession tears down the authenticated session: intentional feed
// close (which clears subscriptions), poller stop, keyring clear, and a
// best-effort server logout.
func (m Model) shutdownSession() tea.Cmd {
	feed := m.feed
	poller := m.poller
	client := m.client
	return func() tea.Msg {
		feed.Disconnect()
		poller.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Logout(ctx)
		return loggedOutMsg{}
	}
}

// toLogin swaps back to a fresh login form.
func (m *Model) toLogin() {
	m.active = viewLogin
	m.login = login.New(m.client)
	m.login.SetSize(m.contentWidth(), m.contentHeight())
	m.unread = 0
	m.unreadLive = false
	m.quota = model.Quota{}
}

// Update routes messages to the active screen and handles the global
// concerns: feed events, poll results, session expiry, and navigation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.login.SetSize(m.contentWidth(), m.contentHeight())
		if m.active != viewLogin {
			m.files.SetSize(m.contentWidth(), m.contentHeight())
			m.notifications.SetSize(m.contentWidth(), m.contentHeight())
			m.devices.SetSize(m.contentWidth(), m.contentHeight())
			m.conflicts.SetSize(m.contentWidth(), m.contentHeight())
			m.settings.SetSize(m.contentWidth(), m.contentHeight())
			m.admin.SetSize(m.contentWidth(), m.contentHeight())
		}
		return m, nil

	case login.AuthenticatedMsg:
		m.active = viewNotifications
		return m, m.startSession()

	case connectedMsg:
		// Connection failures surface through the header indicator; the
		// client retries on its own reconnect schedule.
		return m, nil

	case wsEventMsg:
		var cmd tea.Cmd
		m.notifications, cmd = m.notifications.Update(notifications.EventMsg{
			Notification: msg.notification,
		})
		return m, tea.Batch(cmd, m.pumpEvents())

	case wsClosedMsg:
		return m, nil

	case devices.RegisteredMsg:
		if msg.Err == nil && m.cache != nil {
			cache := m.cache
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = cache.MarkDeviceRegistered(ctx)
				return nil
			}
		}
		return m, nil

	case cachedUnreadMsg:
		if !m.unreadLive {
			m.unread = msg.count
		}
		return m, nil

	case notifications.UnreadChangedMsg:
		m.unread = msg.Count
		m.unreadLive = true
		return m, nil

	case syncpkg.UnreadCountMsg:
		if msg.Err == nil {
			m.unread = msg.Count
			m.unreadLive = true
		}
		return m, m.poller.WaitForNextResult()

	case syncpkg.QuotaMsg:
		if msg.Err == nil {
			m.quota = msg.Quota
		}
		return m, m.poller.WaitForNextResult()

	case syncpkg.SessionExpiredMsg, ui.SessionExpiredMsg:
		m.feed.Disconnect()
		m.poller.Stop()
		m.toLogin()
		return m, m.login.Init()

	case settings.AccountDeletedMsg:
		if msg.Err != nil {
			return m.updateActive(msg)
		}
		m.feed.Disconnect()
		m.poller.Stop()
		_ = m.sessions.Clear()
		m.toLogin()
		return m, m.login.Init()

	case loggedOutMsg:
		m.toLogin()
		return m, m.login.Init()

	case tea.KeyMsg:
		if handled, next, cmd := m.handleGlobalKeys(msg); handled {
			return next, cmd
		}
	}

	return m.updateActive(msg)
}

// handleGlobalKeys processes navigation and session keys that apply on
// every screen. Keys are passed through while a list filter or a text
// prompt is capturing input.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (bool, tea.Model, tea.Cmd) {
	if m.active == viewFiles && (m.files.Filtering() || m.files.Editing()) {
		return false, m, nil
	}
	if m.active == viewSettings && m.settings.Editing() {
		return false, m, nil
	}
	if m.active == viewAdmin && m.admin.Filtering() {
		return false, m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return true, m, tea.Quit

	case key.Matches(msg, m.keys.Logout):
		if m.active == viewLogin {
			return false, m, nil
		}
		return true, m, m.shutdownSession()
	}

	if m.active == viewLogin {
		return false, m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Files):
		m.active = viewFiles
		return true, m, nil

	case key.Matches(msg, m.keys.Notifications):
		m.active = viewNotifications
		return true, m, nil

	case key.Matches(msg, m.keys.Devices):
		m.active = viewDevices
		return true, m, nil

	case key.Matches(msg, m.keys.Conflicts):
		m.active = viewConflicts
		return true, m, nil

	case key.Matches(msg, m.keys.Settings):
		m.active = viewSettings
		return true, m, nil

	case key.Matches(msg, m.keys.Admin):
		if !m.isAdmin() {
			return false, m, nil
		}
		m.active = viewAdmin
		return true, m, nil
	}

	return false, m, nil
}

// isAdmin reports whether the current session carries an admin role.
func (m Model) isAdmin() bool {
	sess, ok := m.sessions.Current()
	return ok && sess.IsAdmin()
}

// updateActive forwards a message to the active screen only. Background
// messages addressed to other screens are handled in Update before this.
func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.active {
	case viewLogin:
		m.login, cmd = m.login.Update(msg)
	case viewFiles:
		m.files, cmd = m.files.Update(msg)
	case viewNotifications:
		m.notifications, cmd = m.notifications.Update(msg)
	case viewDevices:
		m.devices, cmd = m.devices.Update(msg)
	case viewConflicts:
		m.conflicts, cmd = m.conflicts.Update(msg)
	case viewSettings:
		m.settings, cmd = m.settings.Update(msg)
	case viewAdmin:
		m.admin, cmd = m.admin.Update(msg)
	}
	return m, cmd
}

func (m Model) contentWidth() int {
	if m.width == 0 {
		return 80
	}
	return m.layout.ContentWidth()
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 24
	}
	return m.layout.ContentHeight()
}

// hints returns the status-bar key hints for the active screen.
func (m Model) hints() string {
	views := "f/n/v/c/s views"
	if m.isAdmin() {
		views = "f/n/v/c/s/A views"
	}
	switch m.active {
	case viewFiles:
		return "enter open · u upload · N folder · e rename · o link · x/p move · h versions · d delete · " + views + " · q quit"
	case viewNotifications:
		return "m read · M all read · d delete · u unread · " + views + " · q quit"
	case viewDevices:
		return "enter status · p pull · d unregister · r refresh · " + views + " · q quit"
	case viewConflicts:
		return "1 keep server · 2 keep this device · r refresh · " + views + " · q quit"
	case viewSettings:
		return "e name · 1/2/3 notify · t metered · b email · d delete account · " + views + " · q quit"
	case viewAdmin:
		return "enter detail · b block · +/- quota · g plan · w admin role · t stats · a active · " + views + " · q quit"
	default:
		return "ctrl+r toggle register · q quit"
	}
}

// View renders the active screen inside the shared frame.
func (m Model) View() string {
	if m.active == viewLogin {
		return m.login.View()
	}

	var content string
	switch m.active {
	case viewFiles:
		content = m.files.View()
	case viewNotifications:
		content = m.notifications.View()
	case viewDevices:
		content = m.devices.View()
	case viewConflicts:
		content = m.conflicts.View()
	case viewSettings:
		content = m.settings.View()
	case viewAdmin:
		content = m.admin.View()
	}

	header := m.layout.RenderHeader(
		"CloudSync",
		m.layout.HeaderStatus(m.unread, m.quota, m.feed.IsConnected()),
	)
	return m.layout.RenderWithFrame(
		header,
		content,
		m.layout.RenderStatusBar(m.hints()),
	)
}
