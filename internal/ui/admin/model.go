package admin

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
	"github.com/cloudsync/cloudsync/internal/theme"
	"github.com/cloudsync/cloudsync/internal/ui"
)

const requestTimeout = 30 * time.Second

// quotaStep is how much one quota adjustment adds or removes.
const quotaStep = int64(1) << 30

// UsersLoadedMsg is sent when a page of user records has been fetched.
type UsersLoadedMsg struct {
	Page   model.AdminUserPage
	Active bool
	Err    error
}

// statsMsg carries system and storage statistics for the status line.
type statsMsg struct {
	stats   model.SystemStats
	storage map[string]any
	err     error
}

// userDetailMsg carries one user's detailed record.
type userDetailMsg struct {
	user model.AdminUser
	err  error
}

// actionDoneMsg reports the outcome of an administrative action.
type actionDoneMsg struct {
	status string
	err    error
}

// Item wraps an admin user record for the list widget.
type Item struct {
	model.AdminUser
}

func (i Item) Title() string {
	title := i.Name
	if title == "" {
		title = i.Email
	}
	if i.Blocked {
		title += " (blocked)"
	}
	return title
}

func (i Item) Description() string {
	return fmt.Sprintf("%s · %s · %s of %s used",
		i.Email, i.Plan, humanSize(i.StorageUsed), humanSize(i.StorageQuota))
}

func (i Item) FilterValue() string { return i.Email }

func humanSize(size int64) string {
	switch {
	case size >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(size)/(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

// plans lists the subscription plans the plan key cycles through.
var plans = []string{"free", "pro", "business"}

// Model is the administration view. The backend enforces the admin role
// on every endpoint; the root model additionally hides this view from
// non-admin sessions.
type Model struct {
	client *api.Client
	keys   *keys.KeyMap

	list       list.Model
	activeOnly bool
	statusMsg  string
}

// New creates the admin view.
func New(client *api.Client, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.SelectedItemStyle
	delegate.Styles.SelectedDesc = theme.SelectedItemStyle.Foreground(theme.ColorGray)

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Administration"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		client: client,
		keys:   k,
		list:   l,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// Filtering reports whether the list filter input is capturing keys.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Init loads the user listing.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// load fetches either the full user listing or only recently active users.
func (m Model) load() tea.Cmd {
	client := m.client
	activeOnly := m.activeOnly
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if activeOnly {
			page, err := client.AdminGetActiveUsers(ctx, 60)
			return UsersLoadedMsg{Page: page, Active: true, Err: err}
		}
		page, err := client.AdminListUsers(ctx, model.AdminUserQuery{
			PageSize: 100,
			SortBy:   "email",
		})
		return UsersLoadedMsg{Page: page, Err: err}
	}
}

// Update handles messages for the admin view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case UsersLoadedMsg:
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading users: %v", msg.Err)
			return m, nil
		}
		m.statusMsg = ""
		items := make([]list.Item, len(msg.Page.Users))
		for i, u := range msg.Page.Users {
			items[i] = Item{AdminUser: u}
		}
		if msg.Active {
			m.list.Title = "Administration (active last hour)"
		} else {
			m.list.Title = "Administration"
		}
		return m, m.list.SetItems(items)

	case statsMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading statistics: %v", msg.err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("%d users (%d active) · %d files · %s stored · storage nodes: %d",
			msg.stats.TotalUsers, msg.stats.ActiveUsers, msg.stats.TotalFiles,
			humanSize(msg.stats.TotalStorage), len(msg.storage))
		return m, nil

	case userDetailMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading user: %v", msg.err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("%s · roles %v · joined %s · last active %s",
			msg.user.Email, msg.user.Roles,
			msg.user.CreatedAt.Format("2006-01-02"),
			msg.user.LastActiveAt.Format("2006-01-02 15:04"))
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.statusMsg = msg.status
		return m, m.load()

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
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
		return m, m.load()

	case key.Matches(msg, m.keys.Select):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.fetchDetail(item.ID)
	}

	switch msg.String() {
	case "b":
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.toggleBlock(item.AdminUser)
	case "+":
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.adjustQuota(item.AdminUser, quotaStep)
	case "-":
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.adjustQuota(item.AdminUser, -quotaStep)
	case "g":
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.cyclePlan(item.AdminUser)
	case "w":
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.toggleAdminRole(item.AdminUser)
	case "t":
		return m, m.fetchStats()
	case "a":
		m.activeOnly = !m.activeOnly
		return m, m.load()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) selected() (Item, bool) {
	item, ok := m.list.SelectedItem().(Item)
	return item, ok
}

// fetchDetail loads one user's full record.
func (m Model) fetchDetail(userID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		user, err := client.AdminGetUser(ctx, userID)
		return userDetailMsg{user: user, err: err}
	}
}

// fetchStats loads system and storage statistics.
func (m Model) fetchStats() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		stats, err := client.AdminGetSystemStats(ctx, 0, 0)
		if err != nil {
			return statsMsg{err: err}
		}
		var storage map[string]any
		if err := client.AdminGetStorageStats(ctx, &storage); err != nil {
			return statsMsg{err: err}
		}
		return statsMsg{stats: stats, storage: storage}
	}
}

// toggleBlock blocks or unblocks a user.
func (m Model) toggleBlock(user model.AdminUser) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if user.Blocked {
			err := client.AdminUnblockUser(ctx, user.ID)
			return actionDoneMsg{status: fmt.Sprintf("Unblocked %s", user.Email), err: err}
		}
		err := client.AdminBlockUser(ctx, user.ID, "blocked from admin console")
		return actionDoneMsg{status: fmt.Sprintf("Blocked %s", user.Email), err: err}
	}
}

// adjustQuota grows or shrinks a user's storage quota by one step.
func (m Model) adjustQuota(user model.AdminUser, delta int64) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		newQuota := user.StorageQuota + delta
		if newQuota < 0 {
			newQuota = 0
		}
		err := client.AdminUpdateUserQuota(ctx, user.ID, newQuota)
		return actionDoneMsg{
			status: fmt.Sprintf("Quota for %s set to %s", user.Email, humanSize(newQuota)),
			err:    err,
		}
	}
}

// cyclePlan moves a user to the next subscription plan.
func (m Model) cyclePlan(user model.AdminUser) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		next := plans[0]
		for i, p := range plans {
			if p == user.Plan {
				next = plans[(i+1)%len(plans)]
				break
			}
		}
		err := client.AdminChangeUserPlan(ctx, user.ID, next)
		return actionDoneMsg{
			status: fmt.Sprintf("Moved %s to the %s plan", user.Email, next),
			err:    err,
		}
	}
}

// toggleAdminRole grants or revokes the ADMIN role.
func (m Model) toggleAdminRole(user model.AdminUser) tea.Cmd {
	client := m.client
	hasRole := false
	for _, r := range user.Roles {
		if r == "ADMIN" || r == "ROLE_ADMIN" {
			hasRole = true
			break
		}
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if hasRole {
			err := client.AdminRevokeRole(ctx, user.ID, "ADMIN")
			return actionDoneMsg{status: fmt.Sprintf("Revoked ADMIN from %s", user.Email), err: err}
		}
		err := client.AdminAssignRole(ctx, user.ID, "ADMIN")
		return actionDoneMsg{status: fmt.Sprintf("Granted ADMIN to %s", user.Email), err: err}
	}
}

// View renders the admin view.
func (m Model) View() string {
	view := m.list.View()
	if m.statusMsg != "" {
		view += "\n" + theme.HelpStyle.Render(m.statusMsg)
	}
	return view
}
