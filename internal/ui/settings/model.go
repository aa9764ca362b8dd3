package settings

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/keys"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/theme"
	"github.com/cloudsync/cloudsync/internal/ui"
)

const requestTimeout = 30 * time.Second

// LoadedMsg carries the profile, settings, and notification preferences
// shown by this view.
type LoadedMsg struct {
	Profile  api.User
	Settings model.UserSettings
	Prefs    model.NotificationPreferences
	Err      error
}

// AccountDeletedMsg tells the root model the account is gone and the
// session must end.
type AccountDeletedMsg struct {
	Err error
}

// savedMsg reports the outcome of persisting a change.
type savedMsg struct {
	status string
	err    error
}

// profileSavedMsg carries the profile after a rename.
type profileSavedMsg struct {
	profile api.User
	err     error
}

// Model is the account settings view.
type Model struct {
	client *api.Client
	keys   *keys.KeyMap

	profile  api.User
	settings model.UserSettings
	prefs    model.NotificationPreferences
	loaded   bool

	input         textinput.Model
	editing       bool
	confirmDelete bool
	statusMsg     string
	width         int
	height        int
}

// New creates the settings view.
func New(client *api.Client, k *keys.KeyMap, width, height int) Model {
	input := textinput.New()
	input.Placeholder = "display name"
	input.CharLimit = 128

	return Model{
		client: client,
		keys:   k,
		input:  input,
		width:  width,
		height: height,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Editing reports whether the text prompt is capturing keys.
func (m Model) Editing() bool {
	return m.editing
}

// Init fetches everything the view shows.
func (m Model) Init() tea.Cmd {
	return m.load()
}

// load fetches profile, settings, and notification preferences in one
// command so the view appears fully populated.
func (m Model) load() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		profile, err := client.GetCurrentUser(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		settings, err := client.GetUserSettings(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		prefs, err := client.GetNotificationPreferences(ctx)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		return LoadedMsg{Profile: profile, Settings: settings, Prefs: prefs}
	}
}

// Update handles messages for the settings view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading settings: %v", msg.Err)
			return m, nil
		}
		m.profile = msg.Profile
		m.settings = msg.Settings
		m.prefs = msg.Prefs
		m.loaded = true
		m.statusMsg = ""
		return m, nil

	case AccountDeletedMsg:
		// The root model ends the session on success; only failures come
		// back here.
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error deleting account: %v", msg.Err)
		}
		return m, nil

	case savedMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, m.load()
		}
		m.statusMsg = msg.status
		return m, nil

	case profileSavedMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			return m, nil
		}
		m.profile = msg.profile
		m.statusMsg = "Profile updated"
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.handleInputKeys(msg)
		}
		return m.handleKeys(msg)
	}

	return m, nil
}

// handleKeys dispatches view-local keybindings.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.confirmDelete && !key.Matches(msg, m.keys.Delete) {
		m.confirmDelete = false
		m.statusMsg = ""
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()

	case key.Matches(msg, m.keys.Rename):
		m.editing = true
		m.input.SetValue(m.profile.Name)
		m.input.Focus()
		m.statusMsg = ""
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		if !m.confirmDelete {
			m.confirmDelete = true
			m.statusMsg = "Delete this account and all its files? Press d again to confirm"
			return m, nil
		}
		m.confirmDelete = false
		return m, m.deleteAccount()
	}

	switch msg.String() {
	case "1":
		m.prefs.EmailEnabled = !m.prefs.EmailEnabled
		return m, m.savePrefs()
	case "2":
		m.prefs.PushEnabled = !m.prefs.PushEnabled
		return m, m.savePrefs()
	case "3":
		m.prefs.InAppEnabled = !m.prefs.InAppEnabled
		return m, m.savePrefs()
	case "t":
		m.settings.SyncOnMetered = !m.settings.SyncOnMetered
		return m, m.saveSettings()
	case "b":
		m.settings.NotifyByEmail = !m.settings.NotifyByEmail
		return m, m.saveSettings()
	}
	return m, nil
}

// handleInputKeys feeds keys into the rename prompt.
func (m Model) handleInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.editing = false
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		name := m.input.Value()
		m.editing = false
		m.input.Blur()
		if name == "" || name == m.profile.Name {
			return m, nil
		}
		return m, m.saveProfile(name)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// saveProfile persists a display name change.
func (m Model) saveProfile(name string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		profile, err := client.UpdateCurrentUser(ctx, name, "")
		return profileSavedMsg{profile: profile, err: err}
	}
}

// saveSettings persists the server-side settings.
func (m Model) saveSettings() tea.Cmd {
	client := m.client
	settings := m.settings
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := client.UpdateUserSettings(ctx, settings)
		return savedMsg{status: "Settings saved", err: err}
	}
}

// savePrefs persists the notification delivery preferences.
func (m Model) savePrefs() tea.Cmd {
	client := m.client
	prefs := m.prefs
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := client.UpdateNotificationPreferences(ctx, prefs)
		return savedMsg{status: "Preferences saved", err: err}
	}
}

// deleteAccount deletes the account server-side; the root model tears the
// session down when it succeeds.
func (m Model) deleteAccount() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return AccountDeletedMsg{Err: client.DeleteCurrentUser(ctx)}
	}
}

// View renders the settings sections.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(theme.HeaderStyle.Render("Settings"))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString(theme.HelpStyle.Render("Loading..."))
		return b.String()
	}

	b.WriteString(theme.ListItemStyle.Render("Profile"))
	b.WriteString("\n")
	if m.editing {
		b.WriteString(fmt.Sprintf("  Name:     %s\n", m.input.View()))
	} else {
		b.WriteString(fmt.Sprintf("  Name:     %s\n", m.profile.Name))
	}
	b.WriteString(fmt.Sprintf("  Email:    %s\n", m.profile.Email))
	b.WriteString(fmt.Sprintf("  Plan:     %s\n\n", m.profile.Plan))

	b.WriteString(theme.ListItemStyle.Render("Sync"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  Language: %s · Timezone: %s · Shares default to %q\n",
		m.settings.Language, m.settings.Timezone, m.settings.DefaultShareAs))
	b.WriteString(fmt.Sprintf("  [t] Sync on metered connections:  %s\n", onOff(m.settings.SyncOnMetered)))
	b.WriteString(fmt.Sprintf("  [b] Email me about sync issues:   %s\n\n", onOff(m.settings.NotifyByEmail)))

	b.WriteString(theme.ListItemStyle.Render("Notifications"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  [1] Email:   %s\n", onOff(m.prefs.EmailEnabled)))
	b.WriteString(fmt.Sprintf("  [2] Push:    %s\n", onOff(m.prefs.PushEnabled)))
	b.WriteString(fmt.Sprintf("  [3] In-app:  %s\n", onOff(m.prefs.InAppEnabled)))

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render(m.statusMsg))
	}
	return b.String()
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
