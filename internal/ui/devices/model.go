package devices

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/keys"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/store"
	"github.com/cloudsync/cloudsync/internal/theme"
	"github.com/cloudsync/cloudsync/internal/ui"
)

const requestTimeout = 30 * time.Second

// DevicesLoadedMsg is sent when the device list has been fetched.
type DevicesLoadedMsg struct {
	Devices []model.Device
	Err     error
}

// RegisteredMsg is sent once the local device has been registered as a
// sync endpoint.
type RegisteredMsg struct {
	Device model.Device
	Err    error
}

// unregisterDoneMsg reports the backend outcome of an unregister.
type unregisterDoneMsg struct {
	err error
}

// statusMsg carries a device's position in the change stream.
type statusMsg struct {
	device model.Device
	status model.SyncStatus
	err    error
}

// pullDoneMsg reports the outcome of a manual metadata pull.
type pullDoneMsg struct {
	pulled int
	cursor string
	err    error
}

// Item wraps a device for the list widget.
type Item struct {
	model.Device
	selfName string
}

func (i Item) Title() string {
	marker := "  "
	if i.DeviceName == i.selfName {
		marker = "● "
	}
	return marker + i.DeviceName
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%s / %s · last seen %s", i.DeviceType, i.OS, relativeAge(i.LastSeenAt))
	if i.DeviceName == i.selfName {
		desc += " · this device"
	}
	return desc
}

func (i Item) FilterValue() string { return i.DeviceName }

func relativeAge(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// Model is the registered-devices view.
type Model struct {
	client   *api.Client
	cache    *store.Cache
	keys     *keys.KeyMap
	selfName string

	list      list.Model
	statusMsg string
}

// New creates the devices view.
func New(client *api.Client, cache *store.Cache, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.SelectedItemStyle
	delegate.Styles.SelectedDesc = theme.SelectedItemStyle.Foreground(theme.ColorGray)

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Devices"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		client:   client,
		cache:    cache,
		keys:     k,
		selfName: DeviceName(),
		list:     l,
	}
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}

// Init loads the device list.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		devices, err := client.ListDevices(ctx)
		return DevicesLoadedMsg{Devices: devices, Err: err}
	}
}

// Register registers the local machine with the sync service.
func Register(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		device, err := client.RegisterDevice(ctx, model.RegisterDeviceRequest{
			DeviceName: DeviceName(),
			DeviceType: "cli",
			OS:         runtime.GOOS,
			OSVersion:  runtime.GOARCH,
		})
		return RegisteredMsg{Device: device, Err: err}
	}
}

// DeviceName returns the name this client registers under.
func DeviceName() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "cloudsync-cli"
	}
	return name
}

// Update handles messages for the devices view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DevicesLoadedMsg:
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading devices: %v", msg.Err)
			return m, nil
		}
		m.statusMsg = ""
		items := make([]list.Item, len(msg.Devices))
		for i, d := range msg.Devices {
			items[i] = Item{Device: d, selfName: m.selfName}
		}
		return m, m.list.SetItems(items)

	case unregisterDoneMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error unregistering: %v", msg.err)
			return m, nil
		}
		return m, m.load()

	case statusMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading sync status: %v", msg.err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("%s: %d pending changes, last sync %s",
			msg.device.DeviceName, msg.status.PendingChanges, relativeAge(msg.status.LastSyncAt))
		return m, nil

	case pullDoneMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error pulling changes: %v", msg.err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Pulled %d changes", msg.pulled)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()

		case key.Matches(msg, m.keys.Select):
			item, ok := m.list.SelectedItem().(Item)
			if !ok {
				return m, nil
			}
			return m, m.fetchStatus(item.Device)

		case key.Matches(msg, m.keys.Pull):
			return m, m.pullChanges()

		case key.Matches(msg, m.keys.Delete):
			item, ok := m.list.SelectedItem().(Item)
			if !ok {
				return m, nil
			}
			if item.DeviceName == m.selfName {
				m.statusMsg = "Cannot unregister this device while it is in use"
				return m, nil
			}
			return m, m.unregister(item.ID)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) unregister(deviceID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		return unregisterDoneMsg{err: client.UnregisterDevice(ctx, deviceID)}
	}
}

// fetchStatus reads a device's position in the change stream.
func (m Model) fetchStatus(device model.Device) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		status, err := client.GetSyncStatus(ctx, device.ID)
		return statusMsg{device: device, status: status, err: err}
	}
}

// pullChanges fetches metadata changes for this device from the stored
// cursor onward and advances the cursor. The client mirrors metadata
// only; content transfer stays on the download/upload paths.
func (m Model) pullChanges() tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if cache == nil {
			return pullDoneMsg{err: fmt.Errorf("local cache unavailable")}
		}
		deviceID, err := cache.DeviceID(ctx)
		if err != nil {
			return pullDoneMsg{err: err}
		}
		cursor, err := cache.GetSyncCursor(ctx, deviceID)
		if err != nil {
			return pullDoneMsg{err: err}
		}

		pulled := 0
		for {
			result, err := client.PullChanges(ctx, deviceID, cursor)
			if err != nil {
				return pullDoneMsg{pulled: pulled, err: err}
			}
			pulled += len(result.Changes)
			cursor = result.Cursor
			if err := cache.SaveSyncCursor(ctx, deviceID, cursor); err != nil {
				return pullDoneMsg{pulled: pulled, err: err}
			}
			if !result.HasMore {
				return pullDoneMsg{pulled: pulled, cursor: cursor}
			}
		}
	}
}

// View renders the devices view.
func (m Model) View() string {
	view := m.list.View()
	if m.statusMsg != "" {
		view += "\n" + theme.HelpStyle.Render(m.statusMsg)
	}
	return view
}
