package conflicts

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

// LoadedMsg is sent when the conflict list has been fetched.
type LoadedMsg struct {
	Conflicts []model.Conflict
	Err       error
}

// resolvedMsg reports the backend outcome of a resolution.
type resolvedMsg struct {
	fileName string
	keep     string
	err      error
}

// Item wraps a conflict for the list widget.
type Item struct {
	model.Conflict
}

func (i Item) Title() string {
	return i.FileName
}

func (i Item) Description() string {
	return fmt.Sprintf("server v%d vs this device v%d · detected %s",
		i.ServerVersion, i.ClientVersion, i.DetectedAt.Format("2006-01-02 15:04"))
}

func (i Item) FilterValue() string { return i.FileName }

// Model is the sync conflicts view.
type Model struct {
	client *api.Client
	keys   *keys.KeyMap

	list      list.Model
	statusMsg string
}

// New creates the conflicts view.
func New(client *api.Client, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.SelectedItemStyle
	delegate.Styles.SelectedDesc = theme.SelectedItemStyle.Foreground(theme.ColorGray)

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Sync conflicts"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
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

// Init loads the conflict list.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		conflicts, err := client.ListConflicts(ctx)
		return LoadedMsg{Conflicts: conflicts, Err: err}
	}
}

// Update handles messages for the conflicts view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading conflicts: %v", msg.Err)
			return m, nil
		}
		m.statusMsg = ""
		items := make([]list.Item, len(msg.Conflicts))
		for i, c := range msg.Conflicts {
			items[i] = Item{Conflict: c}
		}
		return m, m.list.SetItems(items)

	case resolvedMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error resolving: %v", msg.err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("Kept the %s version of %s", msg.keep, msg.fileName)
		return m, m.load()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()
		}
		switch msg.String() {
		case "1":
			return m.resolveSelected("server")
		case "2":
			return m.resolveSelected("client")
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// resolveSelected settles the focused conflict in favor of one side.
func (m Model) resolveSelected(keep string) (Model, tea.Cmd) {
	item, ok := m.list.SelectedItem().(Item)
	if !ok {
		return m, nil
	}
	client := m.client
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		err := client.ResolveConflict(ctx, item.ID, keep, "")
		return resolvedMsg{fileName: item.FileName, keep: keep, err: err}
	}
}

// View renders the conflicts list.
func (m Model) View() string {
	view := m.list.View()
	if m.statusMsg != "" {
		view += "\n" + theme.HelpStyle.Render(m.statusMsg)
	}
	return view
}
