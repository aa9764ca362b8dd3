package files

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/keys"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/store"
	"github.com/cloudsync/cloudsync/internal/theme"
	"github.com/cloudsync/cloudsync/internal/ui"
)

const requestTimeout = 30 * time.Second

// ListingLoadedMsg is sent when a folder listing has been fetched.
type ListingLoadedMsg struct {
	ParentFolderID string
	Page           model.FilePage
	Err            error
}

// DownloadLinkMsg carries a pre-signed (and host-rewritten) download URL
// for the selected file.
type DownloadLinkMsg struct {
	FileName  string
	Presigned model.PresignedURL
	Err       error
}

// cacheLoadedMsg carries the locally cached listing shown until the first
// fetch lands.
type cacheLoadedMsg struct {
	parentFolderID string
	files          []model.FileInfo
}

// actionDoneMsg reports the outcome of a mutation (create, rename, move,
// share, restore, upload). A successful action reloads the folder.
type actionDoneMsg struct {
	status string
	err    error
}

// deleteDoneMsg reports the backend outcome of a delete.
type deleteDoneMsg struct {
	err error
}

// detailMsg carries fresh metadata for the selected file. The listing
// entry may come from the local cache, so details are refetched.
type detailMsg struct {
	file model.FileInfo
	err  error
}

// historyMsg carries a file's version history.
type historyMsg struct {
	fileName string
	versions []model.FileVersion
	err      error
}

// inputPurpose says what the text prompt is collecting.
type inputPurpose int

const (
	inputNone inputPurpose = iota
	inputNewFolder
	inputRename
	inputShare
	inputUpload
)

// crumb is one step of the folder navigation trail.
type crumb struct {
	folderID string
	name     string
}

// Model is the file browser view.
type Model struct {
	client *api.Client
	cache  *store.Cache
	keys   *keys.KeyMap

	list      list.Model
	trail     []crumb
	loaded    bool
	statusMsg string

	input       textinput.Model
	inputMode   inputPurpose
	inputTarget Item

	pendingMoveID   string
	pendingMoveName string

	width  int
	height int
}

// New creates the file browser at the root folder.
func New(client *api.Client, cache *store.Cache, k *keys.KeyMap, width, height int) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = theme.SelectedItemStyle
	delegate.Styles.SelectedDesc = theme.SelectedItemStyle.Foreground(theme.ColorGray)

	l := list.New([]list.Item{}, delegate, width, height)
	l.Title = "Files"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = theme.HeaderStyle

	input := textinput.New()
	input.CharLimit = 512

	return Model{
		client: client,
		cache:  cache,
		keys:   k,
		list:   l,
		input:  input,
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

// Filtering reports whether the list filter input is capturing keys.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Editing reports whether the text prompt is capturing keys.
func (m Model) Editing() bool {
	return m.inputMode != inputNone
}

// Init shows the cached root listing immediately and fetches the live one.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCache(""), m.load(""))
}

// currentFolder returns the folder the view is showing ("" at the root).
func (m Model) currentFolder() string {
	if len(m.trail) == 0 {
		return ""
	}
	return m.trail[len(m.trail)-1].folderID
}

// load fetches a folder listing.
func (m Model) load(parentFolderID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		page, err := client.ListFiles(ctx, api.ListFilesOptions{
			ParentFolderID: parentFolderID,
			Limit:          200,
		})
		return ListingLoadedMsg{ParentFolderID: parentFolderID, Page: page, Err: err}
	}
}

// loadCache reads the locally cached listing for instant first paint.
func (m Model) loadCache(parentFolderID string) tea.Cmd {
	cache := m.cache
	if cache == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		cached, err := cache.GetFiles(ctx, parentFolderID)
		if err != nil || len(cached) == 0 {
			return nil
		}
		return cacheLoadedMsg{parentFolderID: parentFolderID, files: cached}
	}
}

// Update handles messages for the file browser.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case cacheLoadedMsg:
		// Only seed from cache while the live listing has not arrived
		// and the user has not navigated elsewhere.
		if m.loaded || msg.parentFolderID != m.currentFolder() {
			return m, nil
		}
		return m, m.setItems(msg.files)

	case ListingLoadedMsg:
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading files: %v", msg.Err)
			return m, nil
		}
		if msg.ParentFolderID != m.currentFolder() {
			// Stale response from a folder the user already left.
			return m, nil
		}
		m.loaded = true
		m.statusMsg = ""
		return m, tea.Batch(m.setItems(msg.Page.Files), m.persistCache(msg.Page.Files))

	case DownloadLinkMsg:
		if msg.Err != nil {
			if api.IsSessionExpired(msg.Err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error getting download link: %v", msg.Err)
			return m, nil
		}
		m.statusMsg = fmt.Sprintf("%s: %s", msg.FileName, msg.Presigned.URL)
		return m, nil

	case detailMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading file: %v", msg.err)
			return m, nil
		}
		m.statusMsg = describeFile(msg.file)
		return m, nil

	case historyMsg:
		if msg.err != nil {
			if api.IsSessionExpired(msg.err) {
				return m, ui.SessionExpired
			}
			m.statusMsg = fmt.Sprintf("Error loading versions: %v", msg.err)
			return m, nil
		}
		m.statusMsg = describeHistory(msg.fileName, msg.versions)
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
		return m, m.load(m.currentFolder())

	case deleteDoneMsg:
		if api.IsSessionExpired(msg.err) {
			return m, ui.SessionExpired
		}
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error deleting: %v", msg.err)
		}
		return m, m.load(m.currentFolder())

	case tea.KeyMsg:
		if m.inputMode != inputNone {
			return m.handleInputKeys(msg)
		}
		if m.list.FilterState() == list.Filtering {
			break
		}
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleKeys dispatches view-local keybindings in browse mode.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		if !item.IsFolder {
			return m, m.fetchDetail(item.ID)
		}
		m.trail = append(m.trail, crumb{folderID: item.ID, name: item.Name})
		m.list.Title = "Files / " + item.Name
		m.loaded = false
		return m, tea.Batch(m.loadCache(item.ID), m.load(item.ID))

	case key.Matches(msg, m.keys.Back):
		if len(m.trail) == 0 {
			return m, nil
		}
		m.trail = m.trail[:len(m.trail)-1]
		if len(m.trail) == 0 {
			m.list.Title = "Files"
		} else {
			m.list.Title = "Files / " + m.trail[len(m.trail)-1].name
		}
		m.loaded = false
		folder := m.currentFolder()
		return m, tea.Batch(m.loadCache(folder), m.load(folder))

	case key.Matches(msg, m.keys.Refresh):
		return m, m.load(m.currentFolder())

	case key.Matches(msg, m.keys.Download):
		item, ok := m.selected()
		if !ok || item.IsFolder {
			return m, nil
		}
		return m, m.fetchDownloadLink(item)

	case key.Matches(msg, m.keys.Delete):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.deleteEntry(item)

	case key.Matches(msg, m.keys.NewFolder):
		return m.openInput(inputNewFolder, "folder name", Item{}), nil

	case key.Matches(msg, m.keys.Rename):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		next := m.openInput(inputRename, "new name", item)
		next.input.SetValue(item.Name)
		return next, nil

	case key.Matches(msg, m.keys.Share):
		item, ok := m.selected()
		if !ok || item.IsFolder {
			return m, nil
		}
		return m.openInput(inputShare, "share with user id", item), nil

	case key.Matches(msg, m.keys.Upload):
		return m.openInput(inputUpload, "local file path", Item{}), nil

	case key.Matches(msg, m.keys.Cut):
		item, ok := m.selected()
		if !ok || item.IsFolder {
			return m, nil
		}
		m.pendingMoveID = item.ID
		m.pendingMoveName = item.Name
		m.statusMsg = fmt.Sprintf("Moving %s: navigate to the target folder and paste", item.Name)
		return m, nil

	case key.Matches(msg, m.keys.Paste):
		if m.pendingMoveID == "" {
			return m, nil
		}
		fileID, name := m.pendingMoveID, m.pendingMoveName
		m.pendingMoveID = ""
		m.pendingMoveName = ""
		return m, m.moveFile(fileID, name, m.currentFolder())

	case key.Matches(msg, m.keys.History):
		item, ok := m.selected()
		if !ok || item.IsFolder {
			return m, nil
		}
		return m, m.fetchHistory(item)

	case key.Matches(msg, m.keys.Restore):
		item, ok := m.selected()
		if !ok || item.IsFolder {
			return m, nil
		}
		return m, m.restorePrevious(item)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleInputKeys feeds keys into the text prompt until it is submitted
// or cancelled.
func (m Model) handleInputKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.inputMode = inputNone
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Select):
		value := m.input.Value()
		mode := m.inputMode
		target := m.inputTarget
		m.inputMode = inputNone
		m.input.Blur()
		if value == "" {
			return m, nil
		}
		return m, m.submitInput(mode, target, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// openInput switches the view into prompt mode.
func (m Model) openInput(mode inputPurpose, placeholder string, target Item) Model {
	m.inputMode = mode
	m.inputTarget = target
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
	m.statusMsg = ""
	return m
}

// submitInput runs the backend call for a completed prompt.
func (m Model) submitInput(mode inputPurpose, target Item, value string) tea.Cmd {
	client := m.client
	folder := m.currentFolder()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		switch mode {
		case inputNewFolder:
			_, err := client.CreateFolder(ctx, value, "/"+value, folder)
			return actionDoneMsg{status: fmt.Sprintf("Created folder %s", value), err: err}

		case inputRename:
			var err error
			if target.IsFolder {
				_, err = client.RenameFolder(ctx, target.ID, value)
			} else {
				_, err = client.UpdateFile(ctx, target.ID, api.UpdateFileRequest{Name: value})
			}
			return actionDoneMsg{status: fmt.Sprintf("Renamed to %s", value), err: err}

		case inputShare:
			_, err := client.ShareFile(ctx, target.ID, value, "read")
			return actionDoneMsg{status: fmt.Sprintf("Shared %s with %s", target.Name, value), err: err}

		case inputUpload:
			file, err := client.UploadFile(ctx, value, folder)
			if err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{status: fmt.Sprintf("Uploaded %s", file.Name)}
		}
		return nil
	}
}

// selected returns the focused list item.
func (m Model) selected() (Item, bool) {
	item, ok := m.list.SelectedItem().(Item)
	return item, ok
}

// setItems replaces the list content with a listing.
func (m *Model) setItems(files []model.FileInfo) tea.Cmd {
	items := make([]list.Item, len(files))
	for i, f := range files {
		items[i] = Item{FileInfo: f}
	}
	return m.list.SetItems(items)
}

// fetchDownloadLink requests a pre-signed URL for the selected file. The
// pipeline has already rewritten it to the public storage host.
func (m Model) fetchDownloadLink(item Item) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		presigned, err := client.GetDownloadURL(ctx, item.ID, 0)
		return DownloadLinkMsg{FileName: item.Name, Presigned: presigned, Err: err}
	}
}

// fetchDetail refetches the selected file's metadata from the backend.
func (m Model) fetchDetail(fileID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		file, err := client.GetFile(ctx, fileID)
		return detailMsg{file: file, err: err}
	}
}

// fetchHistory loads the version history of the selected file.
func (m Model) fetchHistory(item Item) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		versions, err := client.GetFileVersions(ctx, item.ID)
		return historyMsg{fileName: item.Name, versions: versions, err: err}
	}
}

// restorePrevious makes the version before the current one the file's
// content again.
func (m Model) restorePrevious(item Item) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		versions, err := client.GetFileVersions(ctx, item.ID)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		if len(versions) < 2 {
			return actionDoneMsg{status: fmt.Sprintf("%s has no previous version", item.Name)}
		}
		// Versions arrive newest first; index 1 is the previous one.
		restored, err := client.RestoreVersion(ctx, item.ID, versions[1].Version)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{status: fmt.Sprintf("Restored %s to v%d", item.Name, restored.Version)}
	}
}

// moveFile reparents a previously cut file into the target folder.
func (m Model) moveFile(fileID, name, targetFolderID string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_, err := client.MoveFile(ctx, fileID, targetFolderID)
		return actionDoneMsg{status: fmt.Sprintf("Moved %s", name), err: err}
	}
}

// deleteEntry moves the selected file or folder to the trash. For files
// the backend's permission check runs first so a share recipient gets a
// clear message instead of a failed delete.
func (m Model) deleteEntry(item Item) tea.Cmd {
	client := m.client
	cache := m.cache
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var err error
		if item.IsFolder {
			err = client.DeleteFolder(ctx, item.ID)
		} else {
			allowed, permErr := client.CheckPermission(ctx, item.ID, "delete")
			switch {
			case permErr != nil:
				err = permErr
			case !allowed:
				err = fmt.Errorf("no permission to delete %s", item.Name)
			default:
				err = client.DeleteFile(ctx, item.ID)
			}
		}
		if err == nil && cache != nil {
			_ = cache.DeleteFile(ctx, item.ID)
		}
		return deleteDoneMsg{err: err}
	}
}

// persistCache mirrors the listing into the local cache.
func (m Model) persistCache(files []model.FileInfo) tea.Cmd {
	cache := m.cache
	if cache == nil || len(files) == 0 {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		_ = cache.UpsertFiles(ctx, files)
		return nil
	}
}

// describeFile summarizes a file for the status line.
func describeFile(f model.FileInfo) string {
	return fmt.Sprintf("%s · %s · v%d · %s", f.Name, humanSize(f.Size), f.Version, f.Path)
}

// describeHistory summarizes a version history for the status line.
func describeHistory(name string, versions []model.FileVersion) string {
	if len(versions) == 0 {
		return fmt.Sprintf("%s has no version history", name)
	}
	s := fmt.Sprintf("%s: %d versions, current v%d (%s)",
		name, len(versions), versions[0].Version, humanSize(versions[0].Size))
	return s
}

// View renders the file browser.
func (m Model) View() string {
	view := m.list.View()
	if m.inputMode != inputNone {
		view += "\n" + theme.HeaderStyle.Render(m.inputPrompt()) + " " + m.input.View()
	} else if m.statusMsg != "" {
		view += "\n" + theme.HelpStyle.Render(m.statusMsg)
	}
	return view
}

// inputPrompt labels the text prompt for the active purpose.
func (m Model) inputPrompt() string {
	switch m.inputMode {
	case inputNewFolder:
		return "New folder:"
	case inputRename:
		return "Rename:"
	case inputShare:
		return "Share with:"
	case inputUpload:
		return "Upload:"
	}
	return ""
}
