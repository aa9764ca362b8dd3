package ui

import tea "github.com/charmbracelet/bubbletea"

// SessionExpiredMsg is emitted by a view when a backend call failed
// because the stored session could not be refreshed. The root model
// tears the session down and routes back to login.
type SessionExpiredMsg struct{}

// SessionExpired is a tea.Cmd that emits SessionExpiredMsg.
func SessionExpired() tea.Msg {
	return SessionExpiredMsg{}
}
