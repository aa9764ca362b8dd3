package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/theme"
)

// gaugeWidth is the character width of the quota usage gauge.
const gaugeWidth = 10

// Layout manages the terminal frame: a header carrying the unread badge,
// quota gauge, and feed indicator, the content area, and the hint bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// HeaderStatus composes the right side of the header: unread badge,
// storage gauge, and feed connection indicator.
func (l Layout) HeaderStatus(unread int, quota model.Quota, connected bool) string {
	status := ""
	if unread > 0 {
		status += theme.BadgeStyle.Render(fmt.Sprintf(" %d ", unread)) + " "
	}
	if gauge := QuotaGauge(quota); gauge != "" {
		status += gauge + " "
	}
	if connected {
		status += theme.ConnectionStyle(true).Render("● live")
	} else {
		status += theme.ConnectionStyle(false).Render("○ offline")
	}
	return status
}

// QuotaGauge renders storage usage as a small bar with the used
// percentage. An unknown quota renders nothing.
func QuotaGauge(quota model.Quota) string {
	if quota.StorageQuota <= 0 {
		return ""
	}
	ratio := float64(quota.StorageUsed) / float64(quota.StorageQuota)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio*gaugeWidth + 0.5)
	bar := strings.Repeat("▰", filled) + strings.Repeat("▱", gaugeWidth-filled)
	return fmt.Sprintf("%s %.0f%%", bar, ratio*100)
}

// RenderHeader renders the top header bar with a title on the left and
// the status cluster on the right.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(status)

	gap := l.Width -
		lipgloss.Width(titleRendered) -
		lipgloss.Width(statusRendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	rendered := theme.StatusBarStyle.Render(hints)

	gap := l.Width - lipgloss.Width(rendered)
	if gap < 0 {
		gap = 0
	}

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
