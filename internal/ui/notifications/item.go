package notifications

import (
	"fmt"
	"time"

	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/theme"
)

// Item adapts a Notification for the bubbles list widget.
type Item struct {
	model.Notification
}

// Title renders the one-line summary with read-state and priority markers.
func (i Item) Title() string {
	marker := "●"
	style := theme.UnreadItemStyle
	if i.IsRead {
		marker = " "
		style = theme.ReadItemStyle
	}

	prio := theme.PriorityStyle(i.Priority).Render(priorityGlyph(i.Priority))
	return fmt.Sprintf("%s %s %s", style.Render(marker), prio, style.Render(i.Notification.Title))
}

// Description renders the message and relative age.
func (i Item) Description() string {
	return fmt.Sprintf("%s · %s", i.Message, relativeAge(i.CreatedAt))
}

// FilterValue makes the list searchable by title and message.
func (i Item) FilterValue() string {
	return i.Notification.Title + " " + i.Message
}

// priorityGlyph maps a priority to a compact marker.
func priorityGlyph(priority string) string {
	switch priority {
	case "urgent":
		return "!!"
	case "high":
		return "!"
	default:
		return "·"
	}
}

// relativeAge formats a timestamp as a compact age like "5m" or "2d".
func relativeAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
