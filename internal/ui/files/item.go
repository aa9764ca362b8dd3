package files

import (
	"fmt"

	"github.com/cloudsync/cloudsync/internal/model"
)

// Item adapts a FileInfo for the bubbles list widget.
type Item struct {
	model.FileInfo
}

// Title renders the entry name with a folder marker.
func (i Item) Title() string {
	if i.IsFolder {
		return "▸ " + i.Name
	}
	return "  " + i.Name
}

// Description renders size and version for files, a plain label for
// folders.
func (i Item) Description() string {
	if i.IsFolder {
		return "  folder"
	}
	return fmt.Sprintf("  %s · v%d", humanSize(i.Size), i.Version)
}

// FilterValue makes the list searchable by name.
func (i Item) FilterValue() string {
	return i.Name
}

// humanSize formats a byte count for display.
func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
