package model

import (
	"strings"
	"time"
)

// NotificationType is the closed tag the notification service attaches to
// every event. Content-bearing types describe activity on a resource;
// control types instruct clients to adjust already-delivered notifications.
type NotificationType string

const (
	// File activity.
	TypeFileUploaded           NotificationType = "FILE_UPLOADED"
	TypeFileUpdated            NotificationType = "FILE_UPDATED"
	TypeFileRenamed            NotificationType = "FILE_RENAMED"
	TypeFileDeleted            NotificationType = "FILE_DELETED"
	TypeFileRestored           NotificationType = "FILE_RESTORED"
	TypeFilePermanentlyDeleted NotificationType = "FILE_PERMANENTLY_DELETED"
	TypeFileShared             NotificationType = "FILE_SHARED"
	TypeFileUnshared           NotificationType = "FILE_UNSHARED"
	TypeVersionUploaded        NotificationType = "VERSION_UPLOADED"

	// Account activity.
	TypeUserBlocked         NotificationType = "USER_BLOCKED"
	TypeUserUnblocked       NotificationType = "USER_UNBLOCKED"
	TypeUserPasswordChanged NotificationType = "USER_PASSWORD_CHANGED"
	TypeRoleAssigned        NotificationType = "ROLE_ASSIGNED"
	TypeRoleRevoked         NotificationType = "ROLE_REVOKED"
	TypeRoleChanged         NotificationType = "ROLE_CHANGED"
	TypeQuotaChanged        NotificationType = "QUOTA_CHANGED"
	TypePlanChanged         NotificationType = "PLAN_CHANGED"

	// Control signals. These never create a new notification; they mutate
	// the client's local view of previously delivered ones.
	TypeNotificationRead        NotificationType = "NOTIFICATION_READ"
	TypeNotificationDeleted     NotificationType = "NOTIFICATION_DELETED"
	TypeAllNotificationsRead    NotificationType = "ALL_NOTIFICATIONS_READ"
	TypeAllNotificationsDeleted NotificationType = "ALL_NOTIFICATIONS_DELETED"
)

// IsControl reports whether t is a control signal rather than a
// content-bearing event.
func (t NotificationType) IsControl() bool {
	switch t {
	case TypeNotificationRead, TypeNotificationDeleted,
		TypeAllNotificationsRead, TypeAllNotificationsDeleted:
		return true
	}
	return false
}

// IsFileActivity reports whether t describes file or version activity,
// which clients use to route a notification to the files view.
func (t NotificationType) IsFileActivity() bool {
	return strings.HasPrefix(string(t), "FILE_") || t == TypeVersionUploaded
}

// IsAccountActivity reports whether t describes user, role, quota, or plan
// changes, which clients route to the settings view.
func (t NotificationType) IsAccountActivity() bool {
	return strings.HasPrefix(string(t), "USER_") ||
		strings.HasPrefix(string(t), "ROLE_") ||
		strings.HasPrefix(string(t), "ADMIN_") ||
		t == TypeQuotaChanged || t == TypePlanChanged
}

// Notification is a single event pushed by the notification service, either
// over the WebSocket feed or returned from the REST listing. The WebSocket
// frame identifies the event as notificationId while the REST listing uses
// id. Immutable once received except for the local IsRead flag.
type Notification struct {
	ID             string           `json:"id" db:"id"`
	NotificationID string           `json:"notificationId,omitempty" db:"-"`
	UserID         string           `json:"userId,omitempty" db:"user_id"`
	Type           NotificationType `json:"type" db:"type"`
	Title          string           `json:"title" db:"title"`
	Message        string           `json:"message" db:"message"`
	Priority       string           `json:"priority" db:"priority"`
	ResourceID     string           `json:"resourceId,omitempty" db:"resource_id"`
	ResourceType   string           `json:"resourceType,omitempty" db:"resource_type"`
	IsRead         bool             `json:"isRead" db:"is_read"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
}

// Key returns the identifier this notification is tracked under.
func (n Notification) Key() string {
	if n.ID != "" {
		return n.ID
	}
	return n.NotificationID
}

// NotificationPage is the response of GET /api/v1/notifications.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Total         int            `json:"total"`
	UnreadCount   int            `json:"unread_count"`
}

// NotificationPreferences mirrors the per-user delivery settings resource.
type NotificationPreferences struct {
	EmailEnabled bool `json:"emailEnabled"`
	PushEnabled  bool `json:"pushEnabled"`
	InAppEnabled bool `json:"inAppEnabled"`
}
