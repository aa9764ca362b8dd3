package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cloudsync/cloudsync/internal/model"
)

// ListNotificationsOptions controls the notification listing query.
type ListNotificationsOptions struct {
	UnreadOnly bool
	Type       model.NotificationType
	Limit      int
	Offset     int
}

// ListNotifications returns a page of notifications together with the
// authoritative unread count.
func (c *Client) ListNotifications(ctx context.Context, opts ListNotificationsOptions) (model.NotificationPage, error) {
	query := url.Values{}
	query.Set("unread_only", strconv.FormatBool(opts.UnreadOnly))
	if opts.Type != "" {
		query.Set("notification_type", string(opts.Type))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	var page model.NotificationPage
	err := c.Get(ctx, "/api/v1/notifications?"+query.Encode(), &page)
	return page, err
}

// GetUnreadCount returns the authoritative unread notification count.
func (c *Client) GetUnreadCount(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	err := c.Get(ctx, "/api/v1/notifications/unread-count", &resp)
	return resp.Count, err
}

// MarkNotificationRead marks a single notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	return c.Put(ctx, "/api/v1/notifications/"+url.PathEscape(notificationID)+"/read", nil, nil)
}

// MarkAllNotificationsRead marks every notification as read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.Put(ctx, "/api/v1/notifications/read-all", nil, nil)
}

// DeleteNotification removes a single notification.
func (c *Client) DeleteNotification(ctx context.Context, notificationID string) error {
	return c.Delete(ctx, "/api/v1/notifications/"+url.PathEscape(notificationID), nil)
}

// DeleteAllNotifications removes every notification.
func (c *Client) DeleteAllNotifications(ctx context.Context) error {
	return c.Delete(ctx, "/api/v1/notifications", nil)
}

// GetNotificationPreferences returns the per-user delivery settings.
func (c *Client) GetNotificationPreferences(ctx context.Context) (model.NotificationPreferences, error) {
	var prefs model.NotificationPreferences
	err := c.Get(ctx, "/api/v1/notifications/preferences", &prefs)
	return prefs, err
}

// UpdateNotificationPreferences replaces the per-user delivery settings.
func (c *Client) UpdateNotificationPreferences(ctx context.Context, prefs model.NotificationPreferences) (model.NotificationPreferences, error) {
	var updated model.NotificationPreferences
	err := c.Put(ctx, "/api/v1/notifications/preferences", prefs, &updated)
	return updated, err
}
