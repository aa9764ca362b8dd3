package api

import (
	"context"
	"strconv"

	"github.com/cloudsync/cloudsync/internal/model"
)

// User is the profile record returned by the user service.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatarUrl"`
	Plan      string   `json:"plan"`
	Roles     []string `json:"roles"`
}

// GetCurrentUser returns the authenticated user's profile.
func (c *Client) GetCurrentUser(ctx context.Context) (User, error) {
	var user User
	err := c.Get(ctx, "/api/v1/users/me", &user)
	return user, err
}

// UpdateCurrentUser updates the authenticated user's profile. Empty fields
// are left unchanged.
func (c *Client) UpdateCurrentUser(ctx context.Context, name, avatarURL string) (User, error) {
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	if avatarURL != "" {
		body["avatarUrl"] = avatarURL
	}

	var user User
	err := c.Put(ctx, "/api/v1/users/me", body, &user)
	return user, err
}

// DeleteCurrentUser deletes the authenticated user's account.
func (c *Client) DeleteCurrentUser(ctx context.Context) error {
	return c.Delete(ctx, "/api/v1/users/me", nil)
}

// GetUserSettings returns the authenticated user's server-side settings.
func (c *Client) GetUserSettings(ctx context.Context) (model.UserSettings, error) {
	var settings model.UserSettings
	err := c.Get(ctx, "/api/v1/users/me/settings", &settings)
	return settings, err
}

// UpdateUserSettings replaces the authenticated user's settings.
func (c *Client) UpdateUserSettings(ctx context.Context, settings model.UserSettings) (model.UserSettings, error) {
	var updated model.UserSettings
	err := c.Put(ctx, "/api/v1/users/me/settings", settings, &updated)
	return updated, err
}

// CheckQuota returns the user's storage quota, and whether fileSize more
// bytes would still fit (0 just reads usage).
func (c *Client) CheckQuota(ctx context.Context, fileSize int64) (model.Quota, error) {
	var quota model.Quota
	err := c.Get(ctx, "/api/v1/users/me/quota?fileSize="+strconv.FormatInt(fileSize, 10), &quota)
	return quota, err
}
