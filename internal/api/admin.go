package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/cloudsync/cloudsync/internal/model"
)

// AdminListUsers returns a page of user records. Requires an admin role;
// the backend enforces this.
func (c *Client) AdminListUsers(ctx context.Context, q model.AdminUserQuery) (model.AdminUserPage, error) {
	query := url.Values{}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		query.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Plan != "" {
		query.Set("plan", q.Plan)
	}
	if q.SortBy != "" {
		query.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		query.Set("sortOrder", q.SortOrder)
	}

	var page model.AdminUserPage
	err := c.Get(ctx, "/api/v1/admin/users?"+query.Encode(), &page)
	return page, err
}

// AdminGetUser returns detailed information about one user.
func (c *Client) AdminGetUser(ctx context.Context, userID string) (model.AdminUser, error) {
	var user model.AdminUser
	err := c.Get(ctx, "/api/v1/admin/users/"+url.PathEscape(userID), &user)
	return user, err
}

// AdminUpdateUserQuota changes a user's storage quota in bytes.
func (c *Client) AdminUpdateUserQuota(ctx context.Context, userID string, newQuota int64) error {
	body := map[string]int64{"newQuota": newQuota}
	return c.Put(ctx, "/api/v1/admin/users/"+url.PathEscape(userID)+"/quota", body, nil)
}

// AdminChangeUserPlan moves a user to a different subscription plan.
func (c *Client) AdminChangeUserPlan(ctx context.Context, userID, newPlan string) error {
	body := map[string]string{"newPlan": newPlan}
	return c.Put(ctx, "/api/v1/admin/users/"+url.PathEscape(userID)+"/plan", body, nil)
}

// AdminBlockUser blocks a user with an audit reason.
func (c *Client) AdminBlockUser(ctx context.Context, userID, reason string) error {
	body := map[string]string{"reason": reason}
	return c.Post(ctx, "/api/v1/admin/users/"+url.PathEscape(userID)+"/block", body, nil)
}

// AdminUnblockUser unblocks a user.
func (c *Client) AdminUnblockUser(ctx context.Context, userID string) error {
	return c.Post(ctx, "/api/v1/admin/users/"+url.PathEscape(userID)+"/unblock", nil, nil)
}

// AdminAssignRole grants a role to a user.
func (c *Client) AdminAssignRole(ctx context.Context, userID, roleName string) error {
	body := map[string]string{"roleName": roleName}
	return c.Post(ctx, "/api/v1/admin/users/"+url.PathEscape(userID)+"/roles", body, nil)
}

// AdminRevokeRole removes a role from a user.
func (c *Client) AdminRevokeRole(ctx context.Context, userID, roleName string) error {
	path := "/api/v1/admin/users/" + url.PathEscape(userID) + "/roles?roleName=" + url.QueryEscape(roleName)
	return c.Delete(ctx, path, nil)
}

// AdminGetSystemStats returns system-wide statistics for the given unix
// timestamp window (0 values leave the bound open).
func (c *Client) AdminGetSystemStats(ctx context.Context, from, to int64) (model.SystemStats, error) {
	query := url.Values{}
	if from > 0 {
		query.Set("fromTimestamp", strconv.FormatInt(from, 10))
	}
	if to > 0 {
		query.Set("toTimestamp", strconv.FormatInt(to, 10))
	}

	var stats model.SystemStats
	err := c.Get(ctx, "/api/v1/admin/statistics/system?"+query.Encode(), &stats)
	return stats, err
}

// AdminGetStorageStats returns storage usage statistics.
func (c *Client) AdminGetStorageStats(ctx context.Context, result any) error {
	return c.Get(ctx, "/api/v1/admin/statistics/storage", result)
}

// AdminGetActiveUsers returns users active within the last N minutes.
func (c *Client) AdminGetActiveUsers(ctx context.Context, minutes int) (model.AdminUserPage, error) {
	if minutes <= 0 {
		minutes = 60
	}
	var page model.AdminUserPage
	err := c.Get(ctx, "/api/v1/admin/statistics/active?minutes="+strconv.Itoa(minutes), &page)
	return page, err
}
