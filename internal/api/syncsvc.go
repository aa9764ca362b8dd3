package api

import (
	"context"
	"net/url"

	"github.com/cloudsync/cloudsync/internal/model"
)

// ListDevices returns the devices registered for the current user.
func (c *Client) ListDevices(ctx context.Context) ([]model.Device, error) {
	var list model.DeviceList
	err := c.Get(ctx, "/api/v1/sync/devices", &list)
	return list.Devices, err
}

// RegisterDevice registers this client as a sync endpoint.
func (c *Client) RegisterDevice(ctx context.Context, req model.RegisterDeviceRequest) (model.Device, error) {
	var device model.Device
	err := c.Post(ctx, "/api/v1/sync/devices", req, &device)
	return device, err
}

// UnregisterDevice removes a device from the sync service.
func (c *Client) UnregisterDevice(ctx context.Context, deviceID string) error {
	return c.Delete(ctx, "/api/v1/sync/devices/"+url.PathEscape(deviceID), nil)
}

// GetSyncStatus returns a device's position in the change stream.
func (c *Client) GetSyncStatus(ctx context.Context, deviceID string) (model.SyncStatus, error) {
	var status model.SyncStatus
	err := c.Get(ctx, "/api/v1/sync/status?device_id="+url.QueryEscape(deviceID), &status)
	return status, err
}

// PullChanges fetches metadata changes since the given cursor. An empty
// cursor pulls from the beginning of the stream.
func (c *Client) PullChanges(ctx context.Context, deviceID, lastSyncCursor string) (model.PullResult, error) {
	query := url.Values{}
	query.Set("device_id", deviceID)
	if lastSyncCursor != "" {
		query.Set("last_sync_cursor", lastSyncCursor)
	}

	var result model.PullResult
	err := c.Get(ctx, "/api/v1/sync/pull?"+query.Encode(), &result)
	return result, err
}

// ListConflicts returns unresolved sync conflicts for the current user.
func (c *Client) ListConflicts(ctx context.Context) ([]model.Conflict, error) {
	var resp struct {
		Conflicts []model.Conflict `json:"conflicts"`
	}
	err := c.Get(ctx, "/api/v1/sync/conflicts", &resp)
	return resp.Conflicts, err
}

// ResolveConflict settles a sync conflict. ResolutionType is "manual",
// "server", or "client"; chosenFileID is required for manual resolution.
func (c *Client) ResolveConflict(ctx context.Context, conflictID, resolutionType, chosenFileID string) error {
	body := map[string]string{"resolutionType": resolutionType}
	if chosenFileID != "" {
		body["chosenFileId"] = chosenFileID
	}
	return c.Post(ctx, "/api/v1/sync/conflicts/"+url.PathEscape(conflictID)+"/resolve", body, nil)
}
