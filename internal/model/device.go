package model

import "time"

// Device is a sync endpoint registered with the sync service.
type Device struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"deviceName"`
	DeviceType string    `json:"deviceType"`
	OS         string    `json:"os"`
	OSVersion  string    `json:"osVersion"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// DeviceList is the response of GET /api/v1/sync/devices.
type DeviceList struct {
	Devices []Device `json:"devices"`
}

// RegisterDeviceRequest is the body of POST /api/v1/sync/devices.
type RegisterDeviceRequest struct {
	DeviceName string `json:"deviceName"`
	DeviceType string `json:"deviceType"`
	OS         string `json:"os"`
	OSVersion  string `json:"osVersion"`
}

// SyncStatus reports a device's position in the change stream.
type SyncStatus struct {
	DeviceID       string    `json:"deviceId"`
	LastSyncCursor string    `json:"lastSyncCursor"`
	LastSyncAt     time.Time `json:"lastSyncAt"`
	PendingChanges int       `json:"pendingChanges"`
}

// Change is a single metadata change pushed to or pulled from the sync
// service. The client never interprets change payloads; it relays them.
type Change struct {
	FileID    string `json:"fileId"`
	Operation string `json:"operation"`
	Version   int    `json:"version"`
	Hash      string `json:"hash,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// PullResult is the response of GET /api/v1/sync/pull.
type PullResult struct {
	Changes []Change `json:"changes"`
	Cursor  string   `json:"cursor"`
	HasMore bool     `json:"hasMore"`
}

// Conflict is an unresolved divergence between two devices' versions of a
// file, reported by the sync service.
type Conflict struct {
	ID            string    `json:"id"`
	FileID        string    `json:"fileId"`
	FileName      string    `json:"fileName"`
	ServerVersion int       `json:"serverVersion"`
	ClientVersion int       `json:"clientVersion"`
	DetectedAt    time.Time `json:"detectedAt"`
}

// Quota is the response of GET /api/v1/users/me/quota.
type Quota struct {
	HasSpace       bool  `json:"hasSpace"`
	AvailableSpace int64 `json:"availableSpace"`
	StorageUsed    int64 `json:"storageUsed"`
	StorageQuota   int64 `json:"storageQuota"`
}

// UserSettings holds per-user preferences stored server-side.
type UserSettings struct {
	Language       string `json:"language"`
	Timezone       string `json:"timezone"`
	SyncOnMetered  bool   `json:"syncOnMetered"`
	NotifyByEmail  bool   `json:"notifyByEmail"`
	DefaultShareAs string `json:"defaultShareAs"`
}
