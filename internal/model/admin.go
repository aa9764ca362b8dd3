package model

import "time"

// AdminUser is a user record as seen through the admin endpoints.
type AdminUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Plan         string    `json:"plan"`
	Roles        []string  `json:"roles"`
	Blocked      bool      `json:"blocked"`
	StorageUsed  int64     `json:"storageUsed"`
	StorageQuota int64     `json:"storageQuota"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// AdminUserPage is the response of GET /api/v1/admin/users.
type AdminUserPage struct {
	Users    []AdminUser `json:"users"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// AdminUserQuery controls filtering, sorting, and pagination of the admin
// user listing.
type AdminUserQuery struct {
	Page      int
	PageSize  int
	Search    string
	Plan      string
	SortBy    string
	SortOrder string
}

// SystemStats is the admin system statistics payload. The client treats
// the metric values as opaque and renders them verbatim.
type SystemStats struct {
	TotalUsers    int64            `json:"totalUsers"`
	ActiveUsers   int64            `json:"activeUsers"`
	TotalFiles    int64            `json:"totalFiles"`
	TotalStorage  int64            `json:"totalStorage"`
	RequestCounts map[string]int64 `json:"requestCounts"`
}
