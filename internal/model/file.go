package model

import "time"

// FileInfo is the file/folder metadata record returned by the file service.
type FileInfo struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Path           string    `json:"path" db:"path"`
	Size           int64     `json:"size" db:"size"`
	MimeType       string    `json:"mimeType" db:"mime_type"`
	Hash           string    `json:"hash" db:"hash"`
	Version        int       `json:"version" db:"version"`
	IsFolder       bool      `json:"isFolder" db:"is_folder"`
	ParentFolderID string    `json:"parentFolderId" db:"parent_folder_id"`
	OwnerID        string    `json:"ownerId" db:"owner_id"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// FilePage is the response of GET /api/v1/files.
type FilePage struct {
	Files []FileInfo `json:"files"`
	Total int        `json:"total"`
}

// FileVersion is a single entry in a file's version history.
type FileVersion struct {
	Version   int       `json:"version"`
	Size      int64     `json:"size"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}

// Share records a file being shared with another user.
type Share struct {
	ID               string `json:"id"`
	FileID           string `json:"fileId"`
	SharedWithUserID string `json:"sharedWithUserId"`
	Permission       string `json:"permission"`
}

// PresignedURL is the storage service's response for upload-url and
// download-url requests. URL points at object storage directly and is the
// field the request pipeline rewrites from the internal host to the public
// one.
type PresignedURL struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	ExpiresIn int64             `json:"expiresIn"`
	Headers   map[string]string `json:"headers"`
}
