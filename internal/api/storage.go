package api

import (
	"context"

	"github.com/cloudsync/cloudsync/internal/model"
)

// UploadURLRequest is the body of POST /api/v1/storage/upload-url.
type UploadURLRequest struct {
	FileID   string `json:"fileId"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType,omitempty"`
	Version  int    `json:"version,omitempty"`
}

// GetUploadURL requests a pre-signed upload URL. The returned URL has
// already been rewritten to the publicly reachable storage host.
func (c *Client) GetUploadURL(ctx context.Context, req UploadURLRequest) (model.PresignedURL, error) {
	var presigned model.PresignedURL
	err := c.Post(ctx, "/api/v1/storage/upload-url", req, &presigned)
	return presigned, err
}

// GetDownloadURL requests a pre-signed download URL for a file, optionally
// for a specific version (0 means current).
func (c *Client) GetDownloadURL(ctx context.Context, fileID string, version int) (model.PresignedURL, error) {
	body := map[string]any{"fileId": fileID}
	if version > 0 {
		body["version"] = version
	}

	var presigned model.PresignedURL
	err := c.Post(ctx, "/api/v1/storage/download-url", body, &presigned)
	return presigned, err
}

// ConfirmUpload tells the storage service an upload finished, with the
// content hash for integrity verification server-side.
func (c *Client) ConfirmUpload(ctx context.Context, fileID string, version int, hash string) error {
	body := map[string]any{
		"fileId":  fileID,
		"version": version,
		"hash":    hash,
	}
	return c.Post(ctx, "/api/v1/storage/upload/confirm", body, nil)
}
