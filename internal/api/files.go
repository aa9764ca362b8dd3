package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/cloudsync/cloudsync/internal/model"
)

// ListFilesOptions controls the file listing query.
type ListFilesOptions struct {
	Path           string
	ParentFolderID string
	Limit          int
	Offset         int
}

// ListFiles returns a page of file and folder metadata.
func (c *Client) ListFiles(ctx context.Context, opts ListFilesOptions) (model.FilePage, error) {
	query := url.Values{}
	if opts.Path != "" {
		query.Set("path", opts.Path)
	}
	if opts.ParentFolderID != "" {
		query.Set("parentFolderId", opts.ParentFolderID)
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		query.Set("offset", strconv.Itoa(opts.Offset))
	}

	var page model.FilePage
	err := c.Get(ctx, "/api/v1/files?"+query.Encode(), &page)
	return page, err
}

// GetFile returns the metadata of a single file.
func (c *Client) GetFile(ctx context.Context, fileID string) (model.FileInfo, error) {
	var file model.FileInfo
	err := c.Get(ctx, "/api/v1/files/"+url.PathEscape(fileID), &file)
	return file, err
}

// CreateFileRequest is the body of POST /api/v1/files.
type CreateFileRequest struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	Size           int64  `json:"size"`
	MimeType       string `json:"mimeType,omitempty"`
	Hash           string `json:"hash,omitempty"`
	ParentFolderID string `json:"parentFolderId,omitempty"`
	IsFolder       bool   `json:"isFolder"`
}

// CreateFile registers a new file's metadata ahead of its upload.
func (c *Client) CreateFile(ctx context.Context, req CreateFileRequest) (model.FileInfo, error) {
	req.IsFolder = false
	var file model.FileInfo
	err := c.Post(ctx, "/api/v1/files", req, &file)
	return file, err
}

// UpdateFileRequest is the body of PUT /api/v1/files/{id}. Zero-valued
// fields are omitted and left unchanged server-side.
type UpdateFileRequest struct {
	Name    string `json:"name,omitempty"`
	Size    int64  `json:"size,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Version int    `json:"version,omitempty"`
}

// UpdateFile updates a file's metadata.
func (c *Client) UpdateFile(ctx context.Context, fileID string, req UpdateFileRequest) (model.FileInfo, error) {
	var file model.FileInfo
	err := c.Put(ctx, "/api/v1/files/"+url.PathEscape(fileID), req, &file)
	return file, err
}

// DeleteFile moves a file to the trash.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.Delete(ctx, "/api/v1/files/"+url.PathEscape(fileID), nil)
}

// ShareFile grants another user access to a file. Permission is "read" or
// "write".
func (c *Client) ShareFile(ctx context.Context, fileID, sharedWithUserID, permission string) (model.Share, error) {
	if permission == "" {
		permission = "read"
	}
	body := map[string]string{
		"sharedWithUserId": sharedWithUserID,
		"permission":       permission,
	}

	var share model.Share
	err := c.Post(ctx, "/api/v1/files/"+url.PathEscape(fileID)+"/share", body, &share)
	return share, err
}

// GetFileVersions returns the version history of a file.
func (c *Client) GetFileVersions(ctx context.Context, fileID string) ([]model.FileVersion, error) {
	var resp struct {
		Versions []model.FileVersion `json:"versions"`
	}
	err := c.Get(ctx, "/api/v1/files/"+url.PathEscape(fileID)+"/versions", &resp)
	return resp.Versions, err
}

// RestoreVersion makes a historical version the file's current content.
func (c *Client) RestoreVersion(ctx context.Context, fileID string, version int) (model.FileInfo, error) {
	path := fmt.Sprintf("/api/v1/files/%s/versions/%d/restore", url.PathEscape(fileID), version)
	var file model.FileInfo
	err := c.Post(ctx, path, nil, &file)
	return file, err
}

// CheckPermission asks the backend whether the current user holds the
// required permission on a file. All permission decisions are server-side.
func (c *Client) CheckPermission(ctx context.Context, fileID, required string) (bool, error) {
	var resp struct {
		HasPermission bool   `json:"has_permission"`
		Permission    string `json:"permission"`
	}
	path := "/api/v1/files/" + url.PathEscape(fileID) + "/permission?requiredPermission=" + url.QueryEscape(required)
	err := c.Get(ctx, path, &resp)
	return resp.HasPermission, err
}

// MoveFile reparents a file under a different folder.
func (c *Client) MoveFile(ctx context.Context, fileID, newParentFolderID string) (model.FileInfo, error) {
	body := map[string]string{"newParentFolderId": newParentFolderID}
	var file model.FileInfo
	err := c.Put(ctx, "/api/v1/files/"+url.PathEscape(fileID)+"/move", body, &file)
	return file, err
}

// CreateFolder creates a folder.
func (c *Client) CreateFolder(ctx context.Context, name, path, parentFolderID string) (model.FileInfo, error) {
	body := map[string]string{"name": name, "path": path}
	if parentFolderID != "" {
		body["parentFolderId"] = parentFolderID
	}

	var folder model.FileInfo
	err := c.Post(ctx, "/api/v1/folders", body, &folder)
	return folder, err
}

// RenameFolder changes a folder's name.
func (c *Client) RenameFolder(ctx context.Context, folderID, name string) (model.FileInfo, error) {
	body := map[string]string{"name": name}
	var folder model.FileInfo
	err := c.Put(ctx, "/api/v1/folders/"+url.PathEscape(folderID), body, &folder)
	return folder, err
}

// DeleteFolder moves a folder to the trash.
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	return c.Delete(ctx, "/api/v1/folders/"+url.PathEscape(folderID), nil)
}
