// Package api talks to the cloud-storage backend that issues presigned
// upload URLs and finalizes uploads. The backend itself is an external
// collaborator; only its boundary lives here.
package api

import "context"

// InitiateRequest is the body of POST /uploads/initiate.
type InitiateRequest struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ParentDirID string `json:"parentDirId"`
	ContentType string `json:"contentType"`
}

// InitiateResult carries the presigned destination for a single PUT of the
// entire file, and the id the backend assigned to it.
type InitiateResult struct {
	URL    string `json:"url"`
	FileID string `json:"fileId"`
}

// Client is the backend operation surface the upload manager needs.
// Failures surface as common.ErrBackendUnavailable; callers retry without
// re-uploading bytes.
type Client interface {
	InitiateUpload(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	CompleteUpload(ctx context.Context, fileID string) error
	Ping(ctx context.Context) error
}
