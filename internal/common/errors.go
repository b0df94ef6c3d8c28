// Package common defines shared constants and sentinel errors used across
// filekeeper components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository/store-level errors.
	ErrNotFound = errors.New("not found")

	// Backend API errors (initiate/complete call failed; user-visible,
	// retryable).
	ErrBackendUnavailable = errors.New("backend unavailable")

	// Transfer errors.
	ErrNetworkError = errors.New("network error")

	// Durable blob store errors.
	ErrBlobMissing        = errors.New("persisted file bytes missing")
	ErrStorageFull        = errors.New("local storage full")
	ErrStorageUnavailable = errors.New("local storage unavailable")

	// Upload lifecycle errors.
	ErrIllegalTransition = errors.New("illegal upload status transition")
	ErrTransferActive    = errors.New("transfer already active for upload")
	ErrFileTooLarge      = errors.New("file exceeds maximum upload size")
)

// ServerRejectedError reports a non-2xx response from the presigned PUT.
// The record of the HTTP status lets callers distinguish an expired URL
// (typically 403) from other rejections.
type ServerRejectedError struct {
	StatusCode int
}

func (e *ServerRejectedError) Error() string {
	return fmt.Sprintf("server rejected upload: status %d", e.StatusCode)
}
