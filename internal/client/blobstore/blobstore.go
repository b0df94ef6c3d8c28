// Package blobstore persists the raw bytes of files pending upload, keyed
// by upload id, so an interrupted transfer can be retransmitted after a
// process restart without re-selecting the file.
package blobstore

import (
	"context"
	"io"
)

// Store is a durable key-value store with binary values.
//
// Put and Get stream the value; the store must handle values as large as
// the largest file the client accepts. Delete is idempotent and never
// fails on a missing key.
type Store interface {
	// Put durably writes the bytes read from r under id, replacing any
	// previous value. Returns the number of bytes written. Fails with
	// common.ErrStorageFull or common.ErrStorageUnavailable.
	Put(ctx context.Context, id string, r io.Reader) (int64, error)

	// Get opens the value stored under id for reading, returning the
	// reader and the value size. Fails with common.ErrNotFound when no
	// value exists.
	Get(ctx context.Context, id string) (io.ReadCloser, int64, error)

	// Delete removes the value stored under id, if any.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all stored values. The reconciliation loop
	// uses it to sweep blobs orphaned by a lost record.
	List(ctx context.Context) ([]string, error)
}
